package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tayloree/bhtscan/internal/detect"
	"github.com/tayloree/bhtscan/internal/history"
)

// Styles for terminal output.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	alertTag     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")) // red
	safeTag      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")) // green
	matchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))            // yellow
	dimStyle     = lipgloss.NewStyle().Faint(true)
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// ResultJSON is the JSON output shape for a detection result.
type ResultJSON struct {
	ContainsBHT  bool         `json:"containsBHT"`
	Confidence   string       `json:"confidence"`
	Matches      []string     `json:"matches"`
	DetectedText string       `json:"detectedText"`
	Hits         []detect.Hit `json:"hits"`
}

// RuleJSON is the JSON output shape for a detection rule.
type RuleJSON struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Tier     string `json:"tier"`
	Pattern  string `json:"pattern"`
}

// SectionJSON is the JSON output shape for a located ingredients section.
type SectionJSON struct {
	Found   bool   `json:"found"`
	Section string `json:"section"`
}

// EntryJSON is the JSON output shape for a history entry.
type EntryJSON struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"createdAt"`
	Source      string   `json:"source"`
	Name        string   `json:"name,omitempty"`
	ContainsBHT bool     `json:"containsBHT"`
	Confidence  string   `json:"confidence"`
	Matches     []string `json:"matches"`
	Excerpt     string   `json:"excerpt,omitempty"`
}

// BatchItem is one checked file in a batch run.
type BatchItem struct {
	Rank   int
	Name   string
	Result detect.Result
}

// BatchItemJSON is the JSON output shape for a batch item.
type BatchItemJSON struct {
	Rank        int      `json:"rank"`
	Name        string   `json:"name"`
	ContainsBHT bool     `json:"containsBHT"`
	Confidence  string   `json:"confidence"`
	Matches     []string `json:"matches"`
}

// BatchJSON is the JSON output shape for a batch run.
type BatchJSON struct {
	Results []BatchItemJSON `json:"results"`
	Skipped []string        `json:"skipped"`
}

// ToResultJSON converts a result to its JSON shape; slices are never null.
func ToResultJSON(res detect.Result) ResultJSON {
	matches := res.Matches
	if matches == nil {
		matches = []string{}
	}
	hits := res.Hits
	if hits == nil {
		hits = []detect.Hit{}
	}
	return ResultJSON{
		ContainsBHT:  res.ContainsBHT,
		Confidence:   string(res.Confidence),
		Matches:      matches,
		DetectedText: res.DetectedText,
		Hits:         hits,
	}
}

// PrintResult renders a detection result to the writer.
func PrintResult(w io.Writer, res detect.Result) {
	fmt.Fprintf(w, "\n%s  %s\n", verdictTag(res.ContainsBHT), confidenceLabel(res.Confidence))

	if len(res.Matches) > 0 {
		styled := make([]string, 0, len(res.Matches))
		for _, m := range res.Matches {
			styled = append(styled, matchStyle.Render(m))
		}
		fmt.Fprintf(w, "  %s %s\n", titleStyle.Render("Found:"), strings.Join(styled, ", "))
	} else {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render("No BHT pattern found in the label text."))
	}

	if text := strings.TrimSpace(res.DetectedText); text != "" {
		fmt.Fprintf(w, "\n  %s\n", titleStyle.Render("Label text"))
		fmt.Fprintf(w, "  %s\n", dimStyle.Render(wordWrap(text, 72, "  ")))
	}
	fmt.Fprintln(w)
}

// PrintResultJSON renders a detection result as JSON.
func PrintResultJSON(w io.Writer, res detect.Result) error {
	return json.NewEncoder(w).Encode(ToResultJSON(res))
}

// PrintSection renders the located ingredients section.
func PrintSection(w io.Writer, section string, found bool) {
	if !found {
		fmt.Fprintf(w, "%s\n", dimStyle.Render("No ingredients heading found; showing the full text."))
	}
	fmt.Fprintln(w, section)
}

// PrintSectionJSON renders the located section as JSON.
func PrintSectionJSON(w io.Writer, section string, found bool) error {
	return json.NewEncoder(w).Encode(SectionJSON{Found: found, Section: section})
}

// PrintRules renders a rule table.
func PrintRules(w io.Writer, rules []detect.Rule, extended bool) {
	set := "default"
	if extended {
		set = "extended"
	}
	fmt.Fprintf(w, "\n%s — %s\n\n",
		headerStyle.Render("BHT detection rules"),
		cyanStyle.Render(fmt.Sprintf("%s set, %d rules", set, len(rules))),
	)
	for _, r := range rules {
		fmt.Fprintf(w, "  %s  %s\n", titleStyle.Render(r.Name), dimStyle.Render(fmt.Sprintf("[%s → %s]", r.Category, r.Category.Tier())))
		fmt.Fprintf(w, "    %s\n", r.Expr)
	}
	fmt.Fprintln(w)
}

// PrintRulesJSON renders a rule table as JSON.
func PrintRulesJSON(w io.Writer, rules []detect.Rule) error {
	out := make([]RuleJSON, 0, len(rules))
	for _, r := range rules {
		out = append(out, RuleJSON{
			Name:     r.Name,
			Category: r.Category.String(),
			Tier:     string(r.Category.Tier()),
			Pattern:  r.Expr,
		})
	}
	return json.NewEncoder(w).Encode(out)
}

// PrintHistory renders a list of history entries.
func PrintHistory(w io.Writer, entries []history.Entry) {
	fmt.Fprintf(w, "\n%s — %s\n\n",
		headerStyle.Render("Scan history"),
		cyanStyle.Render(fmt.Sprintf("%d entries", len(entries))),
	)
	for _, e := range entries {
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			cyanStyle.Render(history.ShortID(e.ID)),
			dimStyle.Render(e.CreatedAt.Local().Format("2006-01-02 15:04")),
			verdictTag(e.ContainsBHT),
			confidenceLabel(detect.Confidence(e.Confidence)),
		)
		meta := e.Source
		if e.Name != "" {
			meta = e.Name + " (" + e.Source + ")"
		}
		if len(e.Matches) > 0 {
			meta += " | " + strings.Join(e.Matches, ", ")
		}
		fmt.Fprintf(w, "    %s\n", dimStyle.Render(meta))
	}
	fmt.Fprintln(w)
}

// PrintHistoryJSON renders history entries as JSON.
func PrintHistoryJSON(w io.Writer, entries []history.Entry) error {
	out := make([]EntryJSON, 0, len(entries))
	for _, e := range entries {
		j := toEntryJSON(e)
		j.Excerpt = ""
		out = append(out, j)
	}
	return json.NewEncoder(w).Encode(out)
}

// PrintEntry renders one history entry in full.
func PrintEntry(w io.Writer, e history.Entry) {
	fmt.Fprintf(w, "\n%s  %s  %s\n", titleStyle.Render(e.ID), verdictTag(e.ContainsBHT), confidenceLabel(detect.Confidence(e.Confidence)))
	fmt.Fprintf(w, "  %s %s\n", titleStyle.Render("Scanned:"), e.CreatedAt.Local().Format(time.RFC1123))
	source := e.Source
	if e.Name != "" {
		source = e.Name + " (" + e.Source + ")"
	}
	fmt.Fprintf(w, "  %s %s\n", titleStyle.Render("Source:"), source)
	if len(e.Matches) > 0 {
		fmt.Fprintf(w, "  %s %s\n", titleStyle.Render("Found:"), matchStyle.Render(strings.Join(e.Matches, ", ")))
	}
	if text := strings.TrimSpace(e.Excerpt); text != "" {
		fmt.Fprintf(w, "\n  %s\n", dimStyle.Render(wordWrap(text, 72, "  ")))
	}
	fmt.Fprintln(w)
}

// PrintEntryJSON renders one history entry as JSON.
func PrintEntryJSON(w io.Writer, e history.Entry) error {
	return json.NewEncoder(w).Encode(toEntryJSON(e))
}

// PrintStats renders history statistics.
func PrintStats(w io.Writer, st history.Stats) {
	fmt.Fprintf(w, "\n%s\n\n", headerStyle.Render("Scan statistics"))
	fmt.Fprintf(w, "  %s %d\n", titleStyle.Render("Total scans: "), st.Total)
	fmt.Fprintf(w, "  %s %s\n", titleStyle.Render("Contains BHT:"), alertTag.Render(fmt.Sprintf("%d (%d%%)", st.WithBHT, st.Percentage)))
	fmt.Fprintf(w, "  %s %s\n\n", titleStyle.Render("BHT-free:    "), safeTag.Render(fmt.Sprintf("%d", st.WithoutBHT)))
}

// PrintStatsJSON renders history statistics as JSON.
func PrintStatsJSON(w io.Writer, st history.Stats) error {
	return json.NewEncoder(w).Encode(st)
}

// PrintBatch renders ranked batch results.
func PrintBatch(w io.Writer, items []BatchItem, skipped []string) {
	flagged := 0
	for _, it := range items {
		if it.Result.ContainsBHT {
			flagged++
		}
	}
	fmt.Fprintf(w, "\n%s — %s\n\n",
		headerStyle.Render("Batch check"),
		cyanStyle.Render(fmt.Sprintf("%d of %d label(s) contain BHT", flagged, len(items))),
	)
	for _, it := range items {
		fmt.Fprintf(w, "%d. %s  %s  %s\n", it.Rank, titleStyle.Render(it.Name), verdictTag(it.Result.ContainsBHT), confidenceLabel(it.Result.Confidence))
		if len(it.Result.Matches) > 0 {
			fmt.Fprintf(w, "   %s\n", matchStyle.Render(strings.Join(it.Result.Matches, ", ")))
		}
	}
	if len(skipped) > 0 {
		fmt.Fprintf(w, "\n%s\n", warningStyle.Render(fmt.Sprintf("note: skipped %d unreadable file(s): %s", len(skipped), strings.Join(skipped, ", "))))
	}
	fmt.Fprintln(w)
}

// PrintBatchJSON renders batch results as JSON.
func PrintBatchJSON(w io.Writer, items []BatchItem, skipped []string) error {
	out := BatchJSON{Results: make([]BatchItemJSON, 0, len(items)), Skipped: skipped}
	if out.Skipped == nil {
		out.Skipped = []string{}
	}
	for _, it := range items {
		matches := it.Result.Matches
		if matches == nil {
			matches = []string{}
		}
		out.Results = append(out.Results, BatchItemJSON{
			Rank:        it.Rank,
			Name:        it.Name,
			ContainsBHT: it.Result.ContainsBHT,
			Confidence:  string(it.Result.Confidence),
			Matches:     matches,
		})
	}
	return json.NewEncoder(w).Encode(out)
}

// PrintSaved prints a dim line naming the history entry a scan was saved as.
func PrintSaved(w io.Writer, e history.Entry) {
	fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("Saved to history as %s", history.ShortID(e.ID))))
}

// PrintError prints a styled error message.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render(msg))
}

// PrintWarning prints a styled warning message.
func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warningStyle.Render(msg))
}

// VerdictText is the plain verdict label.
func VerdictText(containsBHT bool) string {
	if containsBHT {
		return "CONTAINS BHT"
	}
	return "BHT-FREE"
}

func verdictTag(containsBHT bool) string {
	if containsBHT {
		return alertTag.Render(VerdictText(true))
	}
	return safeTag.Render(VerdictText(false))
}

func confidenceLabel(c detect.Confidence) string {
	return dimStyle.Render(fmt.Sprintf("(%s confidence)", c))
}

func toEntryJSON(e history.Entry) EntryJSON {
	matches := e.Matches
	if matches == nil {
		matches = []string{}
	}
	return EntryJSON{
		ID:          e.ID,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
		Source:      e.Source,
		Name:        e.Name,
		ContainsBHT: e.ContainsBHT,
		Confidence:  e.Confidence,
		Matches:     matches,
		Excerpt:     e.Excerpt,
	}
}

func wordWrap(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n"+indent)
}
