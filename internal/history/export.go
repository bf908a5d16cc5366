package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is the exported form of the history.
type Report struct {
	ExportedAt time.Time `json:"exportedAt" yaml:"exportedAt"`
	Stats      Stats     `json:"stats" yaml:"stats"`
	Entries    []Entry   `json:"entries" yaml:"entries"`
}

// NewReport wraps entries with their summary.
func NewReport(entries []Entry, now time.Time) Report {
	if entries == nil {
		entries = []Entry{}
	}
	return Report{ExportedAt: now.UTC(), Stats: StatsOf(entries), Entries: entries}
}

// Export writes the report to w in the given format.
func Export(w io.Writer, r Report, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "", FormatText, "txt":
		return exportText(w, r)
	default:
		return fmt.Errorf("unknown export format %q (want text, json, or yaml)", format)
	}
}

func exportText(w io.Writer, r Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "BHT scan history (exported %s)\n", r.ExportedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total scans: %d\n", r.Stats.Total)
	fmt.Fprintf(&b, "Contains BHT: %d (%d%%)\n", r.Stats.WithBHT, r.Stats.Percentage)
	fmt.Fprintf(&b, "BHT-free: %d\n", r.Stats.WithoutBHT)

	for i, e := range r.Entries {
		b.WriteString("\n")
		verdict := "BHT-free"
		if e.ContainsBHT {
			verdict = "CONTAINS BHT"
		}
		fmt.Fprintf(&b, "%d. %s  %s  [%s, %s confidence]\n",
			i+1, e.CreatedAt.UTC().Format("2006-01-02 15:04"), ShortID(e.ID), verdict, e.Confidence)
		if e.Name != "" {
			fmt.Fprintf(&b, "   Source: %s (%s)\n", e.Name, e.Source)
		} else {
			fmt.Fprintf(&b, "   Source: %s\n", e.Source)
		}
		if len(e.Matches) > 0 {
			fmt.Fprintf(&b, "   Matches: %s\n", strings.Join(e.Matches, ", "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ShortID returns the display prefix of an entry ID.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
