package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/history"
)

const (
	minTUIWidth  = 80
	minTUIHeight = 20
)

const (
	groupWithBHT    = "Contains BHT"
	groupWithoutBHT = "BHT-free"
)

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	tuiDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tuiAlertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	tuiSafeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	tuiMatchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	tuiPaneStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var (
	paneIdle   = lipgloss.Color("241")
	paneActive = lipgloss.Color("86")
)

// tuiOptions are the inline filters the explorer cycles through.
type tuiOptions struct {
	Verdict    history.Verdict
	Confidence string
}

var (
	verdictCycle    = []history.Verdict{history.All, history.WithBHT, history.WithoutBHT}
	confidenceCycle = []string{"", "high", "medium", "low"}
)

type tuiLoadConfig struct {
	ctx         context.Context
	historyPath string
	initialOpts tuiOptions
}

type tuiDataLoadedMsg struct {
	entries     []history.Entry
	initialOpts tuiOptions
}

type tuiDataLoadErrMsg struct {
	err error
}

type tuiPane int

const (
	paneList tuiPane = iota
	paneDetail
)

// tuiGroupItem is a non-selectable-looking header row for one verdict.
type tuiGroupItem struct {
	name  string
	count int
}

func (g tuiGroupItem) FilterValue() string { return "" }
func (g tuiGroupItem) Title() string       { return "── " + g.name + " ──" }
func (g tuiGroupItem) Description() string { return fmt.Sprintf("%d scan(s)", g.count) }

type tuiEntryItem struct {
	entry  history.Entry
	group  string
	title  string
	desc   string
	search string
}

func (e tuiEntryItem) FilterValue() string { return e.search }
func (e tuiEntryItem) Title() string       { return e.title }
func (e tuiEntryItem) Description() string { return e.desc }

type historyTUIModel struct {
	loading  bool
	spinner  spinner.Model
	load     tea.Cmd
	fatalErr error

	entries []history.Entry
	opts    tuiOptions
	initial tuiOptions

	list   list.Model
	detail viewport.Model
	pane   tuiPane
	help   bool

	selectedID string
	visible    int

	width, height int
	listWidth     int
	detailWidth   int
	paneHeight    int
}

func newLoadingHistoryTUIModel(cfg tuiLoadConfig) historyTUIModel {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	lst := list.New(nil, delegate, 0, 0)
	lst.Title = "Scans"
	lst.SetShowHelp(false)
	lst.SetStatusBarItemName("row", "rows")
	lst.DisableQuitKeybindings()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = tuiTitleStyle

	return historyTUIModel{
		loading: true,
		spinner: spin,
		load:    loadTUIDataCmd(cfg),
		opts:    cfg.initialOpts,
		initial: cfg.initialOpts,
		list:    lst,
		detail:  viewport.New(0, 0),
	}
}

func loadTUIDataCmd(cfg tuiLoadConfig) tea.Cmd {
	return func() tea.Msg {
		store, err := history.Open(cfg.historyPath)
		if err != nil {
			return tuiDataLoadErrMsg{err: internalError("opening history", err)}
		}
		defer store.Close()

		entries, err := store.List(cfg.ctx, history.Query{})
		if err != nil {
			return tuiDataLoadErrMsg{err: internalError("listing history", err)}
		}
		if len(entries) == 0 {
			return tuiDataLoadErrMsg{err: notFoundError(
				"no saved scans yet",
				"Save one with `bhtscan --save \"Ingredients: ...\"`.",
			)}
		}
		return tuiDataLoadedMsg{entries: entries, initialOpts: cfg.initialOpts}
	}
}

func (m historyTUIModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load)
}

func (m historyTUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil
	case tuiDataLoadedMsg:
		m.loading = false
		m.entries = msg.entries
		m.initial = normalizeTUIOptions(msg.initialOpts)
		m.opts = m.initial
		m.rebuild(true)
		m.layout()
		return m, nil
	case tuiDataLoadErrMsg:
		m.loading = false
		m.fatalErr = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}

	if m.loading {
		return m, nil
	}
	if _, isKey := msg.(tea.KeyMsg); isKey && m.pane == paneDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.syncDetail(false)
	return m, cmd
}

// handleKey consumes the explorer's own shortcuts. Keys it does not handle
// fall through to the focused pane.
func (m historyTUIModel) handleKey(msg tea.KeyMsg) (historyTUIModel, tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit, true
	}
	if m.loading {
		if key == "q" {
			return m, tea.Quit, true
		}
		return m, nil, true
	}
	if m.list.FilterState() == list.Filtering {
		return m, nil, false
	}

	switch key {
	case "q":
		return m, tea.Quit, true
	case "tab":
		if m.pane == paneList {
			m.pane = paneDetail
		} else {
			m.pane = paneList
		}
	case "esc":
		if m.pane != paneDetail {
			return m, nil, false
		}
		m.pane = paneList
	case "?":
		m.help = !m.help
		m.layout()
	case "v":
		m.opts.Verdict = nextVerdict(m.opts.Verdict)
		m.rebuild(false)
	case "c":
		m.opts.Confidence = nextConfidence(m.opts.Confidence)
		m.rebuild(false)
	case "r":
		m.opts = m.initial
		m.rebuild(false)
	case "g":
		if m.list.IsFiltered() {
			return m, m.list.NewStatusMessage("Clear the fuzzy filter to switch groups."), true
		}
		m.toggleGroup()
	default:
		return m, nil, false
	}
	return m, nil, true
}

func normalizeTUIOptions(opts tuiOptions) tuiOptions {
	if opts.Verdict == "" {
		opts.Verdict = history.All
	}
	opts.Confidence = strings.ToLower(opts.Confidence)
	return opts
}

func nextVerdict(v history.Verdict) history.Verdict {
	for i, candidate := range verdictCycle {
		if candidate == v {
			return verdictCycle[(i+1)%len(verdictCycle)]
		}
	}
	return verdictCycle[0]
}

func nextConfidence(c string) string {
	for i, candidate := range confidenceCycle {
		if candidate == c {
			return confidenceCycle[(i+1)%len(confidenceCycle)]
		}
	}
	return confidenceCycle[0]
}

func (m historyTUIModel) View() string {
	switch {
	case m.loading:
		return lipgloss.NewStyle().Padding(1, 2).Render(
			tuiTitleStyle.Render("bhtscan tui") + "\n\n" +
				m.spinner.View() + " Reading scan history..." + "\n" +
				tuiKeyStyle.Render("q to cancel"),
		)
	case m.width == 0:
		return ""
	case m.width < minTUIWidth || m.height < minTUIHeight:
		return lipgloss.NewStyle().Padding(1, 2).Render(fmt.Sprintf(
			"Window is %dx%d; the history explorer needs at least %dx%d.",
			m.width, m.height, minTUIWidth, minTUIHeight,
		))
	}

	listPane := tuiPaneStyle.BorderForeground(paneIdle)
	detailPane := tuiPaneStyle.BorderForeground(paneIdle)
	if m.pane == paneList {
		listPane = listPane.BorderForeground(paneActive)
	} else {
		detailPane = detailPane.BorderForeground(paneActive)
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listPane.Width(m.listWidth).Height(m.paneHeight).Render(m.list.View()),
		detailPane.Width(m.detailWidth).Height(m.paneHeight).Render(m.detail.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, m.statusLine(), body, m.keyLine())
}

func (m historyTUIModel) statusLine() string {
	st := history.StatsOf(m.entries)
	return " " + tuiTitleStyle.Render(fmt.Sprintf("bhtscan • %d scans • %d%% contain BHT", st.Total, st.Percentage)) +
		"  " + tuiDimStyle.Render(fmt.Sprintf("showing %d • filters: %s", m.visible, m.filterSummary()))
}

func (m historyTUIModel) keyLine() string {
	keys := "tab pane • / search • v verdict • c confidence • g next group • r reset • ? keys • q quit"
	if m.help {
		keys = "list: ↑/↓ move, / fuzzy search over names and matches, g jump between verdict groups\n" +
			"detail: ↑/↓ scroll, pgup/pgdown page, esc back to list\n" +
			"filters: v cycles all → with-bht → without-bht, c cycles confidence, r restores the start filters"
	}
	return " " + tuiKeyStyle.Render(keys)
}

func (m *historyTUIModel) layout() {
	if m.loading || m.width < minTUIWidth || m.height < minTUIHeight {
		return
	}
	footer := 1
	if m.help {
		footer = 3
	}
	// One status row above the panes; each pane adds two border rows.
	m.paneHeight = m.height - 1 - footer - 2
	m.listWidth = m.width*2/5 - 2
	m.detailWidth = m.width - m.listWidth - 4 - 2

	m.list.SetSize(m.listWidth-2, m.paneHeight)
	m.detail.Width = m.detailWidth - 2
	m.detail.Height = m.paneHeight
	m.syncDetail(false)
}

func (m historyTUIModel) filterSummary() string {
	var parts []string
	if m.opts.Verdict != history.All {
		parts = append(parts, string(m.opts.Verdict))
	}
	if m.opts.Confidence != "" {
		parts = append(parts, m.opts.Confidence+" confidence")
	}
	if q := strings.TrimSpace(m.list.FilterValue()); q != "" {
		parts = append(parts, fmt.Sprintf("%q", q))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func filterEntries(entries []history.Entry, opts tuiOptions) []history.Entry {
	out := make([]history.Entry, 0, len(entries))
	for _, e := range entries {
		if opts.Verdict == history.WithBHT && !e.ContainsBHT {
			continue
		}
		if opts.Verdict == history.WithoutBHT && e.ContainsBHT {
			continue
		}
		if opts.Confidence != "" && e.Confidence != opts.Confidence {
			continue
		}
		out = append(out, e)
	}
	return out
}

// rebuild reapplies the inline filters and keeps the current scan selected
// when it is still visible.
func (m *historyTUIModel) rebuild(fresh bool) {
	keep := m.selectedID
	shown := filterEntries(m.entries, m.opts)
	m.visible = len(shown)

	items := buildGroupedListItems(shown)
	m.list.SetItems(items)

	target := -1
	if !fresh {
		target = indexOfItem(items, keep)
	}
	if target < 0 {
		target = nextEntryIndex(items, 0)
	}
	if target >= 0 {
		m.list.Select(target)
	}
	m.syncDetail(true)
}

func (m *historyTUIModel) syncDetail(top bool) {
	id := ""
	content := "Nothing matches these filters. Press r to reset."
	switch item := m.list.SelectedItem().(type) {
	case tuiEntryItem:
		id = itemKey(item)
		content = renderEntryDetailContent(item.entry, m.detail.Width)
	case tuiGroupItem:
		id = itemKey(item)
		content = tuiTitleStyle.Render(item.name) + "\n" +
			tuiDimStyle.Render(fmt.Sprintf("%d scan(s); press g for the other group.", item.count))
	}
	if top || id != m.selectedID {
		m.detail.GotoTop()
	}
	m.selectedID = id
	m.detail.SetContent(content)
}

// toggleGroup moves the cursor to the first scan of the next verdict group.
func (m *historyTUIModel) toggleGroup() {
	items := m.list.Items()
	cursor := m.list.Index()
	for i := cursor + 1; i < len(items); i++ {
		if _, ok := items[i].(tuiGroupItem); ok {
			m.selectEntryFrom(items, i)
			return
		}
	}
	m.selectEntryFrom(items, 0)
}

func (m *historyTUIModel) selectEntryFrom(items []list.Item, start int) {
	if idx := nextEntryIndex(items, start); idx >= 0 {
		m.list.Select(idx)
		m.syncDetail(true)
	}
}

// buildGroupedListItems puts BHT-positive scans first, each group keeping
// the input order (newest first), under a header row.
func buildGroupedListItems(entries []history.Entry) []list.Item {
	var positive, negative []list.Item
	for _, e := range entries {
		if e.ContainsBHT {
			positive = append(positive, buildTUIEntryItem(e, groupWithBHT))
		} else {
			negative = append(negative, buildTUIEntryItem(e, groupWithoutBHT))
		}
	}

	items := make([]list.Item, 0, len(entries)+2)
	if len(positive) > 0 {
		items = append(items, tuiGroupItem{name: groupWithBHT, count: len(positive)})
		items = append(items, positive...)
	}
	if len(negative) > 0 {
		items = append(items, tuiGroupItem{name: groupWithoutBHT, count: len(negative)})
		items = append(items, negative...)
	}
	return items
}

func buildTUIEntryItem(e history.Entry, group string) tuiEntryItem {
	label := e.Name
	if label == "" {
		label = e.Source
	}
	found := "no matches"
	if len(e.Matches) > 0 {
		found = strings.Join(e.Matches, ", ")
	}
	return tuiEntryItem{
		entry:  e,
		group:  group,
		title:  e.CreatedAt.Local().Format("Jan 02 15:04") + "  " + label,
		desc:   e.Confidence + " • " + found,
		search: strings.ToLower(strings.Join([]string{e.ID, e.Source, e.Name, e.Confidence, strings.Join(e.Matches, " ")}, " ")),
	}
}

func renderEntryDetailContent(e history.Entry, width int) string {
	width = max(20, width)

	verdict := tuiSafeStyle.Render(display.VerdictText(false))
	if e.ContainsBHT {
		verdict = tuiAlertStyle.Render(display.VerdictText(true))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", verdict, tuiDimStyle.Render(e.Confidence+" confidence"))
	fmt.Fprintf(&b, "%s\n\n", tuiDimStyle.Render(e.CreatedAt.Local().Format("Mon Jan 2 2006 15:04")))
	fmt.Fprintf(&b, "Source  %s\n", e.Source)
	if e.Name != "" {
		fmt.Fprintf(&b, "Name    %s\n", e.Name)
	}
	if len(e.Matches) > 0 {
		fmt.Fprintf(&b, "Found   %s\n", tuiMatchStyle.Render(strings.Join(e.Matches, ", ")))
	}

	excerpt := strings.TrimSpace(e.Excerpt)
	if excerpt == "" {
		excerpt = "No label text saved."
	}
	fmt.Fprintf(&b, "\n%s\n%s\n\n", tuiDimStyle.Render("Label text"), wrapText(excerpt, width))
	b.WriteString(tuiDimStyle.Render("id " + e.ID))
	return b.String()
}

// wrapText greedily wraps on spaces; words longer than width stay whole.
func wrapText(text string, width int) string {
	var b strings.Builder
	col := 0
	for _, word := range strings.Fields(text) {
		switch {
		case col == 0:
		case col+1+len(word) > width:
			b.WriteByte('\n')
			col = 0
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(word)
		col += len(word)
	}
	return b.String()
}

func indexOfItem(items []list.Item, key string) int {
	if key == "" {
		return -1
	}
	for i, item := range items {
		if itemKey(item) == key {
			return i
		}
	}
	return -1
}

func nextEntryIndex(items []list.Item, start int) int {
	for i := start; i < len(items); i++ {
		if _, ok := items[i].(tuiEntryItem); ok {
			return i
		}
	}
	return -1
}

func itemKey(item list.Item) string {
	switch v := item.(type) {
	case tuiEntryItem:
		return "scan:" + v.entry.ID
	case tuiGroupItem:
		return "group:" + v.name
	}
	return ""
}
