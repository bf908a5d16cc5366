package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/history"
)

var (
	flagVerdict string
	flagQuery   string
	flagLimit   int
	flagFormat  string
	flagOutput  string
	flagYes     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse, export, and manage saved scans",
	Long: "Scans are saved with --save (or history.auto_save: true) to a local SQLite database\n" +
		"at history.path (default ~/.bhtscan/history.db).",
	Example: `  bhtscan history list --verdict with-bht
  bhtscan history show 3f2504e0
  bhtscan history stats --json
  bhtscan history export --format yaml -o scans.yaml`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scans, newest first",
	Example: `  bhtscan history list
  bhtscan history list --verdict without-bht --limit 20
  bhtscan history list --query e320`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:     "show ID",
	Short:   "Show one saved scan (an id prefix is enough)",
	Example: `  bhtscan history show 3f2504e0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Short:   "Delete one saved scan",
	Example: `  bhtscan history delete 3f2504e0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Delete every saved scan",
	Example: `  bhtscan history clear --yes`,
	Args:    cobra.NoArgs,
	RunE:    runHistoryClear,
}

var historyStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Summarize saved scans by verdict",
	Example: `  bhtscan history stats`,
	Args:    cobra.NoArgs,
	RunE:    runHistoryStats,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved scans as text, JSON, or YAML",
	Example: `  bhtscan history export
  bhtscan history export --format json --verdict with-bht
  bhtscan history export --format yaml -o scans.yaml`,
	Args: cobra.NoArgs,
	RunE: runHistoryExport,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyClearCmd, historyStatsCmd, historyExportCmd)

	registerHistoryFilterFlags(historyListCmd)
	registerHistoryFilterFlags(historyExportCmd)
	historyListCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "Limit number of results (0 = all)")

	historyExportCmd.Flags().StringVar(&flagFormat, "format", history.FormatText, "Export format: text, json, or yaml")
	historyExportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write to a file instead of stdout")

	historyClearCmd.Flags().BoolVar(&flagYes, "yes", false, "Confirm deleting every saved scan")
}

func registerHistoryFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagVerdict, "verdict", string(history.All), "Filter by verdict: all, with-bht, or without-bht")
	cmd.Flags().StringVarP(&flagQuery, "query", "q", "", "Keep scans with a match containing this text")
}

func historyQuery() (history.Query, error) {
	verdict, err := history.ParseVerdict(flagVerdict)
	if err != nil {
		return history.Query{}, invalidArgsError(err.Error(),
			"bhtscan history list --verdict with-bht",
			"bhtscan history list --verdict without-bht",
		)
	}
	if flagLimit < 0 {
		return history.Query{}, invalidArgsError("--limit must not be negative", "bhtscan history list --limit 10")
	}
	return history.Query{Verdict: verdict, Search: flagQuery, Limit: flagLimit}, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	q, err := historyQuery()
	if err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), q)
	if err != nil {
		return internalError("listing history", err)
	}

	if flagJSON {
		return display.PrintHistoryJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		display.PrintWarning(cmd.OutOrStdout(), "No saved scans match. Save one with `bhtscan --save \"Ingredients: ...\"`.")
		return nil
	}
	display.PrintHistory(cmd.OutOrStdout(), entries)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return historyLookupError(args[0], err)
	}

	if flagJSON {
		return display.PrintEntryJSON(cmd.OutOrStdout(), entry)
	}
	display.PrintEntry(cmd.OutOrStdout(), entry)
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return historyLookupError(args[0], err)
	}
	if err := store.Delete(cmd.Context(), entry.ID); err != nil {
		return internalError("deleting scan", err)
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": entry.ID})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan %s\n", history.ShortID(entry.ID))
	return nil
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	if !flagYes {
		return invalidArgsError("refusing to clear history without --yes", "bhtscan history clear --yes")
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Clear(cmd.Context())
	if err != nil {
		return internalError("clearing history", err)
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d saved scan(s)\n", n)
	return nil
}

func runHistoryStats(cmd *cobra.Command, _ []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(cmd.Context())
	if err != nil {
		return internalError("reading history stats", err)
	}

	if flagJSON {
		return display.PrintStatsJSON(cmd.OutOrStdout(), st)
	}
	display.PrintStats(cmd.OutOrStdout(), st)
	return nil
}

func runHistoryExport(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(strings.TrimSpace(flagFormat))
	switch format {
	case history.FormatText, history.FormatJSON, history.FormatYAML, "txt", "yml":
	default:
		return invalidArgsError(
			fmt.Sprintf("invalid value for --format: %q (use text, json, or yaml)", flagFormat),
			"bhtscan history export --format yaml",
		)
	}
	q, err := historyQuery()
	if err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), q)
	if err != nil {
		return internalError("listing history", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return invalidArgsError(fmt.Sprintf("cannot write %s: %v", flagOutput, err))
		}
		defer f.Close()
		w = f
	}

	if err := history.Export(w, history.NewReport(entries, time.Now()), format); err != nil {
		return internalError("exporting history", err)
	}
	if flagOutput != "" {
		appLogger.Info("exported history", "file", flagOutput, "entries", len(entries))
	}
	return nil
}

func historyLookupError(id string, err error) error {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return notFoundError(fmt.Sprintf("no saved scan with id %q", id), "bhtscan history list")
	case errors.Is(err, history.ErrAmbiguousID):
		return err
	default:
		return internalError("reading history", err)
	}
}

func printJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
