package cmd

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/history"
	"golang.org/x/term"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the scan history interactively in the terminal",
	Example: `  bhtscan tui
  bhtscan tui --verdict with-bht`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVar(&flagVerdict, "verdict", string(history.All), "Initial verdict filter: all, with-bht, or without-bht")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	verdict, err := history.ParseVerdict(flagVerdict)
	if err != nil {
		return invalidArgsError(err.Error(), "bhtscan tui --verdict with-bht")
	}

	if flagJSON {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		entries, err := store.List(cmd.Context(), history.Query{Verdict: verdict})
		if err != nil {
			return internalError("listing history", err)
		}
		return display.PrintHistoryJSON(cmd.OutOrStdout(), entries)
	}

	if !isInteractiveSession(cmd.InOrStdin(), cmd.OutOrStdout()) {
		return invalidArgsError(
			"`bhtscan tui` requires an interactive terminal",
			"Use `bhtscan history list --json` in pipelines.",
		)
	}

	model := newLoadingHistoryTUIModel(tuiLoadConfig{
		ctx:         cmd.Context(),
		historyPath: appConfig.History.Path,
		initialOpts: tuiOptions{Verdict: verdict},
	})
	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := program.Run()
	if err != nil {
		return internalError("running tui", err)
	}
	if m, ok := final.(historyTUIModel); ok && m.fatalErr != nil {
		return m.fatalErr
	}
	return nil
}

func isInteractiveSession(stdin io.Reader, stdout io.Writer) bool {
	inputFile, ok := stdin.(*os.File)
	if !ok {
		return false
	}
	if !term.IsTerminal(int(inputFile.Fd())) {
		return false
	}
	return isTTY(stdout)
}
