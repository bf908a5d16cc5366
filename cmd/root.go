package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tayloree/bhtscan/internal/config"
	"github.com/tayloree/bhtscan/internal/detect"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/history"
	"github.com/tayloree/bhtscan/internal/label"
	"github.com/tayloree/bhtscan/internal/source"
)

var (
	flagJSON      bool
	flagConfig    string
	flagVerbose   bool
	flagSection   bool
	flagExtended  bool
	flagSave      bool
	flagFailOnBHT bool
	flagFile      string
)

// Resolved once per invocation in PersistentPreRunE.
var (
	appConfig *config.Config
	appLevel  = slog.LevelWarn
	appLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "bhtscan [TEXT...]",
	Short: "Check food label text for the preservative BHT",
	Long: "CLI tool that checks ingredient lists for BHT (butylated hydroxytoluene, E320)\n" +
		"and reports a high/medium/low confidence verdict.\n" +
		"Label text comes from arguments, --file (text or PDF), stdin, or `bhtscan scan IMAGE`.\n\n" +
		"Agent-friendly mode: minor syntax issues are auto-corrected when intent is clear " +
		"(for example: -file label.txt, --secton, histry list).",
	Example: `  bhtscan "Ingredients: wheat flour, salt, BHT (preservative)"
  bhtscan --file label.pdf --section
  cat label.txt | bhtscan --json
  bhtscan scan label.jpg --save
  bhtscan history stats`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadRuntime,
	RunE:              runCheck,
}

var checkCmd = &cobra.Command{
	Use:   "check [TEXT...]",
	Short: "Check label text for BHT",
	Example: `  bhtscan check "Ingredientes: farinha de trigo, BHT"
  bhtscan check --file label.txt --fail-on-bht`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagJSON, "json", false, "Output as JSON")
	pf.StringVarP(&flagConfig, "config", "c", "", "Config file (default ./bhtscan.yaml or ~/.bhtscan/config.yaml)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug details to stderr")
	pf.BoolVarP(&flagSection, "section", "s", false, "Only check the text from the ingredients heading on")
	pf.BoolVarP(&flagExtended, "extended", "x", false, "Also match Portuguese names and INS/antioxidant codes")
	pf.BoolVar(&flagSave, "save", false, "Save the result to the scan history")
	pf.BoolVar(&flagFailOnBHT, "fail-on-bht", false, "Exit with code 5 when BHT is detected")

	registerFileFlag(rootCmd.Flags())
	registerFileFlag(checkCmd.Flags())
	rootCmd.AddCommand(checkCmd)
}

func registerFileFlag(f *pflag.FlagSet) {
	f.StringVarP(&flagFile, "file", "f", "", "Read label text from a .txt or .pdf file")
}

// Execute runs the root command.
func Execute() {
	os.Exit(runCLI(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runCLI(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	resetCLIState()

	normalizedArgs, notes := normalizeCLIArgs(args)
	for _, note := range notes {
		fmt.Fprintf(stderr, "note: %s\n", note)
	}

	if len(normalizedArgs) == 0 && !isPiped(stdin) {
		if err := printQuickStart(stdout, !isTTY(stdout)); err != nil {
			cliErr := classifyCLIError(err)
			fmt.Fprintln(stderr, formatCLIErrorText(cliErr))
			return cliErr.ExitCode
		}
		return ExitSuccess
	}

	if shouldAutoJSON(normalizedArgs, isTTY(stdout)) || (len(normalizedArgs) == 0 && !isTTY(stdout)) {
		normalizedArgs = append(normalizedArgs, "--json")
	}

	rootCmd.SetIn(stdin)
	setCommandIO(rootCmd, stdout, stderr)
	rootCmd.SetArgs(normalizedArgs)

	if err := rootCmd.Execute(); err != nil {
		cliErr := classifyCLIError(err)
		if hasJSONPreference(normalizedArgs) {
			if jerr := printCLIErrorJSON(stderr, cliErr); jerr != nil {
				fmt.Fprintln(stderr, formatCLIErrorText(classifyCLIError(jerr)))
				return ExitInternal
			}
		} else {
			fmt.Fprintln(stderr, formatCLIErrorText(cliErr))
		}
		return cliErr.ExitCode
	}
	return ExitSuccess
}

func setCommandIO(cmd *cobra.Command, stdout, stderr io.Writer) {
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	for _, child := range cmd.Commands() {
		setCommandIO(child, stdout, stderr)
	}
}

func resetCLIState() {
	resetFlags(rootCmd)
	appConfig = nil
	appLevel = slog.LevelWarn
	appLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// resetFlags restores defaults and clears Changed so repeated in-process
// runs do not see earlier values.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func loadRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return invalidArgsError(err.Error(), "bhtscan --config ./bhtscan.yaml", "Check the YAML against `bhtscan --help`.")
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	if flagVerbose {
		level = slog.LevelDebug
	}
	appConfig = cfg
	appLevel = level
	appLogger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if cfg.File != "" {
		appLogger.Debug("loaded config", "file", cfg.File)
	}
	return nil
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

func boolSetting(cmd *cobra.Command, name string, flagValue, configValue bool) bool {
	if flagChanged(cmd, name) {
		return flagValue
	}
	return configValue
}

func activeDetector(cmd *cobra.Command) *detect.Detector {
	if boolSetting(cmd, "extended", flagExtended, appConfig.Detect.Extended) {
		return detect.Extended()
	}
	return detect.Default()
}

func prepareText(cmd *cobra.Command, text string) string {
	if boolSetting(cmd, "section", flagSection, appConfig.Detect.Section) {
		return label.IngredientsSection(text)
	}
	return text
}

func readInput(cmd *cobra.Command, args []string) (source.Input, error) {
	switch {
	case flagFile != "" && len(args) > 0:
		return source.Input{}, invalidArgsError(
			"pass label text or --file, not both",
			"bhtscan --file label.txt",
			`bhtscan "Ingredients: ..."`,
		)
	case flagFile != "":
		in, err := source.FromFile(flagFile)
		if err != nil {
			return source.Input{}, fileInputError(flagFile, err)
		}
		return in, nil
	case len(args) > 0:
		return source.FromArgs(args)
	case isPiped(cmd.InOrStdin()):
		return source.FromReader(cmd.InOrStdin())
	default:
		return source.Input{}, invalidArgsError(
			"no label text provided",
			`bhtscan "Ingredients: wheat flour, salt, BHT"`,
			"bhtscan --file label.txt",
			"cat label.txt | bhtscan",
		)
	}
}

func fileInputError(path string, err error) error {
	switch {
	case errors.Is(err, source.ErrEmpty):
		return invalidArgsError(fmt.Sprintf("%s contains no text", path), "Check the file, or pass the text directly.")
	case errors.Is(err, os.ErrNotExist):
		return invalidArgsError(fmt.Sprintf("file not found: %s", path), "Check the path passed to --file.")
	default:
		return invalidArgsError(err.Error(), "PDFs need a text layer; scanned PDFs should go through `bhtscan scan`.")
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	in, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	return reportInput(cmd, in)
}

// reportInput runs detection, prints the result, and applies --save and
// --fail-on-bht.
func reportInput(cmd *cobra.Command, in source.Input) error {
	res := activeDetector(cmd).Detect(prepareText(cmd, in.Text))
	appLogger.Debug("detection finished",
		"source", in.Kind,
		"name", in.Name,
		"matches", len(res.Matches),
		"confidence", res.Confidence,
	)

	if flagJSON {
		if err := display.PrintResultJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		display.PrintResult(cmd.OutOrStdout(), res)
	}

	if boolSetting(cmd, "save", flagSave, appConfig.History.AutoSave) {
		entry, err := saveResult(cmd, in, res)
		if err != nil {
			return err
		}
		if !flagJSON {
			display.PrintSaved(cmd.OutOrStdout(), entry)
		}
	}

	if flagFailOnBHT && res.ContainsBHT {
		return detectedError(res.Matches)
	}
	return nil
}

func openHistory() (*history.Store, error) {
	store, err := history.Open(appConfig.History.Path)
	if err != nil {
		return nil, internalError("opening history", err)
	}
	return store, nil
}

func saveResult(cmd *cobra.Command, in source.Input, res detect.Result) (history.Entry, error) {
	store, err := openHistory()
	if err != nil {
		return history.Entry{}, err
	}
	defer store.Close()

	entry, err := store.Add(cmd.Context(), history.NewEntry(string(in.Kind), in.Name, res))
	if err != nil {
		return history.Entry{}, internalError("saving history", err)
	}
	appLogger.Debug("saved scan", "id", entry.ID, "path", appConfig.History.Path)
	return entry, nil
}
