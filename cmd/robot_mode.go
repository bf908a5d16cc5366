package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/tayloree/bhtscan/internal/history"
	"github.com/tayloree/bhtscan/internal/ocr"
	"github.com/tayloree/bhtscan/internal/source"
	"golang.org/x/term"
)

// Exit codes are part of the scripting contract; do not renumber.
const (
	ExitSuccess     = 0
	ExitNotFound    = 1
	ExitInvalidArgs = 2
	ExitUpstream    = 3
	ExitInternal    = 4
	// ExitDetected is returned with --fail-on-bht when BHT was found.
	ExitDetected = 5
)

const (
	codeInvalidArgs = "INVALID_ARGS"
	codeNotFound    = "NOT_FOUND"
	codeUpstream    = "UPSTREAM_ERROR"
	codeInternal    = "INTERNAL_ERROR"
	codeDetected    = "BHT_DETECTED"
)

var exitCodes = map[string]int{
	codeInvalidArgs: ExitInvalidArgs,
	codeNotFound:    ExitNotFound,
	codeUpstream:    ExitUpstream,
	codeInternal:    ExitInternal,
	codeDetected:    ExitDetected,
}

const (
	manualTextSuggestion = `Type the ingredients instead: bhtscan "Ingredients: ..."`
	helpSuggestion       = "Run `bhtscan --help` for usage details."
	retrySuggestion      = "Retry in a moment."
)

// cliError is what every command failure becomes before it reaches the
// user, in text or as {"error": {...}} JSON.
type cliError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	ExitCode    int      `json:"exitCode"`
}

func (e *cliError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func newCLIError(code, message string, suggestions ...string) *cliError {
	return &cliError{Code: code, Message: message, Suggestions: suggestions, ExitCode: exitCodes[code]}
}

func invalidArgsError(message string, suggestions ...string) error {
	return newCLIError(codeInvalidArgs, message, suggestions...)
}

func notFoundError(message string, suggestions ...string) error {
	return newCLIError(codeNotFound, message, suggestions...)
}

func upstreamError(action string, err error) error {
	return newCLIError(codeUpstream, fmt.Sprintf("%s: %v", action, err), retrySuggestion, manualTextSuggestion)
}

func internalError(action string, err error) error {
	return newCLIError(codeInternal, fmt.Sprintf("%s: %v", action, err), helpSuggestion)
}

func detectedError(matches []string) error {
	return newCLIError(codeDetected, "BHT detected: "+strings.Join(matches, ", "))
}

func printCLIErrorJSON(w io.Writer, err *cliError) error {
	if err == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(struct {
		Error *cliError `json:"error"`
	}{err})
}

func formatCLIErrorText(err *cliError) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error[%s]: %s", strings.ToLower(err.Code), err.Message)
	if len(err.Suggestions) > 0 {
		b.WriteString("\nsuggestions:")
		for _, s := range err.Suggestions {
			b.WriteString("\n  " + s)
		}
	}
	return b.String()
}

// sentinelErrors maps the errors internal packages export onto CLI errors.
var sentinelErrors = []struct {
	target      error
	code        string
	suggestions []string
}{
	{source.ErrEmpty, codeInvalidArgs, []string{`bhtscan "Ingredients: flour, salt, BHT"`, "bhtscan --file label.txt"}},
	{history.ErrNotFound, codeNotFound, []string{"bhtscan history list"}},
	{history.ErrAmbiguousID, codeInvalidArgs, []string{"Use more characters of the id shown by `bhtscan history list`."}},
	{ocr.ErrNoText, codeNotFound, []string{"Retake the photo with the ingredients in focus.", manualTextSuggestion}},
	{ocr.ErrMissingAPIKey, codeInvalidArgs, []string{
		"export GOOGLE_VISION_API_KEY=...",
		"Set ocr.api_key in ~/.bhtscan/config.yaml.",
		manualTextSuggestion,
	}},
}

// usageMarkers are fragments of cobra's argument validation errors.
var usageMarkers = []string{
	"requires an argument for flag",
	"flag needs an argument",
	"required flag(s)",
	"accepts ",
	"requires at least",
	"invalid argument",
}

var upstreamMarkers = []string{"unexpected status", "vision api error", "detecting text"}

func classifyCLIError(err error) *cliError {
	if err == nil {
		return nil
	}

	var typed *cliError
	if errors.As(err, &typed) {
		return typed
	}

	msg := strings.TrimSpace(err.Error())
	for _, s := range sentinelErrors {
		if errors.Is(err, s.target) {
			return newCLIError(s.code, msg, s.suggestions...)
		}
	}

	switch {
	case strings.Contains(msg, "unknown command"):
		suggestions := []string{`bhtscan check "Ingredients: flour, BHT"`, "bhtscan history list"}
		if cmd, ok := closestMatch(strings.ToLower(unknownToken(msg)), knownCommands, 2); ok {
			suggestions = append([]string{fmt.Sprintf("Did you mean `%s`?", cmd)}, suggestions...)
		}
		return newCLIError(codeInvalidArgs, msg, suggestions...)
	case strings.Contains(msg, "unknown flag"):
		suggestions := []string{"bhtscan --file label.txt", `bhtscan --section --extended "Ingredientes: ..."`}
		if bad := strings.TrimLeft(unknownToken(msg), "-"); bad != "" {
			if name, ok := resolveFlagName(bad); ok {
				suggestions = append([]string{fmt.Sprintf("Try `--%s`.", name)}, suggestions...)
			}
		}
		return newCLIError(codeInvalidArgs, msg, suggestions...)
	case containsAny(msg, usageMarkers):
		return newCLIError(codeInvalidArgs, msg, "bhtscan --help")
	case containsAny(strings.ToLower(msg), upstreamMarkers):
		return newCLIError(codeUpstream, msg, retrySuggestion, manualTextSuggestion)
	default:
		return newCLIError(codeInternal, msg, helpSuggestion)
	}
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func isTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// isPiped reports whether r carries input that was not typed at a terminal.
func isPiped(r io.Reader) bool {
	if r == nil {
		return false
	}
	file, ok := r.(*os.File)
	if !ok {
		return true
	}
	if term.IsTerminal(int(file.Fd())) {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// beforeDoubleDash returns the args that cobra still parses as flags.
func beforeDoubleDash(args []string) []string {
	for i, arg := range args {
		if arg == "--" {
			return args[:i]
		}
	}
	return args
}

func hasJSONPreference(args []string) bool {
	for _, arg := range beforeDoubleDash(args) {
		if arg == "--json" || strings.HasPrefix(arg, "--json=") {
			return true
		}
	}
	return false
}

func hasHelpRequest(args []string) bool {
	flags := beforeDoubleDash(args)
	return slices.Contains(flags, "-h") || slices.Contains(flags, "--help")
}

// shouldAutoJSON decides whether piped output switches to JSON. Commands
// that print scripts, run servers, or pick their own format are left alone.
func shouldAutoJSON(args []string, stdoutIsTTY bool) bool {
	if stdoutIsTTY || len(args) == 0 || hasJSONPreference(args) || hasHelpRequest(args) {
		return false
	}
	switch firstCommand(args) {
	case "completion", "help", "serve", "tui":
		return false
	case "history":
		return secondCommand(args) != "export"
	default:
		return true
	}
}

// knownShorthands maps single-character shorthands to whether they take a
// value.
var knownShorthands = map[byte]bool{
	'f': true,  // --file
	'c': true,  // --config
	'q': true,  // --query
	'n': true,  // --limit
	'o': true,  // --output
	's': false, // --section
	'x': false, // --extended
	'v': false, // --verbose
}

func firstCommand(args []string) string {
	if cmds := positionalTokens(args, 1); len(cmds) > 0 {
		return cmds[0]
	}
	return ""
}

func secondCommand(args []string) string {
	if cmds := positionalTokens(args, 2); len(cmds) > 1 {
		return cmds[1]
	}
	return ""
}

// positionalTokens returns up to limit non-flag args, skipping flag values.
func positionalTokens(args []string, limit int) []string {
	out := make([]string, 0, limit)
	flags := beforeDoubleDash(args)
	for i := 0; i < len(flags) && len(out) < limit; i++ {
		arg := flags[i]
		switch {
		case !strings.HasPrefix(arg, "-"):
			out = append(out, arg)
		case strings.HasPrefix(arg, "--"):
			name, rest := splitFlag(arg[2:])
			if knownFlags[name].requiresValue && rest == "" {
				i++
			}
		case len(arg) == 2 && knownShorthands[arg[1]]:
			i++
		}
	}
	return out
}

type quickStartJSON struct {
	Name     string   `json:"name"`
	Usage    string   `json:"usage"`
	Examples []string `json:"examples"`
}

func printQuickStart(w io.Writer, asJSON bool) error {
	help := quickStartJSON{
		Name:  "bhtscan",
		Usage: "bhtscan [TEXT...] [flags] | [scan|section|batch|history|serve] [args] [flags]",
		Examples: []string{
			`bhtscan "Ingredients: wheat flour, salt, BHT"`,
			"bhtscan scan label.jpg --section --save",
			"bhtscan history list --verdict with-bht",
		},
	}
	if asJSON {
		return json.NewEncoder(w).Encode(help)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nusage: %s\nexamples:\n", help.Name, help.Usage)
	for _, ex := range help.Examples {
		fmt.Fprintf(&b, "  %s\n", ex)
	}
	b.WriteString("flags: --file --section --extended --save --fail-on-bht --json --config --verbose\n")
	_, err := io.WriteString(w, b.String())
	return err
}
