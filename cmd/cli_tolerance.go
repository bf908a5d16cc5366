package cmd

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

type flagSpec struct {
	name          string
	requiresValue bool
}

var knownFlags = map[string]flagSpec{
	"json":        {name: "json"},
	"help":        {name: "help"},
	"file":        {name: "file", requiresValue: true},
	"config":      {name: "config", requiresValue: true},
	"section":     {name: "section"},
	"extended":    {name: "extended"},
	"save":        {name: "save"},
	"fail-on-bht": {name: "fail-on-bht"},
	"verbose":     {name: "verbose"},
	"with-bht":    {name: "with-bht"},
	"verdict":     {name: "verdict", requiresValue: true},
	"query":       {name: "query", requiresValue: true},
	"limit":       {name: "limit", requiresValue: true},
	"format":      {name: "format", requiresValue: true},
	"output":      {name: "output", requiresValue: true},
	"addr":        {name: "addr", requiresValue: true},
	"yes":         {name: "yes"},
}

// flagNames is sorted so typo suggestions are stable on ties.
var flagNames = slices.Sorted(maps.Keys(knownFlags))

var knownCommands = []string{
	"check",
	"section",
	"scan",
	"example",
	"batch",
	"patterns",
	"history",
	"serve",
	"tui",
	"completion",
	"help",
}

var historyCommands = []string{"list", "show", "delete", "clear", "stats", "export"}

var flagAliases = map[string]string{
	"pt":          "extended",
	"portuguese":  "extended",
	"ingredients": "section",
	"fail":        "fail-on-bht",
	"strict":      "fail-on-bht",
	"filter":      "verdict",
	"search":      "query",
	"max":         "limit",
	"out":         "output",
	"listen":      "addr",
	"force":       "yes",
}

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenFlag
	tokenCommand
)

// tokenRewrite is the normalized form of one argument.
type tokenRewrite struct {
	text       string
	kind       tokenKind
	takesValue bool
	note       string
}

// argScanner tracks where in the command line a token sits.
type argScanner struct {
	command    string
	nestedOpen bool
	nestedDone bool
	textSeen   bool
	bareFlags  bool
}

// normalizeCLIArgs fixes common flag and command mistakes when the intent is
// unambiguous, returning the rewritten args and one note per rewrite.
// Values of flags and everything after "--" pass through untouched.
func normalizeCLIArgs(args []string) ([]string, []string) {
	out := make([]string, 0, len(args))
	var notes []string
	var sc argScanner

	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			return append(out, args[i:]...), notes
		}

		if len(tok) == 2 && tok[0] == '-' && tok[1] != '-' {
			out = append(out, tok)
			if knownShorthands[tok[1]] && i+1 < len(args) {
				i++
				out = append(out, args[i])
			}
			continue
		}

		rw := sc.rewrite(tok)
		if rw.note != "" {
			notes = append(notes, rw.note)
		}
		out = append(out, rw.text)
		sc.observe(rw)

		if rw.kind == tokenFlag && rw.takesValue && !strings.Contains(rw.text, "=") && i+1 < len(args) {
			i++
			out = append(out, args[i])
		}
	}
	return out, notes
}

func (s *argScanner) rewrite(tok string) tokenRewrite {
	if rw, ok := rewriteFlagToken(tok); ok {
		return rw
	}
	if strings.HasPrefix(tok, "-") {
		return tokenRewrite{text: tok, kind: tokenText}
	}
	if commands, open := s.commandCandidates(); open {
		if cmd, ok := resolveCommand(tok, commands, s.command == ""); ok {
			return tokenRewrite{text: cmd, kind: tokenCommand, note: rewriteNote("command ", tok, cmd)}
		}
	}
	if s.bareFlags {
		if name, ok := resolveFlagName(tok); ok {
			return flagRewrite(tok, "--"+name, name)
		}
	}
	return tokenRewrite{text: tok, kind: tokenText}
}

// commandCandidates lists the commands the next positional token may name.
func (s *argScanner) commandCandidates() ([]string, bool) {
	switch {
	case s.command == "" && !s.textSeen:
		return knownCommands, true
	case s.nestedOpen && !s.nestedDone:
		return nestedCommands(s.command), true
	default:
		return nil, false
	}
}

func (s *argScanner) observe(rw tokenRewrite) {
	switch {
	case rw.kind == tokenCommand && s.command == "":
		s.command = rw.text
		s.bareFlags = bareFlagRewriteAllowed(rw.text)
		s.nestedOpen = allowsNestedCommandArg(rw.text)
	case rw.kind == tokenCommand:
		s.nestedDone = true
	case rw.kind == tokenText && s.command == "":
		// Label text on the root command; nothing after it is a command.
		s.textSeen = true
	}
}

func rewriteFlagToken(tok string) (tokenRewrite, bool) {
	var body string
	switch {
	case strings.HasPrefix(tok, "--"):
		body = tok[2:]
	case strings.HasPrefix(tok, "-") && len(tok) > 2:
		body = tok[1:]
	case strings.Contains(tok, "="):
		name, rest := splitFlag(tok)
		canonical, ok := resolveFlagName(name)
		if !ok {
			return tokenRewrite{}, false
		}
		return flagRewrite(tok, "--"+canonical+rest, canonical), true
	default:
		return tokenRewrite{}, false
	}

	name, rest := splitFlag(body)
	canonical, ok := resolveFlagName(name)
	if !ok {
		return tokenRewrite{text: tok, kind: tokenFlag}, true
	}
	return flagRewrite(tok, "--"+canonical+rest, canonical), true
}

func flagRewrite(from, to, name string) tokenRewrite {
	return tokenRewrite{
		text:       to,
		kind:       tokenFlag,
		takesValue: knownFlags[name].requiresValue,
		note:       rewriteNote("", from, to),
	}
}

func rewriteNote(what, from, to string) string {
	if from == to {
		return ""
	}
	return fmt.Sprintf("interpreted %s`%s` as `%s`; use `%s` next time.", what, from, to, to)
}

// bareFlagRewriteAllowed reports commands that never take label text, where
// a bare `json` can only mean `--json`.
func bareFlagRewriteAllowed(command string) bool {
	switch command {
	case "patterns", "example", "serve", "tui":
		return true
	default:
		return false
	}
}

func allowsNestedCommandArg(command string) bool {
	switch command {
	case "help", "completion", "history":
		return true
	default:
		return false
	}
}

func nestedCommands(command string) []string {
	switch command {
	case "help":
		return knownCommands
	case "history":
		return historyCommands
	default:
		// completion takes shell names, which are never corrected.
		return nil
	}
}

func resolveFlagName(raw string) (string, bool) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-")
	if canonical, ok := flagAliases[name]; ok {
		return canonical, true
	}
	if _, ok := knownFlags[name]; ok {
		return name, true
	}
	return closestMatch(name, flagNames, 2)
}

// textCommands read label text from their positional args, so a root token
// is never fuzzily corrected into one of them.
var textCommands = []string{"check", "section"}

// resolveCommand maps tok onto one of commands. Root tokens may just as well
// be the first word of a label, so they get a single edit and must be at
// least four letters; subcommand slots allow two edits.
func resolveCommand(raw string, commands []string, root bool) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if slices.Contains(commands, name) {
		return name, true
	}
	if !isCommandLike(raw) {
		return "", false
	}
	if !root {
		return closestMatch(name, commands, 2)
	}
	if len(name) < 4 {
		return "", false
	}
	cmd, ok := closestMatch(name, commands, 1)
	if !ok || slices.Contains(textCommands, cmd) {
		return "", false
	}
	return cmd, true
}

func isCommandLike(raw string) bool {
	if len(raw) < 3 {
		return false
	}
	for _, r := range raw {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func explainCLIError(err error) string {
	return formatCLIErrorText(classifyCLIError(err))
}

func splitFlag(value string) (string, string) {
	name, val, found := strings.Cut(value, "=")
	if !found {
		return value, ""
	}
	return name, "=" + val
}

var unknownTokenPattern = regexp.MustCompile("unknown (?:command|flag)[: ]*[\"`]?([^\"`\\s]+)")

// unknownToken pulls the offending token out of a cobra parse error.
func unknownToken(msg string) string {
	if m := unknownTokenPattern.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return ""
}

func closestMatch(target string, candidates []string, maxDistance int) (string, bool) {
	best, bestDist := "", maxDistance+1
	for _, candidate := range candidates {
		if d := levenshtein(target, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best, best != ""
}

// levenshtein is the byte-wise edit distance, kept in a single row.
func levenshtein(a, b string) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			above := row[j]
			row[j] = min(above+1, row[j-1]+1, diag+cost)
			diag = above
		}
	}
	return row[len(b)]
}
