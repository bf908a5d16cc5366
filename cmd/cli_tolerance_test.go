package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCLIArgs_RewritesSingleDashLongFlag(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"-file", "label.txt"})

	assert.Equal(t, []string{"--file", "label.txt"}, args)
	assert.NotEmpty(t, notes)
}

func TestNormalizeCLIArgs_RewritesBareFlagOnFlagOnlyCommand(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"patterns", "json"})

	assert.Equal(t, []string{"patterns", "--json"}, args)
	assert.NotEmpty(t, notes)
}

func TestNormalizeCLIArgs_RewritesTypoFlag(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"--secton", "Ingredients: flour, BHT"})

	assert.Equal(t, []string{"--section", "Ingredients: flour, BHT"}, args)
	assert.NotEmpty(t, notes)
}

func TestNormalizeCLIArgs_RewritesFlagAlias(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"--portuguese", "--strict", "farinha"})

	assert.Equal(t, []string{"--extended", "--fail-on-bht", "farinha"}, args)
	assert.Len(t, notes, 2)
}

func TestNormalizeCLIArgs_RewritesCommandTypo(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"scann", "label.png"})

	assert.Equal(t, []string{"scan", "label.png"}, args)
	assert.NotEmpty(t, notes)
}

func TestNormalizeCLIArgs_RewritesNestedHistoryTypos(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"histry", "lsit", "--verdict", "with-bht"})

	assert.Equal(t, []string{"history", "list", "--verdict", "with-bht"}, args)
	assert.Len(t, notes, 2)
}

func TestNormalizeCLIArgs_LeavesLabelTextAlone(t *testing.T) {
	input := []string{"sugar", "salt", "bht", "json"}
	args, notes := normalizeCLIArgs(input)

	assert.Equal(t, input, args)
	assert.Empty(t, notes)
}

func TestNormalizeCLIArgs_ShortLabelWordIsNotACommand(t *testing.T) {
	for _, input := range [][]string{
		{"sal", "açúcar", "BHT"},
		{"salt", "BHT"},
		{"chuck", "steak", "BHT"},
		{"scna", "label.png"},
		{"histroy"},
	} {
		args, notes := normalizeCLIArgs(input)

		assert.Equal(t, input, args)
		assert.Empty(t, notes, input)
	}
}

func TestResolveCommand(t *testing.T) {
	cases := []struct {
		raw  string
		root bool
		want string
		ok   bool
	}{
		{raw: "scan", root: true, want: "scan", ok: true},
		{raw: "Check", root: true, want: "check", ok: true},
		{raw: "scann", root: true, want: "scan", ok: true},
		{raw: "sal", root: true},
		{raw: "chuck", root: true},
		{raw: "sectio", root: true},
		{raw: "lsit", root: false, want: "list", ok: true},
	}
	for _, tc := range cases {
		commands := knownCommands
		if !tc.root {
			commands = historyCommands
		}
		got, ok := resolveCommand(tc.raw, commands, tc.root)

		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestNormalizeCLIArgs_LabelTextAfterFlagsIsNotACommand(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"-s", "Ingredients:", "scna"})

	assert.Equal(t, []string{"-s", "Ingredients:", "scna"}, args)
	assert.Empty(t, notes)
}

func TestNormalizeCLIArgs_DoesNotRewriteCompletionPositionalArgs(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"completion", "zsh"})

	assert.Equal(t, []string{"completion", "zsh"}, args)
	assert.Empty(t, notes)
}

func TestNormalizeCLIArgs_DoesNotRewriteHelpCommandArgAsFlag(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"help", "section"})

	assert.Equal(t, []string{"help", "section"}, args)
	assert.Empty(t, notes)
}

func TestNormalizeCLIArgs_RespectsDoubleDashBoundary(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"check", "--", "-file", "secton"})

	assert.Equal(t, []string{"check", "--", "-file", "secton"}, args)
	assert.Empty(t, notes)
}

func TestNormalizeCLIArgs_LeavesKnownShorthandUntouched(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"-f", "label.txt", "-x", "-s"})

	assert.Equal(t, []string{"-f", "label.txt", "-x", "-s"}, args)
	assert.Empty(t, notes)
}

func TestNormalizeCLIArgs_ShorthandValueIsNotRewritten(t *testing.T) {
	args, notes := normalizeCLIArgs([]string{"history", "list", "-q", "json"})

	assert.Equal(t, []string{"history", "list", "-q", "json"}, args)
	assert.Empty(t, notes)
}

func TestIsCommandLike(t *testing.T) {
	assert.True(t, isCommandLike("scna"))
	assert.False(t, isCommandLike("BHT"))
	assert.False(t, isCommandLike("e3"))
	assert.False(t, isCommandLike("Ingredients:"))
	assert.False(t, isCommandLike("label.png"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("scan", "scan"))
	assert.Equal(t, 2, levenshtein("histroy", "history"))
	assert.Equal(t, 4, levenshtein("", "scan"))
}

func TestExplainCLIError_UnknownFlagIncludesSuggestionAndExamples(t *testing.T) {
	msg := explainCLIError(errors.New("unknown flag: --secton"))

	assert.Contains(t, msg, "Try `--section`.")
	assert.Contains(t, msg, "bhtscan --file label.txt")
}

func TestExplainCLIError_UnknownCommandIncludesSuggestionAndExamples(t *testing.T) {
	msg := explainCLIError(errors.New("unknown command \"histroy\" for \"bhtscan\""))

	assert.Contains(t, msg, "Did you mean `history`?")
	assert.Contains(t, msg, "bhtscan history list")
}
