package history

import (
	"fmt"
	"strings"
)

// Verdict filters entries by detection outcome.
type Verdict string

const (
	All        Verdict = "all"
	WithBHT    Verdict = "with-bht"
	WithoutBHT Verdict = "without-bht"
)

// Query selects entries from the history.
type Query struct {
	Verdict Verdict
	// Search keeps entries with at least one match containing it, case-insensitively.
	Search string
	Limit  int
}

// ParseVerdict accepts the canonical names and a few common aliases.
func ParseVerdict(raw string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "any":
		return All, nil
	case "with-bht", "with", "bht", "detected", "positive":
		return WithBHT, nil
	case "without-bht", "without", "clean", "none", "negative":
		return WithoutBHT, nil
	default:
		return "", fmt.Errorf("unknown verdict %q (want all, with-bht, or without-bht)", raw)
	}
}
