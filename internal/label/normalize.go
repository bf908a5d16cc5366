package label

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize folds s into a comparable form: lowercase ASCII letters and
// digits separated by single spaces. Diacritics are reduced to their base
// letter ("ç" -> "c"); every other character acts as a separator.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	decomposed, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		decomposed = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	pendingSpace := false
	for _, r := range decomposed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		default:
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
