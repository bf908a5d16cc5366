package detect

import "fmt"

// Category groups rules by what they recognize. Confidence is derived from
// the categories of the rules that fired, never from the matched text alone.
type Category int

const (
	// FullName covers the spelled-out compound name and its chemical notation.
	FullName Category = iota + 1
	// ECode covers regulatory additive codes such as E320.
	ECode
	// Acronym covers the bare, dotted, and hyphenated acronym.
	Acronym
)

func (c Category) String() string {
	switch c {
	case FullName:
		return "full-name"
	case ECode:
		return "e-code"
	case Acronym:
		return "acronym"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// MarshalText renders the category name in JSON and YAML output.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a category name written by MarshalText.
func (c *Category) UnmarshalText(text []byte) error {
	for _, candidate := range []Category{FullName, ECode, Acronym} {
		if string(text) == candidate.String() {
			*c = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", text)
}

// Tier maps a category onto the confidence it grants.
func (c Category) Tier() Confidence {
	switch c {
	case FullName, ECode:
		return High
	case Acronym:
		return Medium
	default:
		return Low
	}
}

func (c Category) valid() bool {
	return c == FullName || c == ECode || c == Acronym
}

// Rule is one lexical pattern. Expressions are matched case-insensitively
// against the raw input text.
type Rule struct {
	Name     string
	Category Category
	Expr     string
}

var defaultRules = []Rule{
	{Name: "acronym", Category: Acronym, Expr: `\bbht\b`},
	{Name: "acronym-dotted", Category: Acronym, Expr: `\bb\.h\.t\.?\b`},
	{Name: "acronym-hyphenated", Category: Acronym, Expr: `\bb-h-t\b`},
	{Name: "full-name", Category: FullName, Expr: `\bbutylated\s+hydroxytoluene\b`},
	{Name: "full-name-singular", Category: FullName, Expr: `\bbutylate\s+hydroxytoluene\b`},
	{Name: "chemical-notation", Category: FullName, Expr: `\b3[,\s-]?5[,\s-]?di[-\s]?tert[-\s]?butyl[-\s]?4[-\s]?hydroxytoluene\b`},
	{Name: "e-code", Category: ECode, Expr: `\be320\b`},
	{Name: "e-code-spaced", Category: ECode, Expr: `\be\s*320\b`},
	{Name: "full-name-with-acronym", Category: FullName, Expr: `\bbutylated\s+hydroxytoluene\s*\(bht\)`},
	{Name: "acronym-with-full-name", Category: FullName, Expr: `\bbht\s*\(butylated\s+hydroxytoluene\)`},
}

// Portuguese label synonyms and additive-code phrasings seen on Brazilian
// packaging.
var portugueseRules = []Rule{
	{Name: "full-name-accented", Category: FullName, Expr: `butylat[eé]d\s+hydroxytoluene`},
	{Name: "pt-full-name", Category: FullName, Expr: `butilado\s+hidroxitolueno`},
	{Name: "pt-full-name-inverted", Category: FullName, Expr: `hidroxitolueno\s+butilado`},
	{Name: "ins-code", Category: ECode, Expr: `\bins\s*320\b`},
	{Name: "code-with-acronym", Category: ECode, Expr: `\b320\s*\(bht\)`},
	{Name: "antioxidant-code", Category: ECode, Expr: `antioxidante\s+320`},
	{Name: "antioxidant-code-abbrev", Category: ECode, Expr: `antiox\.\s*320`},
	{Name: "preservative-code", Category: ECode, Expr: `conservante\s+320`},
	{Name: "preservative-code-alt", Category: ECode, Expr: `preservativo\s+320`},
}

// DefaultRules returns the standard rule table.
func DefaultRules() []Rule {
	return append([]Rule(nil), defaultRules...)
}

// ExtendedRules returns the standard table followed by the Portuguese
// synonyms.
func ExtendedRules() []Rule {
	out := make([]Rule, 0, len(defaultRules)+len(portugueseRules))
	out = append(out, defaultRules...)
	return append(out, portugueseRules...)
}
