package detect

import (
	"fmt"
	"regexp"
)

// Confidence is the three-tier rating attached to a Result.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Rank orders confidences so that High > Medium > Low.
func (c Confidence) Rank() int {
	switch c {
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}

// Hit is a single occurrence of a rule in the input.
type Hit struct {
	Rule     string   `json:"rule"`
	Category Category `json:"category"`
	Text     string   `json:"text"`
	Offset   int      `json:"offset"`
}

// Result is the verdict for one input text.
type Result struct {
	ContainsBHT  bool       `json:"containsBHT"`
	Confidence   Confidence `json:"confidence"`
	Matches      []string   `json:"matches"`
	DetectedText string     `json:"detectedText"`
	Hits         []Hit      `json:"hits"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Detector applies an immutable rule table. It is safe for concurrent use.
type Detector struct {
	rules []compiledRule
}

// New compiles rules into a Detector. It panics on an invalid expression or
// a rule without a known category, since rule tables are static data.
func New(rules []Rule) *Detector {
	d := &Detector{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if !r.Category.valid() {
			panic(fmt.Sprintf("detect: rule %q has no confidence tier (%s)", r.Name, r.Category))
		}
		d.rules = append(d.rules, compiledRule{
			Rule: r,
			re:   regexp.MustCompile(`(?i)` + r.Expr),
		})
	}
	return d
}

var (
	defaultDetector  = New(defaultRules)
	extendedDetector = New(ExtendedRules())
)

// Default returns the detector for the standard rule table.
func Default() *Detector { return defaultDetector }

// Extended returns the detector that also knows the Portuguese synonyms.
func Extended() *Detector { return extendedDetector }

// Detect runs the standard rule table against text.
func Detect(text string) Result {
	return defaultDetector.Detect(text)
}

// Rules returns the detector's rule table in evaluation order.
func (d *Detector) Rules() []Rule {
	out := make([]Rule, 0, len(d.rules))
	for _, r := range d.rules {
		out = append(out, r.Rule)
	}
	return out
}

// Detect applies every rule to the raw text. Matches keeps each distinct
// matched substring once, in first-seen order; equality is exact, so
// "BHT" and "bht" are separate entries.
func (d *Detector) Detect(text string) Result {
	res := Result{
		Confidence:   Low,
		Matches:      []string{},
		DetectedText: text,
	}
	if text == "" {
		return res
	}

	seen := make(map[string]struct{})
	for _, r := range d.rules {
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			m := text[loc[0]:loc[1]]
			res.Hits = append(res.Hits, Hit{
				Rule:     r.Name,
				Category: r.Category,
				Text:     m,
				Offset:   loc[0],
			})
			if tier := r.Category.Tier(); tier.Rank() > res.Confidence.Rank() {
				res.Confidence = tier
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			res.Matches = append(res.Matches, m)
		}
	}

	res.ContainsBHT = len(res.Matches) > 0
	return res
}
