package label_test

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tayloree/bhtscan/internal/label"
)

var normalizedShape = regexp.MustCompile(`^([a-z0-9]+( [a-z0-9]+)*)?$`)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"INGREDIENTES:", "ingredientes"},
		{"Composição", "composicao"},
		{"açúcar, água e sal.", "acucar agua e sal"},
		{"  Farinha   de\ttrigo\n", "farinha de trigo"},
		{"B.H.T.", "b h t"},
		{"3,5-di-tert-butyl-4-hydroxytoluene", "3 5 di tert butyl 4 hydroxytoluene"},
		{"snake_case", "snake case"},
		{"Crème brûlée 🍮", "creme brulee"},
		{"ÑANDÚ", "nandu"},
		{"\x00\x01control", "control"},
		{"日本語 text", "text"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, label.Normalize(tt.input), "Normalize(%q)", tt.input)
	}
}

func TestNormalize_InvalidUTF8(t *testing.T) {
	assert.Equal(t, "ab cd", label.Normalize("ab \xffcd"))
}

func randomText(rng *rand.Rand) string {
	pool := []string{
		"a", "Z", "ç", "Ã", "é", " ", "  ", "\t", "\n", "\r\n", ",", ".", "-", "_",
		"(", ")", "3", "20", "BHT", "ü", "ß", "Ω", "🙂", "́", "\x00", "İ", "ﬁ",
	}
	n := rng.Intn(24)
	var b strings.Builder
	for range n {
		b.WriteString(pool[rng.Intn(len(pool))])
	}
	return b.String()
}

func TestNormalize_IdempotentAndCanonical(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for caseNum := 0; caseNum < 1000; caseNum++ {
		in := randomText(rng)
		once := label.Normalize(in)
		twice := label.Normalize(once)

		assert.Equal(t, once, twice, "not idempotent for %q (case %d)", in, caseNum)
		assert.Regexp(t, normalizedShape, once, "non-canonical output for %q", in)
	}
}

func BenchmarkNormalize_LabelLine(b *testing.B) {
	line := "INGREDIENTES: Farinha de trigo enriquecida com ferro e ácido fólico, açúcar, gordura vegetal, BHT (antioxidante)."

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		_ = label.Normalize(line)
	}
}
