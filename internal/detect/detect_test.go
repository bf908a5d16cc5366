package detect_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tayloree/bhtscan/internal/detect"
)

func TestDetect_Empty(t *testing.T) {
	res := detect.Detect("")

	assert.False(t, res.ContainsBHT)
	assert.Equal(t, detect.Low, res.Confidence)
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Hits)
	assert.Equal(t, "", res.DetectedText)
}

func TestDetect_BareAcronymIsMedium(t *testing.T) {
	text := "INGREDIENTES: Farinha de trigo, açúcar, gordura vegetal, BHT (antioxidante), sal."
	res := detect.Detect(text)

	assert.True(t, res.ContainsBHT)
	assert.Contains(t, res.Matches, "BHT")
	assert.Equal(t, detect.Medium, res.Confidence)
	assert.Equal(t, text, res.DetectedText)
}

func TestDetect_FullNameIsHigh(t *testing.T) {
	res := detect.Detect("Contém Butylated Hydroxytoluene (BHT) e sal.")

	assert.True(t, res.ContainsBHT)
	assert.Equal(t, detect.High, res.Confidence)
	assert.Equal(t, []string{"BHT", "Butylated Hydroxytoluene", "Butylated Hydroxytoluene (BHT)"}, res.Matches)
}

func TestDetect_ECodeIsHigh(t *testing.T) {
	res := detect.Detect("Ingredientes: E320, sal, água.")

	assert.True(t, res.ContainsBHT)
	assert.Equal(t, detect.High, res.Confidence)
	assert.Equal(t, []string{"E320"}, res.Matches)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "e-code", res.Hits[0].Rule)
	assert.Equal(t, "e-code-spaced", res.Hits[1].Rule)
}

func TestDetect_CleanLabel(t *testing.T) {
	res := detect.Detect("Farinha de arroz, água, azeite de oliva extra virgem, sal marinho.")

	assert.False(t, res.ContainsBHT)
	assert.Equal(t, detect.Low, res.Confidence)
	assert.Empty(t, res.Matches)
}

func TestDetect_CaseInsensitive(t *testing.T) {
	for _, in := range []string{"bht", "BHT", "Bht"} {
		res := detect.Detect(in)
		assert.True(t, res.ContainsBHT, "Detect(%q)", in)
		assert.Equal(t, detect.Medium, res.Confidence, "Detect(%q)", in)
		assert.Equal(t, []string{in}, res.Matches, "Detect(%q)", in)
	}
}

func TestDetect_WordBoundaries(t *testing.T) {
	for _, in := range []string{"bhtx", "xbht", "ABHTZ", "bht_1", "2bht", "xe320", "e3201"} {
		res := detect.Detect(in)
		assert.False(t, res.ContainsBHT, "Detect(%q) should not match", in)
		assert.Equal(t, detect.Low, res.Confidence, "Detect(%q)", in)
	}
}

func TestDetect_Variants(t *testing.T) {
	tests := []struct {
		input      string
		match      string
		confidence detect.Confidence
	}{
		{"contains B.H.T. as antioxidant", "B.H.T", detect.Medium},
		{"contém b.h.t, sal", "b.h.t", detect.Medium},
		{"with B-H-T added", "B-H-T", detect.Medium},
		{"butylated   hydroxytoluene", "butylated   hydroxytoluene", detect.High},
		{"Butylate Hydroxytoluene", "Butylate Hydroxytoluene", detect.High},
		{"3,5-di-tert-butyl-4-hydroxytoluene", "3,5-di-tert-butyl-4-hydroxytoluene", detect.High},
		{"3 5 di tert butyl 4 hydroxytoluene", "3 5 di tert butyl 4 hydroxytoluene", detect.High},
		{"35ditertbutyl4hydroxytoluene", "35ditertbutyl4hydroxytoluene", detect.High},
		{"3-5-Di-Tert-Butyl-4-Hydroxytoluene", "3-5-Di-Tert-Butyl-4-Hydroxytoluene", detect.High},
		{"antioxidante E 320", "E 320", detect.High},
		{"e320", "e320", detect.High},
	}
	for _, tt := range tests {
		res := detect.Detect(tt.input)
		assert.True(t, res.ContainsBHT, "Detect(%q)", tt.input)
		assert.Contains(t, res.Matches, tt.match, "Detect(%q)", tt.input)
		assert.Equal(t, tt.confidence, res.Confidence, "Detect(%q)", tt.input)
	}
}

func TestDetect_CombinedFormsAppearVerbatim(t *testing.T) {
	res := detect.Detect("Antioxidant: BHT (Butylated Hydroxytoluene).")

	assert.Equal(t, detect.High, res.Confidence)
	assert.Equal(t, []string{"BHT", "Butylated Hydroxytoluene", "BHT (Butylated Hydroxytoluene)"}, res.Matches)
}

func TestDetect_DedupesByExactString(t *testing.T) {
	res := detect.Detect("BHT, bht, BHT and Bht")

	assert.Equal(t, []string{"BHT", "bht", "Bht"}, res.Matches)
	assert.Len(t, res.Hits, 4)
}

func TestDetect_HitOffsets(t *testing.T) {
	text := "sal, BHT e E320"
	res := detect.Detect(text)

	require.NotEmpty(t, res.Hits)
	for _, hit := range res.Hits {
		assert.Equal(t, hit.Text, text[hit.Offset:hit.Offset+len(hit.Text)], "hit %+v", hit)
	}
	assert.Equal(t, 5, res.Hits[0].Offset)
	assert.Equal(t, detect.Acronym, res.Hits[0].Category)
}

func TestDetect_InvariantsHoldOnNoise(t *testing.T) {
	inputs := []string{
		"\x00\xff\xfe", "🙂🙂🙂", "((((", "E", "320", "butylated", "hydroxytoluene", " \n\t ",
	}
	for _, in := range inputs {
		res := detect.Detect(in)
		assert.Equal(t, len(res.Matches) > 0, res.ContainsBHT, "Detect(%q)", in)
		if len(res.Matches) == 0 {
			assert.Equal(t, detect.Low, res.Confidence, "Detect(%q)", in)
		}
		assert.Equal(t, in, res.DetectedText)
	}
}

func TestExtended_PortugueseSynonyms(t *testing.T) {
	tests := []struct {
		input string
		match string
	}{
		{"Antioxidante: butilado hidroxitolueno", "butilado hidroxitolueno"},
		{"HIDROXITOLUENO BUTILADO", "HIDROXITOLUENO BUTILADO"},
		{"INS 320", "INS 320"},
		{"antioxidante 320", "antioxidante 320"},
		{"antiox. 320", "antiox. 320"},
		{"conservante 320", "conservante 320"},
		{"preservativo 320", "preservativo 320"},
		{"320 (BHT)", "320 (BHT)"},
		{"Butylatéd Hydroxytoluene", "Butylatéd Hydroxytoluene"},
	}
	for _, tt := range tests {
		res := detect.Extended().Detect(tt.input)
		assert.True(t, res.ContainsBHT, "Extended.Detect(%q)", tt.input)
		assert.Contains(t, res.Matches, tt.match, "Extended.Detect(%q)", tt.input)
		assert.Equal(t, detect.High, res.Confidence, "Extended.Detect(%q)", tt.input)
	}
}

func TestExtended_DefaultIgnoresPortugueseSynonyms(t *testing.T) {
	res := detect.Detect("butilado hidroxitolueno, INS 320")
	assert.False(t, res.ContainsBHT)
}

func TestNew_RejectsUncategorizedRule(t *testing.T) {
	assert.Panics(t, func() {
		detect.New([]detect.Rule{{Name: "orphan", Expr: `bht`}})
	})
}

func TestRules_ReturnsTableInOrder(t *testing.T) {
	rules := detect.Default().Rules()
	require.Len(t, rules, len(detect.DefaultRules()))
	assert.Equal(t, "acronym", rules[0].Name)
	assert.Greater(t, len(detect.Extended().Rules()), len(rules))
}

func TestCategory_Tier(t *testing.T) {
	assert.Equal(t, detect.High, detect.FullName.Tier())
	assert.Equal(t, detect.High, detect.ECode.Tier())
	assert.Equal(t, detect.Medium, detect.Acronym.Tier())
	assert.Equal(t, detect.Low, detect.Category(0).Tier())
	assert.Equal(t, "e-code", detect.ECode.String())
}

func TestConfidence_Rank(t *testing.T) {
	assert.Greater(t, detect.High.Rank(), detect.Medium.Rank())
	assert.Greater(t, detect.Medium.Rank(), detect.Low.Rank())
}

func BenchmarkDetect_LabelText(b *testing.B) {
	text := "INGREDIENTES: Farinha de trigo enriquecida com ferro e ácido fólico, açúcar, gordura vegetal, " +
		"sal, fermento químico, emulsificante lecitina de soja, antioxidante BHT (Butylated Hydroxytoluene), E320."

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		_ = detect.Detect(text)
	}
}

func TestCategory_TextRoundTrip(t *testing.T) {
	for _, c := range []detect.Category{detect.FullName, detect.ECode, detect.Acronym} {
		text, err := c.MarshalText()
		require.NoError(t, err)

		var got detect.Category
		require.NoError(t, got.UnmarshalText(text), string(text))
		assert.Equal(t, c, got)
	}

	var bad detect.Category
	assert.Error(t, bad.UnmarshalText([]byte("brand-name")))
	assert.Error(t, bad.UnmarshalText([]byte("")))
}

func TestResult_JSONRoundTrip(t *testing.T) {
	res := detect.Detect("Contains BHT (butylated hydroxytoluene), E 320")

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"containsBHT":true`)
	assert.Contains(t, string(data), `"category":"full-name"`)

	var back detect.Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res, back)
}
