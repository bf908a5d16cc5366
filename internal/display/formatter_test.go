package display_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tayloree/bhtscan/internal/detect"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/history"
)

func sampleEntries() []history.Entry {
	at := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	return []history.Entry{
		{
			ID: "3f2504e0-4f89-11d3-9a0c-0305e82c3301", CreatedAt: at, Source: "file", Name: "crackers.txt",
			ContainsBHT: true, Confidence: "high", Matches: []string{"E320"}, Excerpt: "Ingredients: flour, E320",
		},
		{
			ID: "9b2d6e11-0000-4000-8000-000000000000", CreatedAt: at.Add(time.Hour), Source: "text",
			Confidence: "low",
		},
	}
}

func TestPrintResult_Detected(t *testing.T) {
	var buf bytes.Buffer
	display.PrintResult(&buf, detect.Detect("Ingredients: wheat flour, salt, BHT (preservative)"))
	output := buf.String()

	assert.Contains(t, output, "CONTAINS BHT")
	assert.Contains(t, output, "medium confidence")
	assert.Contains(t, output, "Found:")
	assert.Contains(t, output, "BHT")
	assert.Contains(t, output, "Label text")
}

func TestPrintResult_Clean(t *testing.T) {
	var buf bytes.Buffer
	display.PrintResult(&buf, detect.Detect("Ingredients: rice, water, salt"))
	output := buf.String()

	assert.Contains(t, output, "BHT-FREE")
	assert.Contains(t, output, "low confidence")
	assert.Contains(t, output, "No BHT pattern found")
}

func TestPrintResult_WrapsLongText(t *testing.T) {
	var buf bytes.Buffer
	display.PrintResult(&buf, detect.Detect(strings.Repeat("wheat ", 40)))

	for _, line := range strings.Split(buf.String(), "\n") {
		assert.LessOrEqual(t, len(line), 120)
	}
}

func TestPrintResultJSON_Shape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, display.PrintResultJSON(&buf, detect.Detect("Antioxidant: E 320 and butylated hydroxytoluene")))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, true, decoded["containsBHT"])
	assert.Equal(t, "high", decoded["confidence"])
	assert.Equal(t, []any{"butylated hydroxytoluene", "E 320"}, decoded["matches"])
	assert.Equal(t, "Antioxidant: E 320 and butylated hydroxytoluene", decoded["detectedText"])

	hits, ok := decoded["hits"].([]any)
	require.True(t, ok)
	first, ok := hits[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "full-name", first["category"])
}

func TestPrintResultJSON_EmptyMatchesNotNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, display.PrintResultJSON(&buf, detect.Result{Confidence: detect.Low}))

	assert.Contains(t, buf.String(), `"matches":[]`)
	assert.Contains(t, buf.String(), `"hits":[]`)
}

func TestPrintSection(t *testing.T) {
	var buf bytes.Buffer
	display.PrintSection(&buf, "Ingredients: oats", true)
	assert.Equal(t, "Ingredients: oats\n", buf.String())

	buf.Reset()
	display.PrintSection(&buf, "just text", false)
	assert.Contains(t, buf.String(), "No ingredients heading found")
	assert.Contains(t, buf.String(), "just text")

	buf.Reset()
	require.NoError(t, display.PrintSectionJSON(&buf, "Ingredients: oats", true))
	assert.JSONEq(t, `{"found":true,"section":"Ingredients: oats"}`, buf.String())
}

func TestPrintRules(t *testing.T) {
	var buf bytes.Buffer
	display.PrintRules(&buf, detect.DefaultRules(), false)
	output := buf.String()

	assert.Contains(t, output, "default set, 10 rules")
	assert.Contains(t, output, "e-code-spaced")
	assert.Contains(t, output, "[acronym → medium]")
}

func TestPrintRulesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, display.PrintRulesJSON(&buf, detect.ExtendedRules()))

	var decoded []display.RuleJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, len(detect.ExtendedRules()))

	assert.Equal(t, display.RuleJSON{Name: "acronym", Category: "acronym", Tier: "medium", Pattern: `\bbht\b`}, decoded[0])
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	display.PrintHistory(&buf, sampleEntries())
	output := buf.String()

	assert.Contains(t, output, "2 entries")
	assert.Contains(t, output, "3f2504e0")
	assert.Contains(t, output, "crackers.txt (file) | E320")
	assert.Contains(t, output, "BHT-FREE")
}

func TestPrintHistoryJSON_OmitsExcerpt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, display.PrintHistoryJSON(&buf, sampleEntries()))

	var decoded []display.EntryJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "2026-04-10T08:00:00Z", decoded[0].CreatedAt)
	assert.Empty(t, decoded[0].Excerpt)
	assert.Equal(t, []string{}, decoded[1].Matches)
}

func TestPrintEntry(t *testing.T) {
	e := sampleEntries()[0]

	var buf bytes.Buffer
	display.PrintEntry(&buf, e)
	assert.Contains(t, buf.String(), e.ID)
	assert.Contains(t, buf.String(), "Ingredients: flour, E320")

	buf.Reset()
	require.NoError(t, display.PrintEntryJSON(&buf, e))
	assert.Contains(t, buf.String(), `"excerpt":"Ingredients: flour, E320"`)
}

func TestPrintStats(t *testing.T) {
	st := history.Stats{Total: 4, WithBHT: 1, WithoutBHT: 3, Percentage: 25}

	var buf bytes.Buffer
	display.PrintStats(&buf, st)
	assert.Contains(t, buf.String(), "1 (25%)")

	buf.Reset()
	require.NoError(t, display.PrintStatsJSON(&buf, st))
	assert.JSONEq(t, `{"total":4,"withBHT":1,"withoutBHT":3,"percentage":25}`, buf.String())
}

func TestPrintBatch(t *testing.T) {
	items := []display.BatchItem{
		{Rank: 1, Name: "a.txt", Result: detect.Detect("E320")},
		{Rank: 2, Name: "b.txt", Result: detect.Detect("sugar")},
	}

	var buf bytes.Buffer
	display.PrintBatch(&buf, items, []string{"missing.txt"})
	output := buf.String()
	assert.Contains(t, output, "1 of 2 label(s) contain BHT")
	assert.Contains(t, output, "skipped 1 unreadable file(s): missing.txt")

	buf.Reset()
	require.NoError(t, display.PrintBatchJSON(&buf, items, nil))
	var decoded display.BatchJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, []string{"E320"}, decoded.Results[0].Matches)
	assert.Equal(t, []string{}, decoded.Results[1].Matches)
	assert.Equal(t, []string{}, decoded.Skipped)
}

func TestPrintSaved(t *testing.T) {
	var buf bytes.Buffer
	display.PrintSaved(&buf, sampleEntries()[0])
	assert.Contains(t, buf.String(), "Saved to history as 3f2504e0")
}
