package label

import "strings"

// ingredientKeywords are the heading synonyms that open an ingredient list,
// in Portuguese and English.
var ingredientKeywords = []string{
	"ingredientes",
	"ingredients",
	"ingrediente",
	"ingredient",
	"composição",
	"composition",
}

var normalizedKeywords = func() []string {
	out := make([]string, 0, len(ingredientKeywords))
	for _, kw := range ingredientKeywords {
		out = append(out, Normalize(kw))
	}
	return out
}()

// Keywords returns the ingredient heading synonyms.
func Keywords() []string {
	out := make([]string, len(ingredientKeywords))
	copy(out, ingredientKeywords)
	return out
}

// IngredientsSection returns text from the first line that mentions an
// ingredients heading through the end. When no line does, text is returned
// unchanged.
func IngredientsSection(text string) string {
	lines := strings.Split(text, "\n")
	start := HeadingLine(lines)
	if start < 0 {
		return text
	}
	return strings.Join(lines[start:], "\n")
}

// HeadingLine reports the index of the first line containing an ingredients
// heading keyword, or -1.
func HeadingLine(lines []string) int {
	for i, line := range lines {
		norm := Normalize(line)
		if norm == "" {
			continue
		}
		for _, kw := range normalizedKeywords {
			if strings.Contains(norm, kw) {
				return i
			}
		}
	}
	return -1
}
