package memory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// questionSimilarityThreshold is the Jaccard score above which a stored
// question answers a new one.
const questionSimilarityThreshold = 0.7

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// tokenize lower-cases, strips diacritics, and splits on whitespace.
func tokenize(text string) map[string]bool {
	folded, _, err := transform.String(accentFolder, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}

	tokens := make(map[string]bool)
	for _, w := range strings.Fields(folded) {
		tokens[w] = true
	}
	return tokens
}

// Similarity is the token-set Jaccard index of two questions. It is symmetric
// and 0 whenever either token set is empty.
func Similarity(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for w := range ta {
		if tb[w] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection

	return float64(intersection) / float64(union)
}
