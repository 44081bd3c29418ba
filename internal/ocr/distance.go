package ocr

import (
	"strings"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// NormalizedEditDistance is the Levenshtein distance between a and b
// divided by the rune length of the longer one, in [0,1].
func NormalizedEditDistance(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.Distance(a, b)) / float64(longest)
}

// WordErrorRate is the word level edit distance of candidate against
// reference divided by the reference word count.
func WordErrorRate(reference, candidate string) float64 {
	ref := strings.Fields(reference)
	cand := strings.Fields(candidate)
	switch {
	case len(ref) == 0 && len(cand) == 0:
		return 0
	case len(ref) == 0:
		return 1
	}
	rate, _ := wer.WER(ref, cand)
	return rate
}
