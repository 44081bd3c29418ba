package ocr

import (
	"fmt"
	"image"
	"strings"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// Extractor recognizes the text in an image. Implementations must be safe
// for concurrent use.
type Extractor interface {
	Extract(img image.Image) (string, error)
}

// Metric selects how two extracted texts are compared.
type Metric int

const (
	// MetricCharacter is the edit distance normalized by the longer text.
	MetricCharacter Metric = iota
	// MetricWord is the word error rate of the second text against the first.
	MetricWord
)

// TextTagger tags images with their recognized text.
type TextTagger struct {
	extractor Extractor
	metric    Metric
}

// NewTextTagger creates a text tagger over extractor.
func NewTextTagger(extractor Extractor, metric Metric) *TextTagger {
	return &TextTagger{extractor: extractor, metric: metric}
}

var (
	_ analyzer.Tagger        = (*TextTagger)(nil)
	_ analyzer.LiteralParser = (*TextTagger)(nil)
	_ analyzer.Distancer     = (*TextTagger)(nil)
)

func (t *TextTagger) Kind() analyzer.Kind { return analyzer.KindString }

// Tag returns the recognized text with whitespace collapsed, or nil when
// no text was found.
func (t *TextTagger) Tag(img image.Image) (any, error) {
	text, err := t.extractor.Extract(img)
	if err != nil {
		return nil, apperrors.NewAnalysisFailure("text extraction failed", err)
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil, nil
	}
	return text, nil
}

func (t *TextTagger) ParseLiteral(text string) (any, error) {
	return text, nil
}

func (t *TextTagger) Distance(a, b any) (float64, bool, error) {
	l, ok := a.(string)
	if !ok {
		return 0, false, apperrors.NewIncomparableValues(fmt.Sprintf("%T is not text", a), nil)
	}
	r, ok := b.(string)
	if !ok {
		return 0, false, apperrors.NewIncomparableValues(fmt.Sprintf("%T is not text", b), nil)
	}
	if t.metric == MetricWord {
		return WordErrorRate(l, r), true, nil
	}
	return NormalizedEditDistance(l, r), true, nil
}
