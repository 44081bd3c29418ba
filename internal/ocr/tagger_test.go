package ocr

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(image.Image) (string, error) { return f.text, f.err }

func TestTextTagger_Tag(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	tests := []struct {
		name      string
		extractor fakeExtractor
		want      any
		errType   apperrors.ErrorType
	}{
		{"text", fakeExtractor{text: "  STOP\n here  "}, "STOP here", ""},
		{"blank is absent", fakeExtractor{text: " \n\t"}, nil, ""},
		{"backend failure", fakeExtractor{err: errors.New("no traineddata")}, nil, apperrors.ErrorTypeAnalysisFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTextTagger(tt.extractor, MetricCharacter).Tag(img)
			if tt.errType != "" {
				if !apperrors.IsType(err, tt.errType) {
					t.Fatalf("expected %s, got %v", tt.errType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Tag() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Tag() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextTagger_Contract(t *testing.T) {
	tagger := NewTextTagger(fakeExtractor{}, MetricCharacter)
	if tagger.Kind() != analyzer.KindString {
		t.Errorf("Kind() = %s", tagger.Kind())
	}
	caps := analyzer.CapabilitiesOf(tagger)
	if !caps.ParseLiteral || !caps.Distance {
		t.Errorf("capabilities = %+v", caps)
	}
	if v, err := tagger.ParseLiteral("%exit%"); err != nil || v != "%exit%" {
		t.Errorf("ParseLiteral() = (%v, %v)", v, err)
	}
	if _, _, err := tagger.Distance("a", 1.0); !apperrors.IsType(err, apperrors.ErrorTypeIncomparableValues) {
		t.Errorf("expected incomparable values, got %v", err)
	}
}

func TestNormalizedEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"kitten", "kitten", 0},
		{"kitten", "sitting", 3.0 / 7.0},
		{"abc", "", 1},
		{"héllo", "hello", 1.0 / 5.0},
	}
	for _, tt := range tests {
		got := NormalizedEditDistance(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("NormalizedEditDistance(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
		if back := NormalizedEditDistance(tt.b, tt.a); math.Abs(back-got) > 1e-12 {
			t.Errorf("distance not symmetric for %q, %q", tt.a, tt.b)
		}
	}
}

func TestTextTagger_WordMetric(t *testing.T) {
	tagger := NewTextTagger(fakeExtractor{}, MetricWord)

	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"", "extra words", 1},
		{"the quick brown fox", "the quick brown fox", 0},
		{"the quick brown fox", "the quick red fox", 0.25},
	}
	for _, tt := range tests {
		got, ok, err := tagger.Distance(tt.a, tt.b)
		if err != nil || !ok {
			t.Fatalf("Distance() = (%v, %v)", ok, err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Distance(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}
