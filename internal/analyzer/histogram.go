package analyzer

import (
	"image"
	"math"
)

// HistogramBins is the number of 8-bit luminance levels.
const HistogramBins = 256

// histogramTagger counts pixels per luminance level.
type histogramTagger struct{}

// NewHistogramTagger creates the intensity histogram tagger.
func NewHistogramTagger() Tagger {
	return histogramTagger{}
}

func (histogramTagger) Kind() Kind { return KindNumberArray }

func (histogramTagger) Tag(img image.Image) (any, error) {
	gray := Grayscale(img)
	counts := make([]float64, HistogramBins)
	b := gray.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y) : gray.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			counts[v]++
		}
	}
	return counts, nil
}

// ParseLiteral reads a comma separated list of counts.
func (histogramTagger) ParseLiteral(text string) (any, error) {
	return parseNumberList(text)
}

// Distance is the Euclidean distance over the common prefix of a and b.
func (histogramTagger) Distance(a, b any) (float64, bool, error) {
	l, err := AsNumberArray(a)
	if err != nil {
		return 0, false, err
	}
	r, err := AsNumberArray(b)
	if err != nil {
		return 0, false, err
	}
	var sum float64
	for i := 0; i < min(len(l), len(r)); i++ {
		d := l[i] - r[i]
		sum += d * d
	}
	return math.Sqrt(sum), true, nil
}
