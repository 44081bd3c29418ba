package analyzer

import (
	"image"
	"math"
)

// frequencyBandTagger finds the annulus of the magnitude spectrum with the
// highest energy density and tags the image with its radii [a, b].
type frequencyBandTagger struct{}

// NewFrequencyBandTagger creates the spectral band tagger. Its values are
// display only.
func NewFrequencyBandTagger() Tagger {
	return frequencyBandTagger{}
}

func (frequencyBandTagger) Kind() Kind { return KindNumberArray }

func (frequencyBandTagger) Tag(img image.Image) (any, error) {
	var spectrum *Spectrum
	if f, ok := img.(*Frame); ok {
		v, _ := f.Memo(spectrumKey{}, func() (any, error) {
			return MagnitudeSpectrum(f.Gray()), nil
		})
		spectrum = v.(*Spectrum)
	} else {
		spectrum = MagnitudeSpectrum(toGray(img))
	}

	a, b, ok := DensestBand(spectrum.Bands())
	if !ok {
		return nil, nil
	}
	return []float64{float64(a), float64(b)}, nil
}

// DensestBand searches 1 <= a < b < len(bands) for the pair maximizing
// sum(bands[a..b]) / (π(b²-a²)). The first pair reaching the maximum wins.
// ok is false when fewer than three bands exist.
func DensestBand(bands []float64) (a, b int, ok bool) {
	best := math.Inf(-1)
	for lo := 1; lo < len(bands); lo++ {
		total := bands[lo]
		for hi := lo + 1; hi < len(bands); hi++ {
			total += bands[hi]
			area := math.Pi * float64(hi*hi-lo*lo)
			if density := total / area; density > best {
				best = density
				a, b, ok = lo, hi, true
			}
		}
	}
	return a, b, ok
}
