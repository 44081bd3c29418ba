package analyzer

import (
	"image"
	"math"
)

// statistic derives one scalar from a matrix; ok is false when undefined.
type statistic func(m *CooccurrenceMatrix) (float64, bool)

// textureTagger exposes one co-occurrence statistic as a NUMBER tag.
type textureTagger struct {
	opts TextureOptions
	stat statistic
}

// rankedTextureTagger adds literal parsing and a distance to a statistic.
type rankedTextureTagger struct {
	*textureTagger
	distance func(l, r float64) float64
}

func newTextureTagger(opts TextureOptions, stat statistic) (*textureTagger, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &textureTagger{opts: opts, stat: stat}, nil
}

func newRankedTextureTagger(opts TextureOptions, stat statistic, distance func(l, r float64) float64) (Tagger, error) {
	t, err := newTextureTagger(opts, stat)
	if err != nil {
		return nil, err
	}
	return &rankedTextureTagger{textureTagger: t, distance: distance}, nil
}

// NewContrastTagger tags images with the co-occurrence contrast.
func NewContrastTagger(opts TextureOptions) (Tagger, error) {
	return newRankedTextureTagger(opts, func(m *CooccurrenceMatrix) (float64, bool) {
		return m.Contrast(), true
	}, absDifference)
}

// NewCorrelationTagger tags images with the co-occurrence correlation. The
// tag is absent for images whose marginals have zero variance.
func NewCorrelationTagger(opts TextureOptions) (Tagger, error) {
	return newRankedTextureTagger(opts, (*CooccurrenceMatrix).Correlation, signedDifference)
}

// NewEnergyTagger tags images with the co-occurrence energy.
func NewEnergyTagger(opts TextureOptions) (Tagger, error) {
	return newRankedTextureTagger(opts, func(m *CooccurrenceMatrix) (float64, bool) {
		return m.Energy(), true
	}, signedDifference)
}

// NewEntropyTagger tags images with the co-occurrence entropy in bits.
// Entropy tags are display only.
func NewEntropyTagger(opts TextureOptions) (Tagger, error) {
	return newTextureTagger(opts, func(m *CooccurrenceMatrix) (float64, bool) {
		return m.Entropy(), true
	})
}

// NewHomogeneityTagger tags images with the co-occurrence homogeneity.
func NewHomogeneityTagger(opts TextureOptions) (Tagger, error) {
	return newRankedTextureTagger(opts, func(m *CooccurrenceMatrix) (float64, bool) {
		return m.Homogeneity(), true
	}, absDifference)
}

// NewMaxProbabilityTagger tags images with the largest co-occurrence cell.
func NewMaxProbabilityTagger(opts TextureOptions) (Tagger, error) {
	return newRankedTextureTagger(opts, func(m *CooccurrenceMatrix) (float64, bool) {
		return m.MaxProbability(), true
	}, absDifference)
}

func (t *textureTagger) Kind() Kind { return KindNumber }

func (t *textureTagger) Tag(img image.Image) (any, error) {
	m, err := cooccurrence(img, t.opts)
	if err != nil {
		return nil, err
	}
	if m.Pairs() == 0 {
		return nil, nil
	}
	v, ok := t.stat(m)
	if !ok || math.IsNaN(v) {
		return nil, nil
	}
	return v, nil
}

func (t *rankedTextureTagger) ParseLiteral(text string) (any, error) {
	return parseNumber(text)
}

func (t *rankedTextureTagger) Distance(a, b any) (float64, bool, error) {
	l, r, err := numberPair(a, b)
	if err != nil {
		return 0, false, err
	}
	return t.distance(l, r), true, nil
}

// cooccurrence builds the matrix for img, sharing it through the frame
// cache when img is a *Frame.
func cooccurrence(img image.Image, opts TextureOptions) (*CooccurrenceMatrix, error) {
	f, ok := img.(*Frame)
	if !ok {
		return NewCooccurrenceMatrix(toGray(img), opts)
	}
	v, err := f.Memo(opts, func() (any, error) {
		return NewCooccurrenceMatrix(f.Gray(), opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CooccurrenceMatrix), nil
}
