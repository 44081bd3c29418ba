package analyzer

import (
	"image"
	"image/color"
	"math"
	"testing"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

func TestCooccurrenceMatrix_UniformMidGray(t *testing.T) {
	img := createTestImage(8, 8, color.RGBA{128, 128, 128, 255})

	m, err := NewCooccurrenceMatrix(Grayscale(img), DefaultTextureOptions())
	if err != nil {
		t.Fatalf("NewCooccurrenceMatrix() error = %v", err)
	}

	if m.Pairs() != 56 {
		t.Errorf("Pairs() = %d, want 56", m.Pairs())
	}
	for i := 0; i < m.Levels(); i++ {
		for j := 0; j < m.Levels(); j++ {
			want := 0.0
			if i == 32 && j == 32 {
				want = 1.0
			}
			if m.At(i, j) != want {
				t.Fatalf("At(%d, %d) = %f, want %f", i, j, m.At(i, j), want)
			}
		}
	}

	if got := m.Entropy(); got != 0 {
		t.Errorf("Entropy() = %f, want 0", got)
	}
	if got := m.Energy(); got != 1 {
		t.Errorf("Energy() = %f, want 1", got)
	}
	if got := m.MaxProbability(); got != 1 {
		t.Errorf("MaxProbability() = %f, want 1", got)
	}
	if _, ok := m.Correlation(); ok {
		t.Error("Correlation() should be undefined for a constant image")
	}
}

func TestCooccurrenceMatrix_SumsToOne(t *testing.T) {
	offsets := []struct{ dx, dy int }{
		{1, 0}, {0, 1}, {1, 1}, {-1, 1}, {2, -3}, {0, 0},
	}
	levels := []int{1, 2, 8, 64, 256}
	images := map[string]*image.Gray{
		"noise":    createNoiseImage(31, 17, 7),
		"gradient": createGradientImage(40, 9),
		"checker":  createCheckerboard(10, 10),
	}

	for name, img := range images {
		for _, L := range levels {
			for _, off := range offsets {
				opts := DefaultTextureOptions().WithLevels(L).WithOffset(off.dx, off.dy)
				m, err := NewCooccurrenceMatrix(img, opts)
				if err != nil {
					t.Fatalf("%s L=%d offset=%v: %v", name, L, off, err)
				}
				if sum := m.Sum(); math.Abs(sum-1) > 1e-9 {
					t.Errorf("%s L=%d offset=%v: sum = %.12f", name, L, off, sum)
				}
			}
		}
	}
}

func TestCooccurrenceMatrix_Checkerboard(t *testing.T) {
	m, err := NewCooccurrenceMatrix(createCheckerboard(8, 8), DefaultTextureOptions().WithLevels(2))
	if err != nil {
		t.Fatalf("NewCooccurrenceMatrix() error = %v", err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"contrast", m.Contrast(), 1},
		{"homogeneity", m.Homogeneity(), 0.5},
		{"energy", m.Energy(), 0.5},
		{"entropy", m.Entropy(), 1},
		{"max probability", m.MaxProbability(), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-12 {
				t.Errorf("got %f, want %f", tt.got, tt.want)
			}
		})
	}

	corr, ok := m.Correlation()
	if !ok {
		t.Fatal("Correlation() should be defined")
	}
	if math.Abs(corr+1) > 1e-12 {
		t.Errorf("Correlation() = %f, want -1", corr)
	}
}

func TestCooccurrenceMatrix_EntropyPositiveForMixedContent(t *testing.T) {
	for _, img := range []*image.Gray{createGradientImage(16, 4), createNoiseImage(16, 16, 3)} {
		m, err := NewCooccurrenceMatrix(img, DefaultTextureOptions())
		if err != nil {
			t.Fatal(err)
		}
		if m.Entropy() <= 0 {
			t.Errorf("Entropy() = %f, want > 0", m.Entropy())
		}
		if m.MaxProbability() >= 1 {
			t.Errorf("MaxProbability() = %f, want < 1", m.MaxProbability())
		}
	}
}

func TestCooccurrenceMatrix_GradientCorrelation(t *testing.T) {
	m, err := NewCooccurrenceMatrix(createGradientImage(64, 8), DefaultTextureOptions())
	if err != nil {
		t.Fatal(err)
	}
	corr, ok := m.Correlation()
	if !ok {
		t.Fatal("Correlation() should be defined for a gradient")
	}
	if corr < 0.9 || corr > 1+1e-9 {
		t.Errorf("Correlation() = %f, want close to 1", corr)
	}
}

func TestCooccurrenceMatrix_NoPairs(t *testing.T) {
	m, err := NewCooccurrenceMatrix(createNoiseImage(1, 5, 1), DefaultTextureOptions())
	if err != nil {
		t.Fatal(err)
	}
	if m.Pairs() != 0 {
		t.Errorf("Pairs() = %d, want 0", m.Pairs())
	}
}

func TestCooccurrenceMatrix_Levels(t *testing.T) {
	tests := []struct {
		levels  int
		wantErr bool
	}{
		{0, true},
		{-3, true},
		{1, false},
		{MaxLevels + 1, true},
		{0xb505, true},
	}
	img := createNoiseImage(4, 4, 1)
	for _, tt := range tests {
		_, err := NewCooccurrenceMatrix(img, DefaultTextureOptions().WithLevels(tt.levels))
		if (err != nil) != tt.wantErr {
			t.Errorf("levels=%d: err = %v, wantErr %v", tt.levels, err, tt.wantErr)
		}
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
			t.Errorf("levels=%d: expected configuration error, got %v", tt.levels, err)
		}
	}

	if err := DefaultTextureOptions().WithLevels(MaxLevels).Validate(); err != nil {
		t.Errorf("Validate(%d) = %v", MaxLevels, err)
	}
}

func TestCountPairs_ParallelMatchesSequential(t *testing.T) {
	img := createNoiseImage(300, 200, 11)
	const L = 8
	var lut [256]int
	for y := range lut {
		lut[y] = y * L / 256
	}

	got := countPairs(img, &lut, L, 1, 1, 0, 199, 0, 299)
	want := make([]float64, L*L)
	countStrip(img, &lut, L, 1, 1, 0, 199, 0, 299, want)

	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("cell %d: parallel %f, sequential %f", k, got[k], want[k])
		}
	}
}

func TestCooccurrenceMatrix_SubImage(t *testing.T) {
	base := createNoiseImage(20, 20, 5)
	sub := base.SubImage(image.Rect(5, 5, 15, 15)).(*image.Gray)

	fromSub, err := NewCooccurrenceMatrix(sub, DefaultTextureOptions())
	if err != nil {
		t.Fatal(err)
	}
	fromCopy, err := NewCooccurrenceMatrix(Grayscale(sub), DefaultTextureOptions())
	if err != nil {
		t.Fatal(err)
	}
	if fromSub.Contrast() != fromCopy.Contrast() || fromSub.Pairs() != 90 {
		t.Errorf("sub-image contrast %f vs %f, pairs %d", fromSub.Contrast(), fromCopy.Contrast(), fromSub.Pairs())
	}
}
