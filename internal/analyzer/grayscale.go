package analyzer

import (
	"image"
	"image/draw"
	"sync"
)

// Grayscale converts img to 8-bit luminance using the standard gray model.
// A *image.Gray anchored at the origin is returned as is.
func Grayscale(img image.Image) *image.Gray {
	if f, ok := img.(*Frame); ok {
		return f.Gray()
	}
	return toGray(img)
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	if g, ok := img.(*image.Gray); ok && bounds.Min == (image.Point{}) {
		return g
	}
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// Intensity returns the normalized intensity of an 8-bit level, in [0,1).
func Intensity(y uint8) float64 {
	return float64(y) / 256
}

// Frame wraps a decoded image shared read-only by every tagger run on it,
// and memoizes buffers derived from it so that taggers with a common
// intermediate (grayscale, co-occurrence matrix) compute it once.
type Frame struct {
	image.Image

	grayOnce sync.Once
	gray     *image.Gray

	mu   sync.Mutex
	memo map[any]*memoEntry
}

type memoEntry struct {
	once  sync.Once
	value any
	err   error
}

// NewFrame wraps img.
func NewFrame(img image.Image) *Frame {
	if f, ok := img.(*Frame); ok {
		return f
	}
	return &Frame{Image: img, memo: make(map[any]*memoEntry)}
}

// Gray returns the grayscale conversion, computing it on first use.
func (f *Frame) Gray() *image.Gray {
	f.grayOnce.Do(func() {
		f.gray = toGray(f.Image)
	})
	return f.gray
}

// Memo returns the value computed by fn for key, running fn at most once
// per frame. key must be comparable.
func (f *Frame) Memo(key any, fn func() (any, error)) (any, error) {
	f.mu.Lock()
	e, ok := f.memo[key]
	if !ok {
		e = &memoEntry{}
		f.memo[key] = e
	}
	f.mu.Unlock()

	e.once.Do(func() {
		e.value, e.err = fn()
	})
	return e.value, e.err
}
