package analyzer

import (
	"image"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum is a 2-D DFT magnitude spectrum shifted so that the zero
// frequency sits at (H/2, W/2).
type Spectrum struct {
	Height, Width int
	mag           []float64
}

// At returns the magnitude at row i, column j of the shifted spectrum.
func (s *Spectrum) At(i, j int) float64 { return s.mag[i*s.Width+j] }

// spectrumKey memoizes the magnitude spectrum on a frame.
type spectrumKey struct{}

// MagnitudeSpectrum transforms gray. Rows go through a real-input FFT when
// both dimensions are powers of two and a complex FFT otherwise.
func MagnitudeSpectrum(gray *image.Gray) *Spectrum {
	return magnitudeSpectrum(gray, isPowerOfTwo(gray.Rect.Dx()) && isPowerOfTwo(gray.Rect.Dy()))
}

func magnitudeSpectrum(gray *image.Gray, realInput bool) *Spectrum {
	h, w := gray.Rect.Dy(), gray.Rect.Dx()
	coeffs := make([]complex128, h*w)
	if h == 0 || w == 0 {
		return &Spectrum{Height: h, Width: w}
	}

	origin := gray.Rect.Min
	if realInput {
		fft := fourier.NewFFT(w)
		seq := make([]float64, w)
		half := make([]complex128, w/2+1)
		for i := 0; i < h; i++ {
			row := gray.Pix[gray.PixOffset(origin.X, origin.Y+i):]
			for j := range seq {
				seq[j] = Intensity(row[j])
			}
			fft.Coefficients(half, seq)
			out := coeffs[i*w : (i+1)*w]
			copy(out, half)
			for k := w/2 + 1; k < w; k++ {
				out[k] = cmplx.Conj(half[w-k])
			}
		}
	} else {
		fft := fourier.NewCmplxFFT(w)
		seq := make([]complex128, w)
		for i := 0; i < h; i++ {
			row := gray.Pix[gray.PixOffset(origin.X, origin.Y+i):]
			for j := range seq {
				seq[j] = complex(Intensity(row[j]), 0)
			}
			fft.Coefficients(coeffs[i*w:(i+1)*w], seq)
		}
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	freq := make([]complex128, h)
	for j := 0; j < w; j++ {
		for i := 0; i < h; i++ {
			col[i] = coeffs[i*w+j]
		}
		colFFT.Coefficients(freq, col)
		for i := 0; i < h; i++ {
			coeffs[i*w+j] = freq[i]
		}
	}

	s := &Spectrum{Height: h, Width: w, mag: make([]float64, h*w)}
	for i := 0; i < h; i++ {
		si := (i + h/2) % h
		for j := 0; j < w; j++ {
			sj := (j + w/2) % w
			s.mag[si*w+sj] = cmplx.Abs(coeffs[i*w+j])
		}
	}
	return s
}

// Bands sums the magnitudes on the boundary of each square ring around
// the center, for ring radii 0 to min(H/2, W/2)-1.
func (s *Spectrum) Bands() []float64 {
	n := min(s.Height/2, s.Width/2)
	if n <= 0 {
		return nil
	}
	ci, cj := s.Height/2, s.Width/2
	bands := make([]float64, n)
	for r := 0; r < n; r++ {
		var sum float64
		for k := r - 1; k > -r; k-- {
			sum += s.At(ci+k, cj+r)
		}
		for k := r; k > -r; k-- {
			sum += s.At(ci-r, cj+k)
		}
		for k := r - 1; k > -r; k-- {
			sum += s.At(ci+k, cj-r)
		}
		for k := r; k > -r; k-- {
			sum += s.At(ci+r, cj+k)
		}
		bands[r] = sum
	}
	return bands
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
