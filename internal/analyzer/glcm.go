package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CooccurrenceMatrix is a normalized gray-level co-occurrence matrix.
// It is immutable once built.
type CooccurrenceMatrix struct {
	levels int
	pairs  int
	p      []float64
}

// Moments are the first and second moments of the matrix marginals.
type Moments struct {
	RowMean        float64
	ColumnMean     float64
	RowVariance    float64
	ColumnVariance float64
}

// NewCooccurrenceMatrix counts level pairs (p, p+(dy,dx)) over gray and
// normalizes the counts by the number of pairs processed.
func NewCooccurrenceMatrix(gray *image.Gray, opts TextureOptions) (*CooccurrenceMatrix, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	L := opts.Levels
	var lut [256]int
	for y := range lut {
		level := int(math.Floor(Intensity(uint8(y)) * float64(L)))
		if level >= L {
			level = L - 1
		}
		lut[y] = level
	}

	bounds := gray.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	i0, i1 := max(0, -opts.DY), min(h, h-opts.DY)
	j0, j1 := max(0, -opts.DX), min(w, w-opts.DX)

	m := &CooccurrenceMatrix{levels: L, p: make([]float64, L*L)}
	if i1 <= i0 || j1 <= j0 {
		return m, nil
	}

	counts := countPairs(gray, &lut, L, opts.DX, opts.DY, i0, i1, j0, j1)
	m.pairs = (i1 - i0) * (j1 - j0)
	n := float64(m.pairs)
	for k, c := range counts {
		m.p[k] = c / n
	}
	return m, nil
}

// countPairs splits the row range into horizontal strips counted in
// parallel when the per-worker matrices are small next to the image.
func countPairs(gray *image.Gray, lut *[256]int, L, dx, dy, i0, i1, j0, j1 int) []float64 {
	rows := i1 - i0
	cells := L * L
	numWorkers := runtime.NumCPU()
	if rows < numWorkers {
		numWorkers = rows
	}
	if numWorkers < 2 || cells*numWorkers > rows*(j1-j0) {
		counts := make([]float64, cells)
		countStrip(gray, lut, L, dx, dy, i0, i1, j0, j1, counts)
		return counts
	}

	rowsPerWorker := (rows + numWorkers - 1) / numWorkers
	results := make(chan []float64, numWorkers)
	var wg sync.WaitGroup
	for start := i0; start < i1; start += rowsPerWorker {
		end := min(start+rowsPerWorker, i1)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			counts := make([]float64, cells)
			countStrip(gray, lut, L, dx, dy, start, end, j0, j1, counts)
			results <- counts
		}(start, end)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var total []float64
	for counts := range results {
		if total == nil {
			total = counts
			continue
		}
		floats.Add(total, counts)
	}
	return total
}

func countStrip(gray *image.Gray, lut *[256]int, L, dx, dy, i0, i1, j0, j1 int, counts []float64) {
	origin := gray.Rect.Min
	for i := i0; i < i1; i++ {
		row := gray.Pix[gray.PixOffset(origin.X, origin.Y+i):]
		next := gray.Pix[gray.PixOffset(origin.X, origin.Y+i+dy):]
		for j := j0; j < j1; j++ {
			a := lut[row[j]]
			b := lut[next[j+dx]]
			counts[a*L+b]++
		}
	}
}

// Levels returns the matrix dimension.
func (m *CooccurrenceMatrix) Levels() int { return m.levels }

// Pairs returns the number of pixel pairs that were counted.
func (m *CooccurrenceMatrix) Pairs() int { return m.pairs }

// At returns P[i][j].
func (m *CooccurrenceMatrix) At(i, j int) float64 { return m.p[i*m.levels+j] }

// Sum returns the total probability mass.
func (m *CooccurrenceMatrix) Sum() float64 { return floats.Sum(m.p) }

// Marginals returns the row and column sums of the matrix.
func (m *CooccurrenceMatrix) Marginals() (rows, cols []float64) {
	L := m.levels
	rows = make([]float64, L)
	cols = make([]float64, L)
	for i := 0; i < L; i++ {
		for j := 0; j < L; j++ {
			v := m.p[i*L+j]
			rows[i] += v
			cols[j] += v
		}
	}
	return rows, cols
}

// Moments returns the marginal means and population variances.
func (m *CooccurrenceMatrix) Moments() Moments {
	rows, cols := m.Marginals()
	idx := make([]float64, m.levels)
	for i := range idx {
		idx[i] = float64(i)
	}
	var mo Moments
	mo.RowMean, mo.RowVariance = stat.PopMeanVariance(idx, rows)
	mo.ColumnMean, mo.ColumnVariance = stat.PopMeanVariance(idx, cols)
	return mo
}

// Contrast returns Σ (i-j)² P[i][j].
func (m *CooccurrenceMatrix) Contrast() float64 {
	L := m.levels
	var sum float64
	for i := 0; i < L; i++ {
		for j := 0; j < L; j++ {
			d := float64(i - j)
			sum += d * d * m.p[i*L+j]
		}
	}
	return sum
}

// Correlation returns the linear dependency of neighboring levels. ok is
// false when either marginal has zero variance.
func (m *CooccurrenceMatrix) Correlation() (float64, bool) {
	mo := m.Moments()
	if mo.RowVariance == 0 || mo.ColumnVariance == 0 {
		return 0, false
	}
	L := m.levels
	var sum float64
	for i := 0; i < L; i++ {
		for j := 0; j < L; j++ {
			sum += float64(i) * float64(j) * m.p[i*L+j]
		}
	}
	return (sum - mo.RowMean*mo.ColumnMean) / (math.Sqrt(mo.RowVariance) * math.Sqrt(mo.ColumnVariance)), true
}

// Energy returns Σ P[i][j]².
func (m *CooccurrenceMatrix) Energy() float64 { return floats.Dot(m.p, m.p) }

// Entropy returns -Σ P log2 P over the nonzero cells.
func (m *CooccurrenceMatrix) Entropy() float64 { return stat.Entropy(m.p) / math.Ln2 }

// Homogeneity returns Σ P[i][j] / (1 + |i-j|).
func (m *CooccurrenceMatrix) Homogeneity() float64 {
	L := m.levels
	var sum float64
	for i := 0; i < L; i++ {
		for j := 0; j < L; j++ {
			sum += m.p[i*L+j] / (1 + math.Abs(float64(i-j)))
		}
	}
	return sum
}

// MaxProbability returns the largest cell.
func (m *CooccurrenceMatrix) MaxProbability() float64 { return floats.Max(m.p) }
