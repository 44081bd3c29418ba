package catalogue

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/internal/storage"
	"github.com/anime-shed/image-search-go/internal/worker"
)

// widthTagger tags an image with its width.
type widthTagger struct {
	calls atomic.Int32
}

func (w *widthTagger) Kind() analyzer.Kind { return analyzer.KindNumber }

func (w *widthTagger) Tag(img image.Image) (any, error) {
	w.calls.Add(1)
	return float64(img.Bounds().Dx()), nil
}

func (w *widthTagger) ParseLiteral(text string) (any, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, apperrors.NewInvalidLiteral(fmt.Sprintf("not a number: %q", text), err)
	}
	return v, nil
}

func (w *widthTagger) Distance(a, b any) (float64, bool, error) {
	x, err := analyzer.AsNumber(a)
	if err != nil {
		return 0, false, apperrors.NewIncomparableValues("width", err)
	}
	y, err := analyzer.AsNumber(b)
	if err != nil {
		return 0, false, apperrors.NewIncomparableValues("width", err)
	}
	return math.Abs(x - y), true, nil
}

// funcTagger delegates to fn and has no optional capabilities.
type funcTagger struct {
	kind analyzer.Kind
	fn   func(img image.Image) (any, error)
}

func (f funcTagger) Kind() analyzer.Kind { return f.kind }

func (f funcTagger) Tag(img image.Image) (any, error) { return f.fn(img) }

func writePNG(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*31 + y*17) % 256)})
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("img_%dx%d_%d.png", width, height, time.Now().UnixNano()))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	db, err := OpenDB(DriverCgo, filepath.Join(t.TempDir(), "catalogue.db"), size)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	pool, err := NewPool(context.Background(), db, size)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		db.Close()
	})
	return pool
}

func newTestCatalogue(t *testing.T, poolSize int, opts ...Option) *Catalogue {
	t.Helper()
	cat, err := Open(context.Background(), newTestPool(t, poolSize), analyzer.NewRegistry(), storage.NewFileLoader(), opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return cat
}

func newTestWorkers(t *testing.T) *worker.WorkerPool {
	t.Helper()
	workers := worker.NewWorkerPool(4)
	t.Cleanup(func() { workers.Shutdown(5 * time.Second) })
	return workers
}

func mustRegister(t *testing.T, cat *Catalogue, name string, tagger analyzer.Tagger) *Pass {
	t.Helper()
	pass, err := cat.Register(context.Background(), name, tagger)
	if err != nil {
		t.Fatalf("Register(%s) error = %v", name, err)
	}
	return pass
}

func mustAdd(t *testing.T, cat *Catalogue, path string) (*Pass, string) {
	t.Helper()
	pass, id, err := cat.AddImage(context.Background(), path)
	if err != nil {
		t.Fatalf("AddImage(%s) error = %v", path, err)
	}
	return pass, id.String()
}

func mustRun(t *testing.T, pass *Pass, workers *worker.WorkerPool) *Report {
	t.Helper()
	report, err := pass.Run(context.Background(), workers)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return report
}

func widths(t *testing.T, images []Image) map[float64]bool {
	t.Helper()
	out := make(map[float64]bool)
	for _, img := range images {
		v, ok := img.Tag("width")
		if !ok {
			t.Fatalf("image %s has no width", img.ID)
		}
		out[v.(float64)] = true
	}
	return out
}

func columnCount(t *testing.T, cat *Catalogue, column string) int {
	t.Helper()
	h, err := cat.pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	var n int
	err = h.Conn().QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM pragma_table_info('images') WHERE name = ?`, column).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

var errBoom = errors.New("boom")

func storageLoader() storage.ImageLoader { return storage.NewFileLoader() }
