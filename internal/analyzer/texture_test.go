package analyzer

import (
	"image/color"
	"math"
	"sync"
	"testing"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

func newTextureTaggers(t *testing.T, opts TextureOptions) map[string]Tagger {
	t.Helper()
	constructors := map[string]func(TextureOptions) (Tagger, error){
		"contrast":       NewContrastTagger,
		"correlation":    NewCorrelationTagger,
		"energy":         NewEnergyTagger,
		"entropy":        NewEntropyTagger,
		"homogeneity":    NewHomogeneityTagger,
		"maxProbability": NewMaxProbabilityTagger,
	}
	out := make(map[string]Tagger, len(constructors))
	for name, construct := range constructors {
		tagger, err := construct(opts)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		out[name] = tagger
	}
	return out
}

func TestTextureTaggers_UniformMidGray(t *testing.T) {
	taggers := newTextureTaggers(t, DefaultTextureOptions())
	frame := NewFrame(createTestImage(8, 8, color.RGBA{128, 128, 128, 255}))

	want := map[string]any{
		"contrast":       0.0,
		"correlation":    nil,
		"energy":         1.0,
		"entropy":        0.0,
		"homogeneity":    1.0,
		"maxProbability": 1.0,
	}
	for name, tagger := range taggers {
		t.Run(name, func(t *testing.T) {
			if tagger.Kind() != KindNumber {
				t.Errorf("Kind() = %s", tagger.Kind())
			}
			got, err := tagger.Tag(frame)
			if err != nil {
				t.Fatalf("Tag() error = %v", err)
			}
			if got != want[name] {
				t.Errorf("Tag() = %v, want %v", got, want[name])
			}
		})
	}
}

func TestTextureTaggers_Capabilities(t *testing.T) {
	taggers := newTextureTaggers(t, DefaultTextureOptions())
	for name, tagger := range taggers {
		caps := CapabilitiesOf(tagger)
		wantRanked := name != "entropy"
		if caps.ParseLiteral != wantRanked || caps.Distance != wantRanked {
			t.Errorf("%s: capabilities = %+v", name, caps)
		}
	}
}

func TestTextureTaggers_Distance(t *testing.T) {
	taggers := newTextureTaggers(t, DefaultTextureOptions())
	tests := []struct {
		tagger string
		a, b   any
		want   float64
	}{
		{"contrast", 2.0, 5.0, 3},
		{"contrast", 5.0, 2.0, 3},
		{"homogeneity", 0.25, 0.75, 0.5},
		{"maxProbability", 0.5, 0.25, 0.25},
		{"correlation", 0.2, 0.7, -0.5},
		{"energy", 0.7, 0.2, 0.5},
		{"energy", int64(1), 0.5, 0.5},
	}
	for _, tt := range tests {
		d, ok, err := taggers[tt.tagger].(Distancer).Distance(tt.a, tt.b)
		if err != nil || !ok {
			t.Fatalf("%s: Distance() = (%v, %v)", tt.tagger, ok, err)
		}
		if math.Abs(d-tt.want) > 1e-12 {
			t.Errorf("%s: Distance(%v, %v) = %f, want %f", tt.tagger, tt.a, tt.b, d, tt.want)
		}
	}

	_, _, err := taggers["contrast"].(Distancer).Distance("text", 1.0)
	if !apperrors.IsType(err, apperrors.ErrorTypeIncomparableValues) {
		t.Errorf("expected incomparable values, got %v", err)
	}
}

func TestTextureTaggers_ParseLiteral(t *testing.T) {
	parser := newTextureTaggers(t, DefaultTextureOptions())["contrast"].(LiteralParser)

	v, err := parser.ParseLiteral(" 3.25 ")
	if err != nil || v != 3.25 {
		t.Errorf("ParseLiteral() = (%v, %v)", v, err)
	}
	if _, err := parser.ParseLiteral("high"); !apperrors.IsType(err, apperrors.ErrorTypeInvalidLiteral) {
		t.Errorf("expected invalid literal, got %v", err)
	}
}

func TestTextureTaggers_Configuration(t *testing.T) {
	if _, err := NewContrastTagger(DefaultTextureOptions().WithLevels(0xb505)); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, err := NewEntropyTagger(DefaultTextureOptions().WithLevels(0)); err == nil {
		t.Error("expected error for zero levels")
	}
}

func TestTextureTaggers_NoPairsAbsent(t *testing.T) {
	tagger, err := NewContrastTagger(DefaultTextureOptions().WithOffset(4, 0))
	if err != nil {
		t.Fatal(err)
	}
	v, err := tagger.Tag(createNoiseImage(3, 3, 1))
	if err != nil || v != nil {
		t.Errorf("Tag() = (%v, %v), want absent", v, err)
	}
}

func TestTextureTaggers_ConcurrentSharedFrame(t *testing.T) {
	taggers := newTextureTaggers(t, DefaultTextureOptions())
	img := createNoiseImage(64, 64, 4)
	frame := NewFrame(img)

	want := make(map[string]any)
	for name, tagger := range taggers {
		v, err := tagger.Tag(img)
		if err != nil {
			t.Fatal(err)
		}
		want[name] = v
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	got := make(map[string][]any)
	for i := 0; i < 4; i++ {
		for name, tagger := range taggers {
			wg.Add(1)
			go func(name string, tagger Tagger) {
				defer wg.Done()
				v, err := tagger.Tag(frame)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				got[name] = append(got[name], v)
				mu.Unlock()
			}(name, tagger)
		}
	}
	wg.Wait()

	for name, values := range got {
		for _, v := range values {
			if v != want[name] {
				t.Errorf("%s: framed %v, plain %v", name, v, want[name])
			}
		}
	}
}

func TestFrame_MemoRunsOnce(t *testing.T) {
	frame := NewFrame(createNoiseImage(4, 4, 1))
	calls := 0
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = frame.Memo("key", func() (any, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return 1, nil
			})
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Errorf("memo function ran %d times, want 1", calls)
	}
	if NewFrame(frame) != frame {
		t.Error("NewFrame should not wrap a frame twice")
	}
	if frame.Gray() != frame.Gray() {
		t.Error("Gray() should be computed once")
	}
}
