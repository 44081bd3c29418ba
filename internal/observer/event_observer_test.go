package observer

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type recordingObserver struct {
	name   string
	mu     sync.Mutex
	events []PassEvent
}

func (r *recordingObserver) OnEvent(_ context.Context, event PassEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) GetObserverName() string { return r.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, PassEvent) { panic("observer bug") }
func (panickingObserver) GetObserverName() string           { return "panicking" }

func TestEventPublisher_Notify(t *testing.T) {
	publisher := NewEventPublisher()
	first := &recordingObserver{name: "first"}
	second := &recordingObserver{name: "second"}
	publisher.Subscribe(first)
	publisher.Subscribe(second)
	publisher.Subscribe(panickingObserver{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	publisher.NotifyObservers(ctx, PassEvent{EventType: PassStarted, PassID: "p1"})
	publisher.Flush()

	for _, obs := range []*recordingObserver{first, second} {
		if len(obs.events) != 1 {
			t.Fatalf("%s received %d events", obs.name, len(obs.events))
		}
		if obs.events[0].Timestamp.IsZero() {
			t.Errorf("%s: timestamp not set", obs.name)
		}
	}

	publisher.Unsubscribe(first)
	publisher.NotifyObservers(context.Background(), PassEvent{EventType: PassCompleted, PassID: "p1"})
	publisher.Flush()
	if len(first.events) != 1 || len(second.events) != 2 {
		t.Errorf("after unsubscribe: first=%d second=%d", len(first.events), len(second.events))
	}
}

func TestMetricsObserver(t *testing.T) {
	metrics := NewMetricsObserver()
	ctx := context.Background()
	events := []PassEvent{
		{EventType: PassStarted},
		{EventType: UnitCompleted},
		{EventType: UnitCompleted},
		{EventType: UnitFailed},
		{EventType: PassFailed, Duration: 2 * time.Second},
		{EventType: PassStarted},
		{EventType: PassCompleted, Duration: 4 * time.Second},
	}
	for _, e := range events {
		metrics.OnEvent(ctx, e)
	}

	got := metrics.GetMetrics()
	want := map[string]interface{}{
		"passes_started":    int64(2),
		"passes_completed":  int64(1),
		"passes_failed":     int64(1),
		"units_completed":   int64(2),
		"units_failed":      int64(1),
		"average_pass_time": (3 * time.Second).String(),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)

	obs := NewLoggingObserver(logger)
	obs.OnEvent(context.Background(), PassEvent{
		EventType: UnitFailed,
		PassID:    "p9",
		ImageID:   "img",
		Tagger:    "histogram",
		Error:     "decode failed",
	})

	out := buf.String()
	for _, want := range []string{`"pass_id":"p9"`, `"tagger":"histogram"`, `"level":"warning"`, "Tagging unit failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
