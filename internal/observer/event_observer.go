package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-search-go/internal/logger"
)

// PassEvent describes a step of a tagging pass
type PassEvent struct {
	EventType EventType              `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	PassID    string                 `json:"pass_id"`
	ImageID   string                 `json:"image_id,omitempty"`
	Tagger    string                 `json:"tagger,omitempty"`
	Duration  time.Duration          `json:"duration_ns,omitempty"`
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pass event
type EventType string

const (
	// PassStarted when the row set of a pass has been resolved
	PassStarted EventType = "pass.started"
	// UnitCompleted when one tagger produced a value (or none) for one image
	UnitCompleted EventType = "unit.completed"
	// UnitFailed when one tagger failed on one image
	UnitFailed EventType = "unit.failed"
	// PassCompleted when every result of a pass has been written
	PassCompleted EventType = "pass.completed"
	// PassFailed when a pass finished with at least one failure
	PassFailed EventType = "pass.failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PassEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PassEvent)
}

// LoggingObserver logs pass events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pass events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PassEvent) {
	fields := logrus.Fields{
		"event_type":       event.EventType,
		logger.FieldPassID: event.PassID,
		"success":          event.Success,
	}
	if event.ImageID != "" {
		fields[logger.FieldImageID] = event.ImageID
	}
	if event.Tagger != "" {
		fields[logger.FieldTagger] = event.Tagger
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case PassStarted:
		entry.Info("Tagging pass started")
	case PassCompleted:
		entry.Info("Tagging pass completed")
	case PassFailed:
		entry.Error("Tagging pass failed")
	case UnitCompleted:
		entry.Debug("Tagging unit completed")
	case UnitFailed:
		entry.Warn("Tagging unit failed")
	default:
		entry.Info("Pass event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from pass events
type MetricsObserver struct {
	mu             sync.RWMutex
	passesStarted  int64
	passesOK       int64
	passesFailed   int64
	unitsCompleted int64
	unitsFailed    int64
	totalPassTime  time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles pass events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event PassEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case PassStarted:
		o.passesStarted++
	case PassCompleted:
		o.passesOK++
		o.totalPassTime += event.Duration
	case PassFailed:
		o.passesFailed++
		o.totalPassTime += event.Duration
	case UnitCompleted:
		o.unitsCompleted++
	case UnitFailed:
		o.unitsFailed++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgPassTime := time.Duration(0)
	if finished := o.passesOK + o.passesFailed; finished > 0 {
		avgPassTime = o.totalPassTime / time.Duration(finished)
	}

	return map[string]interface{}{
		"passes_started":    o.passesStarted,
		"passes_completed":  o.passesOK,
		"passes_failed":     o.passesFailed,
		"units_completed":   o.unitsCompleted,
		"units_failed":      o.unitsFailed,
		"total_pass_time":   o.totalPassTime.String(),
		"average_pass_time": avgPassTime.String(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event without blocking the caller
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PassEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// observers outlive the request that produced the event
	ctx = context.WithoutCancel(ctx)
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Flush waits for notifications already handed to observers.
func (p *EventPublisher) Flush() {
	p.inflight.Wait()
}
