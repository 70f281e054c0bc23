// Package observer fans detector events out to logging and metrics sinks.
package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType represents the type of detector event
type EventType string

const (
	AnalysisStarted   EventType = "analysis_started"
	AnalysisCompleted EventType = "analysis_completed"
	AnalysisFailed    EventType = "analysis_failed"
	ImageFetched      EventType = "image_fetched"
	ImageFetchFailed  EventType = "image_fetch_failed"
	TrainingCompleted EventType = "training_completed"
	TrainingFailed    EventType = "training_failed"
	ModelImported     EventType = "model_imported"
	ModelExported     EventType = "model_exported"
	ModelReset        EventType = "model_reset"
	ModelImportFailed EventType = "model_import_failed"
)

// Event describes one thing that happened in the detection service.
type Event struct {
	ID             string                 `json:"id,omitempty"`
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Score          float64                `json:"score,omitempty"`
	Samples        int                    `json:"samples,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event Event)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event Event)
}

// LoggingObserver logs detector events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

// OnEvent logs the event at a level matching its outcome
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logrus.Fields{
		"event_type":  event.EventType,
		"duration_ms": event.ProcessingTime.Milliseconds(),
		"success":     event.Success,
	}
	if event.ID != "" {
		fields["analysis_id"] = event.ID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.EventType == AnalysisCompleted {
		fields["score"] = event.Score
	}
	if event.Samples > 0 {
		fields["samples"] = event.Samples
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Debug("Image analysis started")
	case AnalysisCompleted:
		entry.Info("Image analysis completed")
	case AnalysisFailed:
		entry.Error("Image analysis failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Warn("Image fetch failed")
	case TrainingCompleted:
		entry.Info("Training completed")
	case TrainingFailed:
		entry.Warn("Training failed")
	case ModelImportFailed:
		entry.Warn("Model import rejected")
	default:
		entry.Info("Detector event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of MetricsObserver counters.
type Metrics struct {
	TotalAnalyses      int64   `json:"total_analyses"`
	SuccessfulAnalyses int64   `json:"successful_analyses"`
	FailedAnalyses     int64   `json:"failed_analyses"`
	FetchFailures      int64   `json:"fetch_failures"`
	AvgProcessingMs    float64 `json:"avg_processing_ms"`
	AvgScore           float64 `json:"avg_score"`
	HighScoreAnalyses  int64   `json:"high_score_analyses"`
	TrainingRuns       int64   `json:"training_runs"`
	TrainingFailures   int64   `json:"training_failures"`
	SamplesTrained     int64   `json:"samples_trained"`
	ModelImports       int64   `json:"model_imports"`
	ModelResets        int64   `json:"model_resets"`
}

// HighScore is the score at or above which an analysis counts as likely AI.
const HighScore = 70

// MetricsObserver collects counters from detector events
type MetricsObserver struct {
	mu                  sync.RWMutex
	m                   Metrics
	totalProcessingTime time.Duration
	totalScore          float64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent updates counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.m.TotalAnalyses++
	case AnalysisCompleted:
		o.m.SuccessfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
		o.totalScore += event.Score
		if event.Score >= HighScore {
			o.m.HighScoreAnalyses++
		}
	case AnalysisFailed:
		o.m.FailedAnalyses++
	case ImageFetchFailed:
		o.m.FetchFailures++
	case TrainingCompleted:
		o.m.TrainingRuns++
		o.m.SamplesTrained += int64(event.Samples)
	case TrainingFailed:
		o.m.TrainingFailures++
	case ModelImported:
		o.m.ModelImports++
	case ModelReset:
		o.m.ModelResets++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := o.m
	if m.SuccessfulAnalyses > 0 {
		n := float64(m.SuccessfulAnalyses)
		m.AvgProcessingMs = float64(o.totalProcessingTime.Milliseconds()) / n
		m.AvgScore = o.totalScore / n
	}
	return m
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
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

// NotifyObservers delivers event to every observer on its own goroutine.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
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

// Flush blocks until every notification delivered so far has been handled.
func (p *EventPublisher) Flush() {
	p.wg.Wait()
}
