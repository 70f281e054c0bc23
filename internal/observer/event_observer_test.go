package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type panicObserver struct{}

func (panicObserver) OnEvent(ctx context.Context, event Event) { panic("boom") }
func (panicObserver) GetObserverName() string                  { return "panic_observer" }

func TestMetricsObserver_Counts(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	events := []Event{
		{EventType: AnalysisStarted},
		{EventType: AnalysisCompleted, Score: 80, ProcessingTime: 20 * time.Millisecond},
		{EventType: AnalysisStarted},
		{EventType: AnalysisCompleted, Score: 20, ProcessingTime: 40 * time.Millisecond},
		{EventType: AnalysisStarted},
		{EventType: AnalysisFailed},
		{EventType: ImageFetchFailed},
		{EventType: TrainingCompleted, Samples: 7},
		{EventType: TrainingFailed},
		{EventType: ModelImported},
		{EventType: ModelReset},
	}
	for _, e := range events {
		m.OnEvent(ctx, e)
	}

	got := m.GetMetrics()
	want := Metrics{
		TotalAnalyses:      3,
		SuccessfulAnalyses: 2,
		FailedAnalyses:     1,
		FetchFailures:      1,
		AvgProcessingMs:    30,
		AvgScore:           50,
		HighScoreAnalyses:  1,
		TrainingRuns:       1,
		TrainingFailures:   1,
		SamplesTrained:     7,
		ModelImports:       1,
		ModelResets:        1,
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestLoggingObserver_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(log).OnEvent(context.Background(), Event{
		ID:        "abc",
		EventType: AnalysisCompleted,
		Source:    "https://example.com/a.png",
		Score:     42.5,
		Success:   true,
		Metadata:  map[string]interface{}{"indicators": 3},
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Image analysis completed" || entry["score"] != 42.5 || entry["analysis_id"] != "abc" {
		t.Errorf("Unexpected log entry %v", entry)
	}
	if entry["indicators"] != float64(3) {
		t.Errorf("Expected metadata to be logged, got %v", entry)
	}
}

func TestEventPublisher_FanOutAndRecover(t *testing.T) {
	p := NewEventPublisher()
	m := NewMetricsObserver()
	p.Subscribe(panicObserver{})
	p.Subscribe(m)

	p.NotifyObservers(context.Background(), Event{EventType: AnalysisStarted})
	p.Flush()
	if got := m.GetMetrics().TotalAnalyses; got != 1 {
		t.Errorf("Expected 1 analysis, got %d", got)
	}

	p.Unsubscribe(m)
	p.NotifyObservers(context.Background(), Event{EventType: AnalysisStarted})
	p.Flush()
	if got := m.GetMetrics().TotalAnalyses; got != 1 {
		t.Errorf("Expected unsubscribed observer to stay at 1, got %d", got)
	}
}
