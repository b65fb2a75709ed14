package observer

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type countingObserver struct {
	name  string
	count int32
}

func (c *countingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	atomic.AddInt32(&c.count, 1)
}

func (c *countingObserver) GetObserverName() string { return c.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	panic("boom")
}

func (panickingObserver) GetObserverName() string {
	return "panicking"
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	m.OnEvent(ctx, PipelineEvent{EventType: JobStarted})
	m.OnEvent(ctx, PipelineEvent{EventType: JobStarted})
	m.OnEvent(ctx, PipelineEvent{EventType: JobCompleted, ProcessingTime: 100 * time.Millisecond,
		Labels: []string{"Auto Sharpening", "Auto Color Enhancement"}})
	m.OnEvent(ctx, PipelineEvent{EventType: JobFailed})
	m.OnEvent(ctx, PipelineEvent{EventType: ImageFetchFailed})
	m.OnEvent(ctx, PipelineEvent{EventType: EnhancementFallback})

	got := m.GetMetrics()
	if got["total_jobs"] != int64(2) || got["successful_jobs"] != int64(1) || got["failed_jobs"] != int64(1) {
		t.Errorf("Unexpected job counters: %v", got)
	}
	if got["fetch_failures"] != int64(1) || got["enhancement_fallbacks"] != int64(1) {
		t.Errorf("Unexpected failure counters: %v", got)
	}
	if got["avg_processing_time_ms"] != int64(100) {
		t.Errorf("Expected 100ms average, got %v", got["avg_processing_time_ms"])
	}
	labels := got["enhancements_applied"].(map[string]int64)
	if labels["Auto Sharpening"] != 1 || labels["Auto Color Enhancement"] != 1 {
		t.Errorf("Unexpected label counts: %v", labels)
	}
}

func TestEventPublisher_NotifyAndUnsubscribe(t *testing.T) {
	p := NewEventPublisher()
	a := &countingObserver{name: "a"}
	b := &countingObserver{name: "b"}
	p.Subscribe(a)
	p.Subscribe(b)
	p.Subscribe(panickingObserver{})

	p.NotifyObservers(context.Background(), PipelineEvent{EventType: JobStarted})
	p.Flush()

	p.Unsubscribe(b)
	p.NotifyObservers(context.Background(), PipelineEvent{EventType: JobCompleted})
	p.Flush()

	if atomic.LoadInt32(&a.count) != 2 {
		t.Errorf("Expected observer a to receive 2 events, got %d", a.count)
	}
	if atomic.LoadInt32(&b.count) != 1 {
		t.Errorf("Expected observer b to receive 1 event, got %d", b.count)
	}
}

func TestLoggingObserver(t *testing.T) {
	var out bytes.Buffer
	log := logrus.New()
	log.SetOutput(&out)
	log.SetFormatter(&logrus.JSONFormatter{})

	o := NewLoggingObserver(log)
	o.OnEvent(context.Background(), PipelineEvent{
		EventType:    JobFailed,
		JobID:        "job-1",
		ImageURL:     "https://example.com/a.png",
		ErrorMessage: "decode failed",
	})

	line := out.String()
	for _, want := range []string{`"level":"error"`, `"job_id":"job-1"`, `"error":"decode failed"`, "Enhancement job failed"} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected log line to contain %s, got %s", want, line)
		}
	}
}
