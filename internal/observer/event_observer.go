package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineEvent represents a step in the life of an enhancement job
type PipelineEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	JobID          string                 `json:"job_id,omitempty"`
	ImageURL       string                 `json:"image_url"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Labels         []string               `json:"labels,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// JobStarted when a conversion or analysis request begins
	JobStarted EventType = "job_started"
	// JobCompleted when a job produced its output
	JobCompleted EventType = "job_completed"
	// JobFailed when a job could not produce output
	JobFailed EventType = "job_failed"
	// ImageFetched when the source image was downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when the source image could not be downloaded
	ImageFetchFailed EventType = "image_fetch_failed"
	// EnhancementFallback when enhancement faulted and the original was kept
	EnhancementFallback EventType = "enhancement_fallback"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"image_url":          event.ImageURL,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
		"success":            event.Success,
	}
	if event.JobID != "" {
		fields["job_id"] = event.JobID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	if len(event.Labels) > 0 {
		fields["labels"] = event.Labels
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case JobStarted:
		entry.Info("Enhancement job started")
	case JobCompleted:
		entry.Info("Enhancement job completed")
	case JobFailed:
		entry.Error("Enhancement job failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	case EnhancementFallback:
		entry.Warn("Enhancement fell back to original image")
	default:
		entry.Info("Pipeline event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver aggregates counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalJobs           int64
	successfulJobs      int64
	failedJobs          int64
	fallbacks           int64
	fetchFailures       int64
	totalProcessingTime time.Duration
	labelCounts         map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{labelCounts: make(map[string]int64)}
}

// OnEvent handles pipeline events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case JobStarted:
		o.totalJobs++
	case JobCompleted:
		o.successfulJobs++
		o.totalProcessingTime += event.ProcessingTime
		for _, label := range event.Labels {
			o.labelCounts[label]++
		}
	case JobFailed:
		o.failedJobs++
	case ImageFetchFailed:
		o.fetchFailures++
	case EnhancementFallback:
		o.fallbacks++
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

	avgProcessingTime := time.Duration(0)
	if o.successfulJobs > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulJobs)
	}

	labels := make(map[string]int64, len(o.labelCounts))
	for k, v := range o.labelCounts {
		labels[k] = v
	}

	return map[string]interface{}{
		"total_jobs":             o.totalJobs,
		"successful_jobs":        o.successfulJobs,
		"failed_jobs":            o.failedJobs,
		"fetch_failures":         o.fetchFailures,
		"enhancement_fallbacks":  o.fallbacks,
		"avg_processing_time_ms": avgProcessingTime.Milliseconds(),
		"enhancements_applied":   labels,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	pending   sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{observers: make([]Observer, 0)}
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

// NotifyObservers delivers event to every observer concurrently. A panicking
// observer is logged and does not affect the others.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.pending.Add(1)
		go func(obs Observer) {
			defer p.pending.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(context.WithoutCancel(ctx), event)
		}(observer)
	}
}

// Flush blocks until every delivered event has been handled.
func (p *EventPublisher) Flush() {
	p.pending.Wait()
}
