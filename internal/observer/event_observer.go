package observer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ScanEvent represents something that happened inside a scan session
type ScanEvent struct {
	Sequence     int64                  `json:"sequence"`
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	SessionID    string                 `json:"session_id,omitempty"`
	State        string                 `json:"state,omitempty"`
	Duration     time.Duration          `json:"duration,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of scan event
type EventType string

const (
	// FlowTransitioned when the flow controller changes state
	FlowTransitioned EventType = "flow_transitioned"
	// NoticeRaised when a user-facing notice is produced
	NoticeRaised EventType = "notice"
	// BarcodeAccepted when a barcode passes validation and debounce
	BarcodeAccepted EventType = "barcode_accepted"
	// PhotoCaptured when the camera returns a photo
	PhotoCaptured EventType = "photo_captured"
	// OCRCompleted when recognition finishes, successfully or not
	OCRCompleted EventType = "ocr_completed"
	// ReportGenerated when AI report generation settles
	ReportGenerated EventType = "report_generated"
	// AssociationsPersisted when ingredient/additive links are written
	AssociationsPersisted EventType = "associations_persisted"
	// CameraCommand when a command must be pushed to the client camera
	CameraCommand EventType = "camera_command"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ScanEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ScanEvent)
}

// LoggingObserver logs scan events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles scan events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ScanEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
		"sequence":   event.Sequence,
		"success":    event.Success,
	}
	if event.State != "" {
		fields["state"] = event.State
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch {
	case event.EventType == FlowTransitioned, event.EventType == CameraCommand:
		entry.Debug("Scan flow event")
	case !event.Success:
		entry.Warn("Scan step failed")
	default:
		entry.Info("Scan step completed")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from scan events
type MetricsObserver struct {
	mu               sync.RWMutex
	counts           map[EventType]int64
	failures         map[EventType]int64
	totalOCRTime     time.Duration
	totalReportTime  time.Duration
	successfulOCR    int64
	successfulReport int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		counts:   make(map[EventType]int64),
		failures: make(map[EventType]int64),
	}
}

// OnEvent handles scan events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ScanEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.counts[event.EventType]++
	if !event.Success {
		o.failures[event.EventType]++
		return
	}

	switch event.EventType {
	case OCRCompleted:
		o.successfulOCR++
		o.totalOCRTime += event.Duration
	case ReportGenerated:
		o.successfulReport++
		o.totalReportTime += event.Duration
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

	avgOCR := time.Duration(0)
	if o.successfulOCR > 0 {
		avgOCR = o.totalOCRTime / time.Duration(o.successfulOCR)
	}
	avgReport := time.Duration(0)
	if o.successfulReport > 0 {
		avgReport = o.totalReportTime / time.Duration(o.successfulReport)
	}

	return map[string]interface{}{
		"barcodes_accepted":      o.counts[BarcodeAccepted],
		"photos_captured":        o.counts[PhotoCaptured] - o.failures[PhotoCaptured],
		"capture_failures":       o.failures[PhotoCaptured],
		"ocr_completed":          o.successfulOCR,
		"ocr_failures":           o.failures[OCRCompleted],
		"reports_generated":      o.successfulReport,
		"report_failures":        o.failures[ReportGenerated],
		"associations_persisted": o.counts[AssociationsPersisted] - o.failures[AssociationsPersisted],
		"association_failures":   o.failures[AssociationsPersisted],
		"flow_transitions":       o.counts[FlowTransitioned],
		"avg_ocr_time_ms":        avgOCR.Milliseconds(),
		"avg_report_time_ms":     avgReport.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	sequence  atomic.Int64
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

// NotifyObservers stamps the event and notifies all observers concurrently.
// Observers may see events out of order; Sequence gives the publish order.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ScanEvent) {
	event.Sequence = p.sequence.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Scoped publishes on behalf of one session, filling SessionID
type Scoped struct {
	subject   Subject
	sessionID string
}

// NewScoped wraps a subject for a session. A nil subject discards events.
func NewScoped(subject Subject, sessionID string) *Scoped {
	return &Scoped{subject: subject, sessionID: sessionID}
}

// Publish sends an event tagged with the session id
func (s *Scoped) Publish(ctx context.Context, event ScanEvent) {
	if s == nil || s.subject == nil {
		return
	}
	event.SessionID = s.sessionID
	s.subject.NotifyObservers(ctx, event)
}
