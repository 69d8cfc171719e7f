package observer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type recordingObserver struct {
	name string
	mu   sync.Mutex
	seen []ScanEvent
	wg   *sync.WaitGroup
}

func (r *recordingObserver) OnEvent(ctx context.Context, event ScanEvent) {
	r.mu.Lock()
	r.seen = append(r.seen, event)
	r.mu.Unlock()
	if r.wg != nil {
		r.wg.Done()
	}
}

func (r *recordingObserver) GetObserverName() string { return r.name }

type panickingObserver struct{ wg *sync.WaitGroup }

func (p *panickingObserver) OnEvent(ctx context.Context, event ScanEvent) {
	defer p.wg.Done()
	panic("boom")
}

func (p *panickingObserver) GetObserverName() string { return "panicking" }

func TestEventPublisher_FanOutAndSequence(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(3)
	rec := &recordingObserver{name: "rec", wg: &wg}

	p := NewEventPublisher()
	p.Subscribe(rec)
	p.Subscribe(&panickingObserver{wg: &wg})

	p.NotifyObservers(context.Background(), ScanEvent{EventType: BarcodeAccepted, Success: true})
	wg.Wait()

	wg.Add(1)
	p.Unsubscribe(&panickingObserver{})
	p.NotifyObservers(context.Background(), ScanEvent{EventType: PhotoCaptured, Success: true})
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.seen) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(rec.seen))
	}
	if rec.seen[0].Sequence != 1 || rec.seen[1].Sequence != 2 {
		t.Errorf("Expected sequences 1 and 2, got %d and %d", rec.seen[0].Sequence, rec.seen[1].Sequence)
	}
	if rec.seen[0].Timestamp.IsZero() {
		t.Error("Expected timestamp to be stamped")
	}
}

func TestScoped_SetsSessionID(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	rec := &recordingObserver{name: "rec", wg: &wg}
	p := NewEventPublisher()
	p.Subscribe(rec)

	NewScoped(p, "abc").Publish(context.Background(), ScanEvent{EventType: NoticeRaised})
	wg.Wait()

	if rec.seen[0].SessionID != "abc" {
		t.Errorf("Expected session abc, got %q", rec.seen[0].SessionID)
	}

	// nil subject must not panic
	NewScoped(nil, "x").Publish(context.Background(), ScanEvent{})
}

func TestMetricsObserver_Counts(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	m.OnEvent(ctx, ScanEvent{EventType: BarcodeAccepted, Success: true})
	m.OnEvent(ctx, ScanEvent{EventType: OCRCompleted, Success: true, Duration: 200 * time.Millisecond})
	m.OnEvent(ctx, ScanEvent{EventType: OCRCompleted, Success: true, Duration: 400 * time.Millisecond})
	m.OnEvent(ctx, ScanEvent{EventType: OCRCompleted, Success: false})
	m.OnEvent(ctx, ScanEvent{EventType: PhotoCaptured, Success: true})
	m.OnEvent(ctx, ScanEvent{EventType: PhotoCaptured, Success: false})

	metrics := m.GetMetrics()
	if metrics["barcodes_accepted"].(int64) != 1 {
		t.Errorf("Expected 1 barcode, got %v", metrics["barcodes_accepted"])
	}
	if metrics["ocr_completed"].(int64) != 2 {
		t.Errorf("Expected 2 OCR completions, got %v", metrics["ocr_completed"])
	}
	if metrics["ocr_failures"].(int64) != 1 {
		t.Errorf("Expected 1 OCR failure, got %v", metrics["ocr_failures"])
	}
	if metrics["avg_ocr_time_ms"].(int64) != 300 {
		t.Errorf("Expected 300ms average, got %v", metrics["avg_ocr_time_ms"])
	}
	if metrics["photos_captured"].(int64) != 1 || metrics["capture_failures"].(int64) != 1 {
		t.Errorf("Unexpected capture counts: %v / %v", metrics["photos_captured"], metrics["capture_failures"])
	}
}

func TestLoggingObserver_DoesNotPanic(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	o := NewLoggingObserver(l)

	o.OnEvent(context.Background(), ScanEvent{EventType: FlowTransitioned, State: "initial", Success: true})
	o.OnEvent(context.Background(), ScanEvent{EventType: OCRCompleted, ErrorMessage: "engine down"})
	o.OnEvent(context.Background(), ScanEvent{EventType: ReportGenerated, Success: true, Duration: time.Second,
		Metadata: map[string]interface{}{"tags": 3}})
}
