package barcode

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-catfood-scanner/pkg/models"
)

type fixedMode struct {
	mu   sync.Mutex
	mode models.CaptureMode
}

func (f *fixedMode) Mode() models.CaptureMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fixedMode) set(mode models.CaptureMode) {
	f.mu.Lock()
	f.mode = mode
	f.mu.Unlock()
}

type acceptRecorder struct {
	mu     sync.Mutex
	events []models.BarcodeScanEvent
}

func (r *acceptRecorder) record(event models.BarcodeScanEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *acceptRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestGate(mode models.CaptureMode) (*Gate, *fixedMode, *acceptRecorder) {
	modes := &fixedMode{mode: mode}
	rec := &acceptRecorder{}
	gate := NewGate(GateConfig{Window: time.Second, Modes: modes, OnAccept: rec.record})
	return gate, modes, rec
}

func TestGate_DropsBeforeReadyWithoutStateUpdate(t *testing.T) {
	gate, _, rec := newTestGate(models.CaptureModeBarcode)

	if d := gate.Offer(ean("1234567890128", 1000)); d != DroppedNotReady {
		t.Errorf("Expected %s, got %s", DroppedNotReady, d)
	}

	gate.MarkReady()
	// Same payload inside the window: accepted because the earlier drop left no trace
	if d := gate.Offer(ean("1234567890128", 1100)); d != Accepted {
		t.Errorf("Expected %s, got %s", Accepted, d)
	}
	if rec.count() != 1 {
		t.Errorf("Expected 1 callback, got %d", rec.count())
	}
}

func TestGate_Decisions(t *testing.T) {
	tests := []struct {
		name     string
		mode     models.CaptureMode
		event    models.BarcodeScanEvent
		expected Decision
	}{
		{"photo mode", models.CaptureModePhoto, ean("1234567890128", 0), DroppedWrongMode},
		{"short ean13", models.CaptureModeBarcode, ean("123456", 0), Rejected},
		{"empty payload", models.CaptureModeBarcode, models.BarcodeScanEvent{Symbology: models.SymbologyQR}, Rejected},
		{"code128 free shape", models.CaptureModeBarcode,
			models.BarcodeScanEvent{Payload: "ABC123", Symbology: models.SymbologyCode128}, Accepted},
		{"valid ean13", models.CaptureModeBarcode, ean("1234567890128", 0), Accepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, _, rec := newTestGate(tt.mode)
			gate.MarkReady()

			if d := gate.Offer(tt.event); d != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, d)
			}
			want := 0
			if tt.expected == Accepted {
				want = 1
			}
			if rec.count() != want {
				t.Errorf("Expected %d callbacks, got %d", want, rec.count())
			}
		})
	}
}

func TestGate_DebounceIdempotence(t *testing.T) {
	gate, _, rec := newTestGate(models.CaptureModeBarcode)
	gate.MarkReady()

	for i := int64(0); i < 20; i++ {
		gate.Offer(ean("1234567890128", 5000+i*10))
	}
	if rec.count() != 1 {
		t.Fatalf("Expected 1 callback within the window, got %d", rec.count())
	}

	gate.Offer(ean("1234567890128", 6500))
	if rec.count() != 2 {
		t.Errorf("Expected 2 callbacks after the window, got %d", rec.count())
	}
}

func TestGate_ModeSwitchTakesEffect(t *testing.T) {
	gate, modes, rec := newTestGate(models.CaptureModeBarcode)
	gate.MarkReady()

	modes.set(models.CaptureModePhoto)
	gate.Offer(ean("1234567890128", 0))
	modes.set(models.CaptureModeBarcode)
	gate.Offer(ean("1234567890128", 10))

	if rec.count() != 1 {
		t.Errorf("Expected 1 callback, got %d", rec.count())
	}
}

func TestGate_OnDecision(t *testing.T) {
	var decisions []Decision
	gate := NewGate(GateConfig{
		Modes:      &fixedMode{mode: models.CaptureModeBarcode},
		OnDecision: func(_ models.BarcodeScanEvent, d Decision) { decisions = append(decisions, d) },
	})
	gate.Offer(ean("1234567890128", 0))
	gate.MarkReady()
	gate.Offer(ean("1234567890128", 0))
	gate.Offer(ean("1234567890128", 1))

	expected := []Decision{DroppedNotReady, Accepted, Debounced}
	if len(decisions) != len(expected) {
		t.Fatalf("Expected %d decisions, got %d", len(expected), len(decisions))
	}
	for i := range expected {
		if decisions[i] != expected[i] {
			t.Errorf("Decision %d: expected %s, got %s", i, expected[i], decisions[i])
		}
	}
}

func TestGate_RunConsumesQueueInOrder(t *testing.T) {
	gate, _, rec := newTestGate(models.CaptureModeBarcode)
	gate.MarkReady()

	queue := NewQueue(8)
	payloads := []string{"1234567890128", "4006381333931", "5901234123457"}
	for i, p := range payloads {
		queue.Push(ean(p, int64(i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gate.Run(ctx, queue)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < len(payloads) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != len(payloads) {
		t.Fatalf("Expected %d events, got %d", len(payloads), len(rec.events))
	}
	for i, p := range payloads {
		if rec.events[i].Payload != p {
			t.Errorf("Event %d: expected %s, got %s", i, p, rec.events[i].Payload)
		}
	}
}

type latch struct {
	mu      sync.Mutex
	handled bool
}

func (l *latch) Handled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handled
}

func (l *latch) set(v bool) {
	l.mu.Lock()
	l.handled = v
	l.mu.Unlock()
}

func TestGate_LatchDropsEventsQueuedBeforeIt(t *testing.T) {
	l := &latch{}
	rec := &acceptRecorder{}
	var decisions []Decision
	gate := NewGate(GateConfig{
		Window: time.Second,
		Modes:  &fixedMode{mode: models.CaptureModeBarcode},
		Latch:  l,
		OnAccept: func(event models.BarcodeScanEvent) {
			rec.record(event)
			l.set(true)
		},
		OnDecision: func(_ models.BarcodeScanEvent, d Decision) { decisions = append(decisions, d) },
	})
	gate.MarkReady()

	queue := NewQueue(8)
	queue.Push(ean("1234567890128", 0))
	queue.Push(ean("4006381333931", 10))
	for queue.Len() > 0 {
		gate.Offer(<-queue.Events())
	}

	expected := []Decision{Accepted, DroppedHandled}
	if len(decisions) != len(expected) {
		t.Fatalf("Expected %d decisions, got %v", len(expected), decisions)
	}
	for i := range expected {
		if decisions[i] != expected[i] {
			t.Errorf("Decision %d: expected %s, got %s", i, expected[i], decisions[i])
		}
	}
	if rec.count() != 1 || rec.events[0].Payload != "1234567890128" {
		t.Errorf("Expected only the first payload accepted, got %v", rec.events)
	}

	l.set(false)
	if d := gate.Offer(ean("4006381333931", 20)); d != Accepted {
		t.Errorf("Expected acceptance after the latch is cleared, got %s", d)
	}
}
