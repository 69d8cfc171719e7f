package barcode

import (
	"time"

	"go-catfood-scanner/pkg/models"
)

// DefaultDebounceWindow suppresses repeats of the same payload for one second
const DefaultDebounceWindow = time.Second

// Debouncer drops repeats of the last accepted payload inside a time window.
// Timing uses the event's own ObservedAtMillis so decisions are deterministic.
// Not safe for concurrent use; the Gate serializes access.
type Debouncer struct {
	windowMillis         int64
	lastPayload          *string
	lastAcceptedAtMillis int64
}

// NewDebouncer creates a debouncer; a non-positive window uses the default
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{windowMillis: window.Milliseconds()}
}

// Accept reports whether the event should pass and records it when it does
func (d *Debouncer) Accept(event models.BarcodeScanEvent) bool {
	if d.lastPayload != nil && *d.lastPayload == event.Payload &&
		event.ObservedAtMillis-d.lastAcceptedAtMillis < d.windowMillis {
		return false
	}

	payload := event.Payload
	d.lastPayload = &payload
	d.lastAcceptedAtMillis = event.ObservedAtMillis
	return true
}
