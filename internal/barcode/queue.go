package barcode

import (
	"sync/atomic"

	"go-catfood-scanner/pkg/models"
)

// Queue is a bounded buffer between the camera driver and the gate.
// Push never blocks: when the buffer is full the new event is dropped.
type Queue struct {
	events  chan models.BarcodeScanEvent
	dropped atomic.Int64
}

// NewQueue creates a queue holding up to size events
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{events: make(chan models.BarcodeScanEvent, size)}
}

// Push enqueues an event, returning false if it was dropped
func (q *Queue) Push(event models.BarcodeScanEvent) bool {
	select {
	case q.events <- event:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Events exposes the receive side of the queue
func (q *Queue) Events() <-chan models.BarcodeScanEvent {
	return q.events
}

// Len returns the number of buffered events
func (q *Queue) Len() int {
	return len(q.events)
}

// Dropped returns how many events were discarded because the queue was full
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}
