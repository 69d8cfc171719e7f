package barcode

import (
	"testing"

	"go-catfood-scanner/pkg/models"
)

func TestQueue_DropsNewestWhenFull(t *testing.T) {
	q := NewQueue(2)

	if !q.Push(ean("1111111111111", 1)) || !q.Push(ean("2222222222222", 2)) {
		t.Fatal("Expected pushes within capacity to succeed")
	}
	if q.Push(ean("3333333333333", 3)) {
		t.Error("Expected push to a full queue to be dropped")
	}
	if q.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", q.Dropped())
	}
	if q.Len() != 2 {
		t.Errorf("Expected 2 buffered events, got %d", q.Len())
	}

	first := <-q.Events()
	if first.Payload != "1111111111111" {
		t.Errorf("Expected oldest event first, got %s", first.Payload)
	}
}

func TestNewQueue_MinimumCapacity(t *testing.T) {
	q := NewQueue(0)
	if !q.Push(models.BarcodeScanEvent{Payload: "x"}) {
		t.Error("Expected a zero-sized queue to hold one event")
	}
}
