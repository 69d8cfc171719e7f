package barcode

import (
	"context"
	"sync"
	"time"

	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/pkg/models"
	"go-catfood-scanner/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Decision is the outcome of offering an event to the gate
type Decision string

const (
	Accepted         Decision = "accepted"
	DroppedNotReady  Decision = "dropped_not_ready"
	DroppedWrongMode Decision = "dropped_wrong_mode"
	DroppedHandled   Decision = "dropped_handled"
	Rejected         Decision = "rejected"
	Debounced        Decision = "debounced"
)

// ModeSource reports the camera's active capture mode
type ModeSource interface {
	Mode() models.CaptureMode
}

// LatchSource reports whether a barcode was already acted on and not yet reset
type LatchSource interface {
	Handled() bool
}

// GateConfig configures a Gate
type GateConfig struct {
	Window     time.Duration
	Modes      ModeSource
	Latch      LatchSource
	Validator  *validation.BarcodeValidator
	OnAccept   func(models.BarcodeScanEvent)
	OnDecision func(models.BarcodeScanEvent, Decision)
}

// Gate turns the noisy stream of camera barcode callbacks into accepted
// events. It only processes events while the camera is in barcode mode and
// after the camera has signalled ready at least once.
type Gate struct {
	mu         sync.Mutex
	ready      bool
	validator  *validation.BarcodeValidator
	debouncer  *Debouncer
	modes      ModeSource
	latch      LatchSource
	onAccept   func(models.BarcodeScanEvent)
	onDecision func(models.BarcodeScanEvent, Decision)
}

// NewGate creates a gate. A gate starts not ready.
func NewGate(cfg GateConfig) *Gate {
	validator := cfg.Validator
	if validator == nil {
		validator = validation.NewBarcodeValidator()
	}
	return &Gate{
		validator:  validator,
		debouncer:  NewDebouncer(cfg.Window),
		modes:      cfg.Modes,
		latch:      cfg.Latch,
		onAccept:   cfg.OnAccept,
		onDecision: cfg.OnDecision,
	}
}

// MarkReady records that the camera hardware is usable
func (g *Gate) MarkReady() {
	g.mu.Lock()
	g.ready = true
	g.mu.Unlock()
}

// Ready reports whether the camera has signalled ready
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Offer processes one event synchronously and returns what happened to it.
// The accept callback runs after the gate's lock is released.
func (g *Gate) Offer(event models.BarcodeScanEvent) Decision {
	g.mu.Lock()
	decision := g.decide(event)
	g.mu.Unlock()

	if decision == Accepted && g.onAccept != nil {
		g.onAccept(event)
	}
	if g.onDecision != nil {
		g.onDecision(event, decision)
	}

	logger.WithFields(logrus.Fields{
		"payload":   event.Payload,
		"symbology": event.Symbology,
		"decision":  decision,
	}).Debug("Barcode event processed")
	return decision
}

func (g *Gate) decide(event models.BarcodeScanEvent) Decision {
	if !g.ready {
		return DroppedNotReady
	}
	if g.modes != nil && g.modes.Mode() != models.CaptureModeBarcode {
		return DroppedWrongMode
	}
	// Events queued before the latch was set must not replace the handled code.
	if g.latch != nil && g.latch.Handled() {
		return DroppedHandled
	}
	if !g.validator.IsValid(event) {
		return Rejected
	}
	if !g.debouncer.Accept(event) {
		return Debounced
	}
	return Accepted
}

// Run consumes the queue in arrival order until the context is done
func (g *Gate) Run(ctx context.Context, queue *Queue) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-queue.Events():
			g.Offer(event)
		}
	}
}
