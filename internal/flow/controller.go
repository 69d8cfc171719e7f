package flow

import (
	"context"
	"sync"

	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/pkg/models"
)

// Session is the state owned by a Controller.
// Generation changes on every ResetFlow and identifies the live session
// for anything that completes asynchronously.
type Session struct {
	FlowState    State                 `json:"flow_state"`
	ScanMode     models.ScanMode       `json:"scan_mode,omitempty"`
	SelectedItem *models.CatalogueItem `json:"selected_item,omitempty"`
	ScannedCode  *string               `json:"scanned_code,omitempty"`
	Generation   uint64                `json:"generation"`
}

// CameraControl is the part of the camera driver the controller drives
type CameraControl interface {
	SetMode(mode models.CaptureMode)
	ResetBarcodeScan()
}

// Publisher receives flow events
type Publisher interface {
	Publish(ctx context.Context, event observer.ScanEvent)
}

// Controller is the only writer of a Session. Operations never fail.
type Controller struct {
	mu      sync.Mutex
	session Session
	camera  CameraControl
	events  Publisher
}

// NewController creates a controller in the initial state
func NewController(camera CameraControl, events Publisher) *Controller {
	return &Controller{
		session: Session{FlowState: StateInitial},
		camera:  camera,
		events:  events,
	}
}

// StartScan moves to mode selection
func (c *Controller) StartScan() {
	c.mu.Lock()
	from := c.session.FlowState
	c.session.FlowState = StateSelectingMode
	c.mu.Unlock()

	c.publish(from, StateSelectingMode, "start_scan")
}

// SelectMode records the journey and points the camera at the matching capture mode.
// Unknown modes are ignored.
func (c *Controller) SelectMode(mode models.ScanMode) {
	var (
		target  State
		capture models.CaptureMode
	)
	switch mode {
	case models.ScanModeKnownItem:
		target, capture = StateSearchingCatalogueItem, models.CaptureModeBarcode
	case models.ScanModeDirectAdditive:
		target, capture = StateTakingPhoto, models.CaptureModePhoto
	default:
		return
	}

	if c.camera != nil {
		c.camera.SetMode(capture)
	}

	c.mu.Lock()
	from := c.session.FlowState
	c.session.ScanMode = mode
	c.session.FlowState = target
	c.mu.Unlock()

	c.publish(from, target, "select_mode")
}

// SelectCatalogueItem records the item the user picked. A nil item is ignored.
func (c *Controller) SelectCatalogueItem(item *models.CatalogueItem) {
	if item == nil {
		return
	}
	copied := *item

	c.mu.Lock()
	from := c.session.FlowState
	c.session.SelectedItem = &copied
	c.session.FlowState = StateSelectedCatalogueItem
	c.mu.Unlock()

	c.publish(from, StateSelectedCatalogueItem, "select_item")
}

// OnBarcodeScanned records an accepted code and shows the barcode result.
// Callers are expected to have validated and debounced the code.
func (c *Controller) OnBarcodeScanned(code string) {
	c.mu.Lock()
	from := c.session.FlowState
	c.session.ScannedCode = &code
	c.session.FlowState = StateBarcodeResult
	c.mu.Unlock()

	c.publish(from, StateBarcodeResult, "barcode_scanned")
}

// GoBack follows the back-navigation table; states without an entry are left alone
func (c *Controller) GoBack() {
	c.mu.Lock()
	from := c.session.FlowState
	step, ok := backTable[from]
	if ok {
		c.session.FlowState = step.target
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	if step.resetCamera && c.camera != nil {
		c.camera.ResetBarcodeScan()
	}
	c.publish(from, step.target, "go_back")
}

// ResetFlow returns to the initial state and clears everything recorded so far
func (c *Controller) ResetFlow() {
	c.mu.Lock()
	from := c.session.FlowState
	c.session = Session{
		FlowState:  StateInitial,
		Generation: c.session.Generation + 1,
	}
	c.mu.Unlock()

	if c.camera != nil {
		c.camera.ResetBarcodeScan()
	}
	c.publish(from, StateInitial, "reset")
}

// TransitionTo moves to any known state; unknown states are ignored
func (c *Controller) TransitionTo(state State) {
	if !state.Valid() {
		return
	}

	c.mu.Lock()
	from := c.session.FlowState
	c.session.FlowState = state
	c.mu.Unlock()

	c.publish(from, state, "transition")
}

// State returns the current flow state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.FlowState
}

// Generation returns the identity of the live session
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Generation
}

// SelectedItem returns a copy of the selected item, if any
func (c *Controller) SelectedItem() *models.CatalogueItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.SelectedItem == nil {
		return nil
	}
	item := *c.session.SelectedItem
	return &item
}

// Snapshot returns a copy of the session
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s.SelectedItem != nil {
		item := *s.SelectedItem
		s.SelectedItem = &item
	}
	if s.ScannedCode != nil {
		code := *s.ScannedCode
		s.ScannedCode = &code
	}
	return s
}

func (c *Controller) publish(from, to State, trigger string) {
	if c.events == nil {
		return
	}
	c.events.Publish(context.Background(), observer.ScanEvent{
		EventType: observer.FlowTransitioned,
		State:     string(to),
		Success:   true,
		Metadata: map[string]interface{}{
			"from":    string(from),
			"trigger": trigger,
		},
	})
}
