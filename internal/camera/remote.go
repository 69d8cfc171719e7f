package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-catfood-scanner/internal/storage"
	"go-catfood-scanner/pkg/models"

	"github.com/google/uuid"
)

// ErrNoFrame is returned when a capture is requested before any preview frame arrived
var ErrNoFrame = errors.New("camera: no preview frame available")

// CommandType names an instruction sent to the client camera
type CommandType string

const (
	CommandSetMode          CommandType = "set_mode"
	CommandResetBarcodeScan CommandType = "reset_barcode_scan"
)

// Command is an instruction for the client-side camera
type Command struct {
	Type CommandType        `json:"type"`
	Mode models.CaptureMode `json:"mode,omitempty"`
}

// RemoteCamera is the server-side view of a camera running on a client.
// The client pushes readiness, preview frames and barcode frames; the server
// answers with commands.
type RemoteCamera struct {
	mu        sync.Mutex
	mode      models.CaptureMode
	ready     bool
	handled   bool
	frame     []byte
	frameAt   time.Time
	store     storage.PhotoStore
	commands  func(Command)
	onReady   []func()
	onBarcode func(models.BarcodeScanEvent)
}

// NewRemoteCamera creates a camera in barcode mode. commands may be nil.
func NewRemoteCamera(store storage.PhotoStore, commands func(Command)) *RemoteCamera {
	return &RemoteCamera{
		mode:     models.CaptureModeBarcode,
		store:    store,
		commands: commands,
	}
}

// Mode returns the active capture mode
func (c *RemoteCamera) Mode() models.CaptureMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches between barcode and photo mode
func (c *RemoteCamera) SetMode(mode models.CaptureMode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	c.send(Command{Type: CommandSetMode, Mode: mode})
}

// ResetBarcodeScan clears the already-handled latch so barcodes flow again
func (c *RemoteCamera) ResetBarcodeScan() {
	c.mu.Lock()
	c.handled = false
	c.mu.Unlock()
	c.send(Command{Type: CommandResetBarcodeScan})
}

// MarkHandled sets the latch after a barcode has been acted on
func (c *RemoteCamera) MarkHandled() {
	c.mu.Lock()
	c.handled = true
	c.mu.Unlock()
}

// Handled reports whether the latch is set
func (c *RemoteCamera) Handled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handled
}

// OnReady registers a callback fired when the client signals ready
func (c *RemoteCamera) OnReady(fn func()) {
	c.mu.Lock()
	c.onReady = append(c.onReady, fn)
	c.mu.Unlock()
}

// OnBarcodeEvent registers the receiver of barcode frames
func (c *RemoteCamera) OnBarcodeEvent(fn func(models.BarcodeScanEvent)) {
	c.mu.Lock()
	c.onBarcode = fn
	c.mu.Unlock()
}

// SignalReady records that the client camera is usable
func (c *RemoteCamera) SignalReady() {
	c.mu.Lock()
	c.ready = true
	callbacks := append([]func(){}, c.onReady...)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Ready reports whether the client has signalled ready
func (c *RemoteCamera) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// PushFrame stores the latest preview frame
func (c *RemoteCamera) PushFrame(frame []byte) {
	c.mu.Lock()
	c.frame = frame
	c.frameAt = time.Now()
	c.mu.Unlock()
}

// PushBarcode forwards a barcode frame unless the latch is set or the camera is in photo mode.
// It returns whether the frame was forwarded.
func (c *RemoteCamera) PushBarcode(event models.BarcodeScanEvent) bool {
	c.mu.Lock()
	fn := c.onBarcode
	forward := fn != nil && !c.handled && c.mode == models.CaptureModeBarcode
	c.mu.Unlock()

	if forward {
		fn(event)
	}
	return forward
}

// Capture turns the latest preview frame into a stored photo
func (c *RemoteCamera) Capture(ctx context.Context, opts models.CaptureOptions) (models.CapturedPhoto, error) {
	c.mu.Lock()
	frame := c.frame
	c.mu.Unlock()

	if len(frame) == 0 {
		return models.CapturedPhoto{}, ErrNoFrame
	}
	return storePhoto(ctx, c.store, frame, opts)
}

func (c *RemoteCamera) send(cmd Command) {
	if c.commands != nil {
		c.commands(cmd)
	}
}

func storePhoto(ctx context.Context, store storage.PhotoStore, frame []byte, opts models.CaptureOptions) (models.CapturedPhoto, error) {
	data, bounds, err := encodeCapture(frame, opts)
	if err != nil {
		return models.CapturedPhoto{}, err
	}

	handle, err := store.Put(ctx, uuid.New().String()+".jpg", "image/jpeg", data)
	if err != nil {
		return models.CapturedPhoto{}, fmt.Errorf("storing photo: %w", err)
	}

	return models.CapturedPhoto{
		URI:         handle,
		ContentType: "image/jpeg",
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		CapturedAt:  time.Now(),
	}, nil
}
