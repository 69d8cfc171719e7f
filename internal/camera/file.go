package camera

import (
	"context"
	"fmt"
	"sync"

	"go-catfood-scanner/internal/storage"
	"go-catfood-scanner/pkg/models"
)

// FileCamera captures from an existing photo, addressed by a store handle
type FileCamera struct {
	mu     sync.Mutex
	source string
	mode   models.CaptureMode
	store  storage.PhotoStore
}

// NewFileCamera creates a camera that reads source through store
func NewFileCamera(source string, store storage.PhotoStore) *FileCamera {
	return &FileCamera{source: source, mode: models.CaptureModePhoto, store: store}
}

// Mode returns the active capture mode
func (c *FileCamera) Mode() models.CaptureMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode records the mode
func (c *FileCamera) SetMode(mode models.CaptureMode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// ResetBarcodeScan does nothing; a file camera never scans barcodes
func (c *FileCamera) ResetBarcodeScan() {}

// Capture reads the source photo and stores a processed copy
func (c *FileCamera) Capture(ctx context.Context, opts models.CaptureOptions) (models.CapturedPhoto, error) {
	frame, err := c.store.Get(ctx, c.source)
	if err != nil {
		return models.CapturedPhoto{}, fmt.Errorf("reading %s: %w", c.source, err)
	}
	return storePhoto(ctx, c.store, frame, opts)
}
