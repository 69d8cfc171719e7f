package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-catfood-scanner/internal/barcode"
	"go-catfood-scanner/internal/camera"
	"go-catfood-scanner/internal/capture"
	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/flow"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/internal/repository"
	"go-catfood-scanner/pkg/models"

	"github.com/sirupsen/logrus"
)

const maxNotices = 20

// Snapshot is everything a client needs to render a scan session
type Snapshot struct {
	SessionID      string             `json:"session_id"`
	Actor          string             `json:"actor"`
	Flow           flow.Session       `json:"flow"`
	Capture        capture.Snapshot   `json:"capture"`
	CameraMode     models.CaptureMode `json:"camera_mode"`
	CameraReady    bool               `json:"camera_ready"`
	DroppedEvents  int64              `json:"dropped_events"`
	Notices        []models.Notice    `json:"notices"`
	LastActivityAt time.Time          `json:"last_activity_at"`
}

// Session is one live scan-and-recognize session. It composes the camera,
// flow controller, barcode gate and capture orchestrator of one client.
type Session struct {
	id    string
	actor string

	camera       *camera.RemoteCamera
	flow         *flow.Controller
	gate         *barcode.Gate
	queue        *barcode.Queue
	orchestrator *capture.Orchestrator
	catalogue    Catalogue
	events       *observer.Scoped
	log          *logrus.Entry

	cancel context.CancelFunc

	mu       sync.Mutex
	notices  []models.Notice
	lastSeen time.Time
	closed   bool
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Actor returns the user the session acts for
func (s *Session) Actor() string { return s.actor }

// Notify records a notice and pushes it to subscribers
func (s *Session) Notify(ctx context.Context, notice models.Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, notice)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"code": notice.Code,
		"kind": notice.Kind,
	}).Info(notice.Title)
	s.events.Publish(ctx, observer.ScanEvent{
		EventType: observer.NoticeRaised,
		State:     string(s.flow.State()),
		Success:   notice.Kind != models.NoticeError,
		Metadata: map[string]interface{}{
			"notice": notice,
		},
	})
}

func (s *Session) onBarcodeAccepted(event models.BarcodeScanEvent) {
	s.camera.MarkHandled()
	s.flow.OnBarcodeScanned(event.Payload)
	s.events.Publish(context.Background(), observer.ScanEvent{
		EventType: observer.BarcodeAccepted,
		State:     string(s.flow.State()),
		Success:   true,
		Metadata: map[string]interface{}{
			"payload":   event.Payload,
			"symbology": string(event.Symbology),
		},
	})
}

func (s *Session) onCameraCommand(cmd camera.Command) {
	metadata := map[string]interface{}{"command": string(cmd.Type)}
	if cmd.Mode != "" {
		metadata["mode"] = string(cmd.Mode)
	}
	s.events.Publish(context.Background(), observer.ScanEvent{
		EventType: observer.CameraCommand,
		Success:   true,
		Metadata:  metadata,
	})
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.orchestrator.Discard()
	s.log.Info("Scan session closed")
}

// StartScan opens mode selection
func (s *Session) StartScan() { s.flow.StartScan() }

// SelectMode picks the journey
func (s *Session) SelectMode(mode models.ScanMode) { s.flow.SelectMode(mode) }

// SelectItem loads a catalogue item and records it as the session's item
func (s *Session) SelectItem(ctx context.Context, itemID string) (*models.CatalogueItem, error) {
	if s.catalogue == nil {
		return nil, apperrors.NewInternalError("catalogue not configured", nil)
	}
	item, err := s.catalogue.GetItem(ctx, itemID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apperrors.NewNotFoundError("catalogue item not found", err)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("loading catalogue item failed", err)
	}
	s.flow.SelectCatalogueItem(item)
	return item, nil
}

// CameraReady records the client camera's ready signal
func (s *Session) CameraReady() { s.camera.SignalReady() }

// PushFrame stores the latest preview frame from the client
func (s *Session) PushFrame(frame []byte) { s.camera.PushFrame(frame) }

// PushBarcode hands a barcode frame to the camera driver.
// It returns whether the frame reached the gate queue.
func (s *Session) PushBarcode(event models.BarcodeScanEvent) bool {
	return s.camera.PushBarcode(event)
}

// OfferBarcode feeds an event straight through the gate, bypassing the queue
func (s *Session) OfferBarcode(event models.BarcodeScanEvent) barcode.Decision {
	return s.gate.Offer(event)
}

// ScanLabel switches the camera to photo mode and opens label capture
func (s *Session) ScanLabel() {
	s.camera.SetMode(models.CaptureModePhoto)
	s.flow.TransitionTo(flow.StateTakingPhoto)
}

// TransitionTo moves the flow to a named state; unknown names are ignored
func (s *Session) TransitionTo(state string) { s.flow.TransitionTo(flow.State(state)) }

// GoBack steps back one screen
func (s *Session) GoBack() { s.flow.GoBack() }

// Reset returns to the initial state and discards every artifact
func (s *Session) Reset() {
	s.flow.ResetFlow()
	s.orchestrator.Discard()
}

func (s *Session) CapturePhoto(ctx context.Context, zoom *float64, region *models.FrameRegion) error {
	return s.orchestrator.CapturePhoto(ctx, zoom, region)
}

func (s *Session) RetakePhoto() { s.orchestrator.RetakePhoto() }

func (s *Session) CancelPreview() { s.orchestrator.CancelPreview() }

func (s *Session) ConfirmPhoto(ctx context.Context) error {
	return s.orchestrator.ConfirmPhoto(ctx)
}

// GenerateReport asks for a report, linking it to the selected item when associate is set
func (s *Session) GenerateReport(ctx context.Context, associate bool) error {
	var item *models.CatalogueItem
	if associate {
		item = s.flow.SelectedItem()
	}
	return s.orchestrator.GenerateReport(ctx, item)
}

func (s *Session) CloseResultOverlay() { s.orchestrator.CloseResultOverlay() }

// SaveAssociations links the current report to the selected item on demand
func (s *Session) SaveAssociations(ctx context.Context) (models.AssociationSummary, error) {
	report := s.orchestrator.Report()
	if report == nil {
		return models.AssociationSummary{}, apperrors.NewValidationError("no report to save", nil)
	}
	return s.orchestrator.SaveReportAssociations(ctx, *report, s.flow.SelectedItem())
}

// Snapshot returns a copy of the session's state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	notices := append([]models.Notice{}, s.notices...)
	lastSeen := s.lastSeen
	s.mu.Unlock()

	return Snapshot{
		SessionID:      s.id,
		Actor:          s.actor,
		Flow:           s.flow.Snapshot(),
		Capture:        s.orchestrator.Snapshot(),
		CameraMode:     s.camera.Mode(),
		CameraReady:    s.camera.Ready(),
		DroppedEvents:  s.queue.Dropped(),
		Notices:        notices,
		LastActivityAt: lastSeen,
	}
}
