package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"go-catfood-scanner/internal/barcode"
	"go-catfood-scanner/internal/capture"
	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/flow"
	"go-catfood-scanner/internal/repository"
	"go-catfood-scanner/internal/storage"
	"go-catfood-scanner/pkg/models"
)

type stubRecognizer struct {
	text string
	err  error
}

func (s *stubRecognizer) Recognize(ctx context.Context, photo models.CapturedPhoto) (models.OCRResult, error) {
	if s.err != nil {
		return models.OCRResult{}, s.err
	}
	return models.OCRResult{Text: s.text, Confidence: 90}, nil
}

type stubGenerator struct {
	report models.AIReport
}

func (s *stubGenerator) Generate(ctx context.Context, req models.ReportRequest) (models.AIReport, error) {
	return s.report, nil
}

func jpegFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 120, B: uint8(y * 8), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode frame: %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	registry *Registry
	store    *repository.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	store, err := repository.Open(ctx, repository.Settings{Driver: repository.DriverSQLite, DSN: ":memory:", FuzzyMatching: true})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	photos, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create photo store: %v", err)
	}

	settings := DefaultSettings()
	settings.Capture = capture.DefaultOptions().WithMinDisplay(0)

	registry := NewRegistry(Dependencies{
		Photos:     photos,
		Recognizer: &stubRecognizer{text: "Chicken, Peas, Taurine"},
		Reports: &stubGenerator{report: models.AIReport{
			Safety:      "safe",
			Ingredients: []string{"Chicken", "Peas"},
			Additives:   []string{"Taurine"},
		}},
		Catalogue: store,
		Writers:   func(actor string) Writer { return store.As(actor) },
	}, settings)
	t.Cleanup(registry.Shutdown)

	return fixture{registry: registry, store: store}
}

func waitForState(t *testing.T, s *Session, want flow.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Snapshot().Flow.FlowState == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected state %s, got %s", want, s.Snapshot().Flow.FlowState)
}

func TestRegistry_CreateGetClose(t *testing.T) {
	f := newFixture(t)

	s := f.registry.Create("  ")
	if s.Actor() != AnonymousActor {
		t.Errorf("Expected anonymous actor, got %q", s.Actor())
	}
	if got, err := f.registry.Get(s.ID()); err != nil || got != s {
		t.Fatalf("Expected to get the session back, got %v", err)
	}
	if err := f.registry.Close(s.ID()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err := f.registry.Get(s.ID())
	if !errors.Is(err, ErrSessionNotFound) || !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if err := f.registry.Close(s.ID()); err == nil {
		t.Error("Expected closing twice to fail")
	}
}

func TestRegistry_SweepExpiresIdleSessions(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.registry.now = func() time.Time { return now }

	idle := f.registry.Create("alice")
	active := f.registry.Create("bob")

	now = now.Add(20 * time.Minute)
	f.registry.Get(active.ID())
	now = now.Add(15 * time.Minute)

	if n := f.registry.Sweep(); n != 1 {
		t.Fatalf("Expected 1 expired session, got %d", n)
	}
	if _, err := f.registry.Get(idle.ID()); err == nil {
		t.Error("Expected idle session to be gone")
	}
	if _, err := f.registry.Get(active.ID()); err != nil {
		t.Errorf("Expected active session to survive, got %v", err)
	}
}

func TestSession_BarcodeJourney(t *testing.T) {
	f := newFixture(t)
	s := f.registry.Create("alice")
	code := models.BarcodeScanEvent{Payload: "4006381333931", Symbology: models.SymbologyEAN13, ObservedAtMillis: 1000}

	s.StartScan()
	s.SelectMode(models.ScanModeKnownItem)

	if d := s.OfferBarcode(code); d != barcode.DroppedNotReady {
		t.Errorf("Expected drop before camera ready, got %s", d)
	}

	s.CameraReady()
	if !s.PushBarcode(code) {
		t.Fatal("Expected barcode to reach the queue")
	}
	waitForState(t, s, flow.StateBarcodeResult)

	snap := s.Snapshot()
	if snap.Flow.ScannedCode == nil || *snap.Flow.ScannedCode != code.Payload {
		t.Errorf("Expected scanned code %s, got %v", code.Payload, snap.Flow.ScannedCode)
	}
	if s.PushBarcode(code) {
		t.Error("Expected the handled latch to hold further barcodes")
	}

	// A different code already queued behind the accepted one reaches the gate.
	other := models.BarcodeScanEvent{Payload: "5901234123457", Symbology: models.SymbologyEAN13, ObservedAtMillis: 1100}
	if d := s.OfferBarcode(other); d != barcode.DroppedHandled {
		t.Errorf("Expected %s for a code behind the latch, got %s", barcode.DroppedHandled, d)
	}
	if got := s.Snapshot().Flow.ScannedCode; got == nil || *got != code.Payload {
		t.Errorf("Expected scanned code to stay %s, got %v", code.Payload, got)
	}

	s.GoBack()
	if state := s.Snapshot().Flow.FlowState; state != flow.StateTakingPhoto {
		t.Errorf("Expected taking-photo after going back, got %s", state)
	}
	if !s.PushBarcode(code) {
		t.Error("Expected going back to clear the latch")
	}
}

func TestSession_DirectAdditiveReport(t *testing.T) {
	f := newFixture(t)
	s := f.registry.Create("alice")
	ctx := context.Background()

	s.StartScan()
	s.SelectMode(models.ScanModeDirectAdditive)
	if mode := s.Snapshot().CameraMode; mode != models.CaptureModePhoto {
		t.Fatalf("Expected photo mode, got %s", mode)
	}

	if err := s.CapturePhoto(ctx, nil, nil); err == nil {
		t.Error("Expected capture without a preview frame to fail")
	}
	if n := len(s.Snapshot().Notices); n != 1 {
		t.Errorf("Expected one capture notice, got %d", n)
	}

	s.PushFrame(jpegFrame(t))
	if err := s.CapturePhoto(ctx, nil, &models.FrameRegion{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}); err != nil {
		t.Fatalf("Unexpected capture error: %v", err)
	}
	if err := s.ConfirmPhoto(ctx); err != nil {
		t.Fatalf("Unexpected OCR error: %v", err)
	}
	if err := s.GenerateReport(ctx, false); err != nil {
		t.Fatalf("Unexpected report error: %v", err)
	}
	s.CloseResultOverlay()

	snap := s.Snapshot()
	if snap.Flow.FlowState != flow.StateAIReportDetail {
		t.Errorf("Expected ai-report-detail, got %s", snap.Flow.FlowState)
	}
	if snap.Capture.AIReport == nil || snap.Capture.AIReport.Safety != "safe" {
		t.Errorf("Expected report to be stored, got %+v", snap.Capture.AIReport)
	}
	if snap.Capture.Associations != nil {
		t.Error("Expected no association persistence without an item")
	}

	s.Reset()
	snap = s.Snapshot()
	if snap.Flow.FlowState != flow.StateInitial || snap.Capture.CapturedPhoto != nil || snap.Capture.AIReport != nil {
		t.Errorf("Expected reset to clear flow and artifacts, got %+v", snap)
	}
}

func TestSession_KnownItemReportPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.store.CreateItem(ctx, models.CatalogueItem{Name: "Chicken Dinner"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.store.AddIngredient(ctx, "Chicken")
	f.store.AddAdditive(ctx, "Taurine")

	s := f.registry.Create("alice")
	s.StartScan()
	s.SelectMode(models.ScanModeKnownItem)
	if _, err := s.SelectItem(ctx, item.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := s.SelectItem(ctx, "missing"); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not found for unknown item, got %v", err)
	}

	s.ScanLabel()
	s.PushFrame(jpegFrame(t))
	if err := s.CapturePhoto(ctx, nil, nil); err != nil {
		t.Fatalf("Unexpected capture error: %v", err)
	}
	if err := s.ConfirmPhoto(ctx); err != nil {
		t.Fatalf("Unexpected OCR error: %v", err)
	}
	if err := s.GenerateReport(ctx, true); err != nil {
		t.Fatalf("Unexpected report error: %v", err)
	}

	stored, err := f.store.GetReport(ctx, item.ID)
	if err != nil || stored.CreatedBy != "alice" {
		t.Fatalf("Expected report saved by alice, got %+v, %v", stored, err)
	}

	summary := s.Snapshot().Capture.Associations
	if summary == nil {
		t.Fatal("Expected an association summary")
	}
	if len(summary.NotFound) != 1 || summary.NotFound[0] != "Peas" {
		t.Errorf("Expected Peas not found, got %v", summary.NotFound)
	}
	links, _ := f.store.LinkedAdditives(ctx, item.ID)
	if len(links) != 1 || links[0].Name != "Taurine" {
		t.Errorf("Expected Taurine link, got %+v", links)
	}
}

func TestSession_PermissionConflictRaisesWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, _ := f.store.CreateItem(ctx, models.CatalogueItem{Name: "Carol's Pate", OwnerID: "carol"})

	s := f.registry.Create("alice")
	s.SelectItem(ctx, item.ID)
	s.ScanLabel()
	s.PushFrame(jpegFrame(t))
	s.CapturePhoto(ctx, nil, nil)
	s.ConfirmPhoto(ctx)
	if err := s.GenerateReport(ctx, true); err != nil {
		t.Fatalf("Expected persistence failure to be swallowed, got %v", err)
	}

	var found bool
	for _, n := range s.Snapshot().Notices {
		if n.Code == models.NoticePermissionConflict && n.Kind == models.NoticeWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a permission conflict warning, got %+v", s.Snapshot().Notices)
	}
	if _, err := f.store.GetReport(ctx, item.ID); !errors.Is(err, repository.ErrReportNotFound) {
		t.Errorf("Expected no report to be stored, got %v", err)
	}
}

func TestSession_SaveAssociationsRequiresReport(t *testing.T) {
	f := newFixture(t)
	s := f.registry.Create("alice")

	_, err := s.SaveAssociations(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}
