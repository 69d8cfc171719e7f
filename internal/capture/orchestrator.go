package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/flow"
	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/pkg/models"

	"github.com/sirupsen/logrus"
)

// ErrAbandoned is returned when a result arrives after the user moved on
var ErrAbandoned = errors.New("capture: attempt abandoned")

// Snapshot is a copy of the orchestrator's artifacts and busy flags
type Snapshot struct {
	CapturedPhoto      *models.CapturedPhoto      `json:"captured_photo,omitempty"`
	OCRResult          *models.OCRResult          `json:"ocr_result,omitempty"`
	AIReport           *models.AIReport           `json:"ai_report,omitempty"`
	Associations       *models.AssociationSummary `json:"associations,omitempty"`
	IsCapturing        bool                       `json:"is_capturing"`
	IsRecognizing      bool                       `json:"is_recognizing"`
	IsGeneratingReport bool                       `json:"is_generating_report"`
	ShowResultOverlay  bool                       `json:"show_result_overlay"`
}

// ticket identifies the attempt an async call belongs to
type ticket struct {
	generation uint64
	epoch      uint64
	state      flow.State
}

// Orchestrator drives capture, recognition, report generation and
// association persistence for one scan session.
type Orchestrator struct {
	mu sync.Mutex

	photo        *models.CapturedPhoto
	ocr          *models.OCRResult
	report       *models.AIReport
	associations *models.AssociationSummary

	isCapturing        bool
	isRecognizing      bool
	isGeneratingReport bool
	showResultOverlay  bool

	// epoch changes whenever artifacts are discarded
	epoch uint64

	deps Dependencies
	opts Options
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	return &Orchestrator{deps: deps, opts: opts.normalized()}
}

// CapturePhoto takes a photo and moves the flow to photo-preview.
// A failure raises a notice and leaves the flow where it was.
func (o *Orchestrator) CapturePhoto(ctx context.Context, zoom *float64, region *models.FrameRegion) error {
	o.mu.Lock()
	if o.isCapturing {
		o.mu.Unlock()
		return nil
	}
	o.isCapturing = true
	t := o.ticketLocked()
	o.mu.Unlock()

	start := time.Now()
	photo, err := o.deps.Camera.Capture(ctx, models.CaptureOptions{
		Quality:     o.opts.Quality,
		CropToFrame: true,
		Zoom:        zoom,
		Region:      region,
	})

	o.mu.Lock()
	if t.epoch == o.epoch {
		o.isCapturing = false
	}
	live := o.liveLocked(t)
	if live && err == nil {
		o.photo = &photo
	}
	o.mu.Unlock()

	if !live {
		o.logStale("capture", t)
		return ErrAbandoned
	}

	o.publish(ctx, observer.ScanEvent{
		EventType:    observer.PhotoCaptured,
		Duration:     time.Since(start),
		Success:      err == nil,
		ErrorMessage: errString(err),
	})

	if err != nil {
		logger.WithError(err).Warn("Photo capture failed")
		o.notify(ctx, captureFailedNotice())
		return apperrors.NewCaptureError("photo capture failed", err)
	}

	o.deps.Flow.TransitionTo(flow.StatePhotoPreview)
	return nil
}

// RetakePhoto discards the photo, recognized text and report
func (o *Orchestrator) RetakePhoto() {
	o.mu.Lock()
	o.discardLocked()
	o.mu.Unlock()

	o.deps.Flow.TransitionTo(flow.StateTakingPhoto)
}

// CancelPreview discards the photo only
func (o *Orchestrator) CancelPreview() {
	o.mu.Lock()
	o.photo = nil
	o.isCapturing = false
	o.isRecognizing = false
	o.epoch++
	o.mu.Unlock()

	o.deps.Flow.TransitionTo(flow.StateTakingPhoto)
}

// Discard drops every artifact without touching the flow.
// In-flight calls are abandoned.
func (o *Orchestrator) Discard() {
	o.mu.Lock()
	o.discardLocked()
	o.mu.Unlock()
}

// ConfirmPhoto starts recognition of the captured photo. It does nothing without a photo.
func (o *Orchestrator) ConfirmPhoto(ctx context.Context) error {
	o.mu.Lock()
	if o.photo == nil || o.isRecognizing {
		o.mu.Unlock()
		return nil
	}
	photo := *o.photo
	o.mu.Unlock()

	o.deps.Flow.TransitionTo(flow.StateProcessingOCR)
	return o.PerformOCR(ctx, photo)
}

// PerformOCR recognizes text in photo. On failure the flow returns to
// photo-preview so recognition can be retried without a new photo.
func (o *Orchestrator) PerformOCR(ctx context.Context, photo models.CapturedPhoto) error {
	o.mu.Lock()
	o.isRecognizing = true
	t := o.ticketLocked()
	o.mu.Unlock()

	start := time.Now()
	result, err := o.deps.Recognizer.Recognize(ctx, photo)

	o.mu.Lock()
	if t.epoch == o.epoch {
		o.isRecognizing = false
	}
	live := o.liveLocked(t)
	if live && err == nil {
		o.ocr = &result
	}
	o.mu.Unlock()

	if !live {
		o.logStale("ocr", t)
		return ErrAbandoned
	}

	o.publish(ctx, observer.ScanEvent{
		EventType:    observer.OCRCompleted,
		Duration:     time.Since(start),
		Success:      err == nil,
		ErrorMessage: errString(err),
		Metadata:     map[string]interface{}{"confidence": result.Confidence},
	})

	if err != nil {
		logger.WithError(err).Warn("Text recognition failed")
		o.notify(ctx, recognitionFailedNotice())
		o.deps.Flow.TransitionTo(flow.StatePhotoPreview)
		return apperrors.NewRecognitionError("text recognition failed", err)
	}

	o.deps.Flow.TransitionTo(flow.StateOCRResult)
	return nil
}

type generation struct {
	report models.AIReport
	err    error
}

// GenerateReport asks for an AI report on the recognized text. The call is
// joined with a minimum wait so the overlay never flashes; both must settle.
// When item is set the report and its associations are saved best-effort.
// It does nothing without recognized text.
func (o *Orchestrator) GenerateReport(ctx context.Context, item *models.CatalogueItem) error {
	o.mu.Lock()
	if o.ocr == nil || o.isGeneratingReport {
		o.mu.Unlock()
		return nil
	}
	text := o.ocr.Text
	o.showResultOverlay = true
	o.isGeneratingReport = true
	t := o.ticketLocked()
	o.mu.Unlock()

	start := time.Now()
	floor := o.opts.After(o.opts.MinDisplay)
	done := make(chan generation, 1)
	go func() {
		report, err := o.deps.Reports.Generate(ctx, models.ReportRequest{
			IngredientsText: text,
			MaxTokens:       o.opts.MaxTokens,
		})
		done <- generation{report: report, err: err}
	}()

	res := <-done
	select {
	case <-floor:
	case <-ctx.Done():
	}

	o.mu.Lock()
	if t.epoch == o.epoch {
		o.isGeneratingReport = false
		if res.err != nil {
			o.showResultOverlay = false
		}
	}
	live := o.liveLocked(t)
	if live && res.err == nil {
		report := res.report
		o.report = &report
	} else if !live && t.epoch == o.epoch {
		o.showResultOverlay = false
	}
	o.mu.Unlock()

	if !live {
		o.logStale("report", t)
		return ErrAbandoned
	}

	o.publish(ctx, observer.ScanEvent{
		EventType:    observer.ReportGenerated,
		Duration:     time.Since(start),
		Success:      res.err == nil,
		ErrorMessage: errString(res.err),
	})

	if res.err != nil {
		logger.WithError(res.err).Warn("Report generation failed")
		o.notify(ctx, generationFailedNotice())
		return apperrors.NewGenerationError("report generation failed", res.err)
	}

	if item != nil {
		o.persistReport(ctx, t, text, res.report, item)
	}
	return nil
}

// persistReport saves the report and then its associations. Failures are
// swallowed; a permission conflict raises a warning and stops the save.
func (o *Orchestrator) persistReport(ctx context.Context, t ticket, text string, report models.AIReport, item *models.CatalogueItem) {
	log := logger.WithFields(logrus.Fields{"item_id": item.ID})

	if o.deps.Saver != nil {
		err := o.deps.Saver.SaveReport(ctx, models.NewSaveReportRequest(item.ID, text, report))
		if apperrors.IsType(err, apperrors.ErrorTypePermissionConflict) {
			log.WithError(err).Warn("Report save refused for item owned by another user")
			o.notify(ctx, permissionConflictNotice())
			return
		}
		if err != nil {
			log.WithError(err).Error("Failed to save report")
		}
	}

	if !o.isLive(t) {
		o.logStale("associations", t)
		return
	}
	summary := o.PersistAssociations(ctx, item)
	if summary.Error != "" {
		return
	}
	if len(summary.Resolutions) > 0 {
		o.notify(ctx, associationsSavedNotice(summary))
	}
}

// CloseResultOverlay hides the overlay and, when a report exists, shows it
func (o *Orchestrator) CloseResultOverlay() {
	o.mu.Lock()
	o.showResultOverlay = false
	hasReport := o.report != nil
	o.mu.Unlock()

	if hasReport {
		o.deps.Flow.TransitionTo(flow.StateAIReportDetail)
	}
}

// Snapshot returns a copy of the current artifacts and flags
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		IsCapturing:        o.isCapturing,
		IsRecognizing:      o.isRecognizing,
		IsGeneratingReport: o.isGeneratingReport,
		ShowResultOverlay:  o.showResultOverlay,
	}
	if o.photo != nil {
		photo := *o.photo
		s.CapturedPhoto = &photo
	}
	if o.ocr != nil {
		ocr := *o.ocr
		s.OCRResult = &ocr
	}
	if o.report != nil {
		report := *o.report
		s.AIReport = &report
	}
	if o.associations != nil {
		summary := *o.associations
		s.Associations = &summary
	}
	return s
}

// Report returns the current report, if any
func (o *Orchestrator) Report() *models.AIReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.report == nil {
		return nil
	}
	report := *o.report
	return &report
}

func (o *Orchestrator) discardLocked() {
	o.photo = nil
	o.ocr = nil
	o.report = nil
	o.associations = nil
	o.isCapturing = false
	o.isRecognizing = false
	o.isGeneratingReport = false
	o.showResultOverlay = false
	o.epoch++
}

func (o *Orchestrator) ticketLocked() ticket {
	return ticket{
		generation: o.deps.Flow.Generation(),
		epoch:      o.epoch,
		state:      o.deps.Flow.State(),
	}
}

// liveLocked reports whether t still belongs to the active attempt:
// same session, no discard since, and the flow has not moved on
func (o *Orchestrator) liveLocked(t ticket) bool {
	return t.epoch == o.epoch &&
		t.generation == o.deps.Flow.Generation() &&
		t.state == o.deps.Flow.State()
}

func (o *Orchestrator) isLive(t ticket) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.liveLocked(t)
}

func (o *Orchestrator) logStale(step string, t ticket) {
	logger.WithFields(logrus.Fields{
		"step":       step,
		"epoch":      t.epoch,
		"generation": t.generation,
		"state":      t.state,
	}).Debug("Discarding result of abandoned attempt")
}

func (o *Orchestrator) notify(ctx context.Context, notice models.Notice) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(ctx, notice)
	}
}

func (o *Orchestrator) publish(ctx context.Context, event observer.ScanEvent) {
	if o.deps.Events != nil {
		if event.State == "" {
			event.State = string(o.deps.Flow.State())
		}
		o.deps.Events.Publish(ctx, event)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
