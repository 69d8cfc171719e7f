package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/flow"
	"go-catfood-scanner/pkg/models"
)

type fakeCamera struct {
	mu      sync.Mutex
	modes   []models.CaptureMode
	resets  int
	opts    []models.CaptureOptions
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeCamera) SetMode(mode models.CaptureMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
}

func (f *fakeCamera) Mode() models.CaptureMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.modes) == 0 {
		return models.CaptureModeBarcode
	}
	return f.modes[len(f.modes)-1]
}

func (f *fakeCamera) ResetBarcodeScan() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeCamera) Capture(ctx context.Context, opts models.CaptureOptions) (models.CapturedPhoto, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return models.CapturedPhoto{}, f.err
	}
	return models.CapturedPhoto{URI: "file:///tmp/photo.jpg", ContentType: "image/jpeg", CapturedAt: time.Now()}, nil
}

type fakeRecognizer struct {
	mu         sync.Mutex
	calls      int
	stateSeen  flow.State
	controller *flow.Controller
	text       string
	err        error
	release    chan struct{}
	started    chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, photo models.CapturedPhoto) (models.OCRResult, error) {
	f.mu.Lock()
	f.calls++
	if f.controller != nil {
		f.stateSeen = f.controller.State()
	}
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return models.OCRResult{}, f.err
	}
	return models.OCRResult{Text: f.text, Confidence: 91.5}, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []models.ReportRequest
	report   models.AIReport
	err      error
	delay    time.Duration
	returned chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, req models.ReportRequest) (models.AIReport, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.returned != nil {
		defer close(f.returned)
	}
	return f.report, f.err
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []models.SaveReportRequest
	err   error
}

func (f *fakeSaver) SaveReport(ctx context.Context, req models.SaveReportRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, req)
	return f.err
}

type fakeAssociations struct {
	mu          sync.Mutex
	ingredients map[string]string
	additives   map[string]string
	lookups     []string
	replaced    map[models.AssociationCategory][][]string
	searchErr   error
	replaceErr  error
	additiveErr error
}

func newFakeAssociations() *fakeAssociations {
	return &fakeAssociations{
		ingredients: map[string]string{},
		additives:   map[string]string{},
		replaced:    map[models.AssociationCategory][][]string{},
	}
}

func (f *fakeAssociations) search(table map[string]string, prefix, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, prefix+":"+name)
	if f.searchErr != nil {
		return "", false, f.searchErr
	}
	id, ok := table[name]
	return id, ok, nil
}

func (f *fakeAssociations) SearchIngredientByName(ctx context.Context, name string) (string, bool, error) {
	return f.search(f.ingredients, "ingredient", name)
}

func (f *fakeAssociations) SearchAdditiveByName(ctx context.Context, name string) (string, bool, error) {
	return f.search(f.additives, "additive", name)
}

// ReplaceLinks is all-or-nothing like the real store
func (f *fakeAssociations) ReplaceLinks(ctx context.Context, itemID string, ingredientIDs, additiveIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if additiveIDs != nil && f.additiveErr != nil {
		return f.additiveErr
	}
	if ingredientIDs != nil {
		f.replaced[models.CategoryIngredient] = append(f.replaced[models.CategoryIngredient], append([]string(nil), ingredientIDs...))
	}
	if additiveIDs != nil {
		f.replaced[models.CategoryAdditive] = append(f.replaced[models.CategoryAdditive], append([]string(nil), additiveIDs...))
	}
	return nil
}

func (f *fakeAssociations) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lookups)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (r *recordingNotifier) Notify(ctx context.Context, notice models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *recordingNotifier) codes() []models.NoticeCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]models.NoticeCode, 0, len(r.notices))
	for _, n := range r.notices {
		codes = append(codes, n.Code)
	}
	return codes
}

// manualTimer records requested waits and fires only when told to
type manualTimer struct {
	mu        sync.Mutex
	requested []time.Duration
	ch        chan time.Time
}

func newManualTimer() *manualTimer {
	return &manualTimer{ch: make(chan time.Time, 1)}
}

func (m *manualTimer) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = append(m.requested, d)
	return m.ch
}

func (m *manualTimer) fire() {
	m.ch <- time.Now()
}

var errPermission = apperrors.NewPermissionConflictError("report owned by another user", nil)

var errBoom = errors.New("boom")

type harness struct {
	camera     *fakeCamera
	recognizer *fakeRecognizer
	generator  *fakeGenerator
	saver      *fakeSaver
	store      *fakeAssociations
	notifier   *recordingNotifier
	controller *flow.Controller
	orch       *Orchestrator
}

func newHarness(opts Options) *harness {
	h := &harness{
		camera:     &fakeCamera{},
		recognizer: &fakeRecognizer{text: "Chicken, Salmon oil, Taurine"},
		generator: &fakeGenerator{report: models.AIReport{
			Tags:        []string{"grain-free"},
			Safety:      "safe",
			Ingredients: []string{"Chicken", "Salmon oil"},
			Additives:   []string{"Taurine"},
		}},
		saver:    &fakeSaver{},
		store:    newFakeAssociations(),
		notifier: &recordingNotifier{},
	}
	h.controller = flow.NewController(h.camera, nil)
	h.recognizer.controller = h.controller
	h.orch = NewOrchestrator(Dependencies{
		Camera:       h.camera,
		Recognizer:   h.recognizer,
		Reports:      h.generator,
		Saver:        h.saver,
		Associations: h.store,
		Flow:         h.controller,
		Notifier:     h.notifier,
	}, opts)
	return h
}

// toOCRResult walks the happy path up to recognized text
func (h *harness) toOCRResult(ctx context.Context) error {
	h.controller.StartScan()
	h.controller.SelectMode(models.ScanModeDirectAdditive)
	if err := h.orch.CapturePhoto(ctx, nil, nil); err != nil {
		return err
	}
	return h.orch.ConfirmPhoto(ctx)
}
