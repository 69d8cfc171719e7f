package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go-catfood-scanner/internal/barcode"
	"go-catfood-scanner/internal/camera"
	"go-catfood-scanner/internal/capture"
	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/flow"
	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/internal/storage"
	"go-catfood-scanner/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrSessionNotFound indicates an unknown or expired session id
var ErrSessionNotFound = errors.New("scan session not found")

// AnonymousActor is used when a session is created without a user id
const AnonymousActor = "anonymous"

// Catalogue is the read side of the catalogue a session needs
type Catalogue interface {
	GetItem(ctx context.Context, id string) (*models.CatalogueItem, error)
}

// Writer persists reports and associations on behalf of one user
type Writer interface {
	capture.ReportSaver
	capture.AssociationStore
}

// Dependencies are shared by every session of a Registry.
// Writers may be nil when persistence is unavailable.
type Dependencies struct {
	Photos     storage.PhotoStore
	Recognizer capture.Recognizer
	Reports    capture.ReportGenerator
	Catalogue  Catalogue
	Writers    func(actor string) Writer
	Events     observer.Subject
}

// Settings tune the per-session components
type Settings struct {
	DebounceWindow time.Duration
	QueueSize      int
	IdleTTL        time.Duration
	Capture        capture.Options
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		DebounceWindow: barcode.DefaultDebounceWindow,
		QueueSize:      32,
		IdleTTL:        30 * time.Minute,
		Capture:        capture.DefaultOptions(),
	}
}

// Registry owns the live scan sessions
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	deps     Dependencies
	settings Settings
	now      func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(deps Dependencies, settings Settings) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		deps:     deps,
		settings: settings,
		now:      time.Now,
	}
}

// Create starts a session for actor. A blank actor becomes AnonymousActor.
func (r *Registry) Create(actor string) *Session {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = AnonymousActor
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:        id,
		actor:     actor,
		catalogue: r.deps.Catalogue,
		events:    observer.NewScoped(r.deps.Events, id),
		log:       logger.WithFields(logrus.Fields{"session_id": id, "actor": actor}),
		cancel:    cancel,
		lastSeen:  r.now(),
	}

	s.camera = camera.NewRemoteCamera(r.deps.Photos, s.onCameraCommand)
	s.flow = flow.NewController(s.camera, s.events)
	s.queue = barcode.NewQueue(r.settings.QueueSize)
	s.gate = barcode.NewGate(barcode.GateConfig{
		Window:   r.settings.DebounceWindow,
		Modes:    s.camera,
		Latch:    s.camera,
		OnAccept: s.onBarcodeAccepted,
	})
	s.camera.OnReady(s.gate.MarkReady)
	s.camera.OnBarcodeEvent(func(event models.BarcodeScanEvent) {
		if !s.queue.Push(event) {
			s.log.WithField("payload", event.Payload).Warn("Barcode queue full, event dropped")
		}
	})

	deps := capture.Dependencies{
		Camera:     s.camera,
		Recognizer: r.deps.Recognizer,
		Reports:    r.deps.Reports,
		Flow:       s.flow,
		Notifier:   s,
		Events:     s.events,
	}
	if r.deps.Writers != nil {
		if w := r.deps.Writers(actor); w != nil {
			deps.Saver = w
			deps.Associations = w
		}
	}
	s.orchestrator = capture.NewOrchestrator(deps, r.settings.Capture)

	go s.gate.Run(ctx, s.queue)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	s.log.Info("Scan session created")
	return s
}

// Get returns a live session and refreshes its idle timer
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("scan session not found", ErrSessionNotFound)
	}
	s.touch(r.now())
	return s, nil
}

// Close ends a session
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError("scan session not found", ErrSessionNotFound)
	}
	s.close()
	return nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.settings.IdleTTL)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		logger.WithField("expired", len(expired)).Info("Idle scan sessions swept")
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes the rest
func (r *Registry) Run(ctx context.Context) {
	interval := r.settings.IdleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Shutdown closes every session
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
