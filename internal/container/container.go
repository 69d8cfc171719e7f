package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-catfood-scanner/internal/capture"
	"go-catfood-scanner/internal/config"
	"go-catfood-scanner/internal/factory"
	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/internal/ocr"
	"go-catfood-scanner/internal/ocr/tesseract"
	"go-catfood-scanner/internal/report"
	"go-catfood-scanner/internal/repository"
	"go-catfood-scanner/internal/service"
	"go-catfood-scanner/internal/storage"
	"go-catfood-scanner/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	store     *repository.Store
	photos    storage.PhotoStore
	ocr       *ocr.Service
	model     *report.GeminiModel
	generator *report.Generator
	publisher *observer.EventPublisher
	metrics   *observer.MetricsObserver
	hub       *transport.Hub
	sessions  *service.Registry
	handler   http.Handler
}

// NewContainer builds the dependency graph for the API server
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	photos, err := factory.NewStorageFactory(cfg).CreateStorage(ctx, factory.StorageType(cfg.PhotoStore))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create photo store: %w", err)
	}

	recognizer, err := ocr.NewService(photos, tesseract.New, OCROptions(cfg))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to start OCR: %w", err)
	}

	c := &Container{
		config:    cfg,
		store:     store,
		photos:    photos,
		ocr:       recognizer,
		publisher: observer.NewEventPublisher(),
		metrics:   observer.NewMetricsObserver(),
		hub:       transport.NewHub(),
	}
	c.model, c.generator = NewReportGenerator(ctx, cfg)

	c.publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	c.publisher.Subscribe(c.metrics)
	c.publisher.Subscribe(c.hub)

	c.sessions = service.NewRegistry(service.Dependencies{
		Photos:     photos,
		Recognizer: recognizer,
		Reports:    c.generator,
		Catalogue:  store,
		Writers:    func(actor string) service.Writer { return store.As(actor) },
		Events:     c.publisher,
	}, SessionSettings(cfg))

	c.handler = transport.NewHandler(transport.Dependencies{
		Sessions:  c.sessions,
		Hub:       c.hub,
		Catalogue: store,
		Metrics:   c.metrics,
		Health:    store.Ping,
	}, cfg)

	return c, nil
}

// OpenStore connects to the configured database and applies the schema
func OpenStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	store, err := repository.Open(ctx, repository.Settings{
		Driver:        cfg.DBDriver,
		DSN:           cfg.DBDSN,
		FuzzyMatching: cfg.MatchFuzzy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewReportGenerator returns a Gemini-backed generator, or one that always
// fails when no API key is configured. The model is nil in the latter case.
func NewReportGenerator(ctx context.Context, cfg *config.Config) (*report.GeminiModel, *report.Generator) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, report generation is disabled")
		return nil, report.NewGenerator(report.Unavailable{})
	}
	model, err := report.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.WithError(err).Error("Failed to create Gemini client, report generation is disabled")
		return nil, report.NewGenerator(report.Unavailable{})
	}
	return model, report.NewGenerator(model)
}

// OCROptions maps configuration onto label recognition options
func OCROptions(cfg *config.Config) ocr.Options {
	return ocr.LabelOptions().
		WithLanguage(cfg.OCRLanguage).
		WithWorkers(cfg.OCRWorkers)
}

// CaptureOptions maps configuration onto orchestrator options
func CaptureOptions(cfg *config.Config) capture.Options {
	return capture.DefaultOptions().
		WithQuality(cfg.CaptureQuality).
		WithMaxTokens(cfg.ReportMaxTokens).
		WithMinDisplay(cfg.ReportMinDisplay)
}

// SessionSettings maps configuration onto per-session settings
func SessionSettings(cfg *config.Config) service.Settings {
	return service.Settings{
		DebounceWindow: cfg.BarcodeDebounceWindow,
		QueueSize:      cfg.BarcodeQueueSize,
		IdleTTL:        cfg.SessionIdleTTL,
		Capture:        CaptureOptions(cfg),
	}
}

// Run sweeps idle sessions until ctx is done
func (c *Container) Run(ctx context.Context) {
	c.sessions.Run(ctx)
}

// Close releases every resource the container opened
func (c *Container) Close() error {
	c.sessions.Shutdown()
	var errs []error
	if err := c.ocr.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing OCR: %w", err))
	}
	if c.model != nil {
		if err := c.model.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing Gemini client: %w", err))
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Metrics returns the pipeline counters
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}
