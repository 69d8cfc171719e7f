package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoText is returned when nothing legible was found
	ErrNoText = errors.New("ocr: no text recognized")
	// ErrLowConfidence is returned when the result is below the configured confidence
	ErrLowConfidence = errors.New("ocr: confidence below threshold")
	// ErrClosed is returned after the service has been closed
	ErrClosed = errors.New("ocr: service closed")
)

// Engine recognizes text in encoded image bytes. An Engine is used by one
// goroutine at a time.
type Engine interface {
	Recognize(image []byte) (models.OCRResult, error)
	Close() error
}

// EngineFactory creates a configured engine
type EngineFactory func(opts Options) (Engine, error)

// PhotoReader loads photo bytes by handle
type PhotoReader interface {
	Get(ctx context.Context, handle string) ([]byte, error)
}

// Service recognizes captured photos on a bounded pool of engines
type Service struct {
	photos  PhotoReader
	pool    *WorkerPool
	engines chan Engine
	opts    Options
}

type recognition struct {
	result models.OCRResult
	err    error
}

// NewService creates one engine per worker and starts the pool
func NewService(photos PhotoReader, factory EngineFactory, opts Options) (*Service, error) {
	pool := NewWorkerPool(opts.Workers)
	engines := make(chan Engine, pool.Workers())
	for i := 0; i < pool.Workers(); i++ {
		engine, err := factory(opts)
		if err != nil {
			close(engines)
			for e := range engines {
				e.Close()
			}
			return nil, fmt.Errorf("creating OCR engine: %w", err)
		}
		engines <- engine
	}
	pool.Start()

	return &Service{photos: photos, pool: pool, engines: engines, opts: opts}, nil
}

// Recognize loads the photo and extracts its text. If ctx ends first the
// call returns and the running job finishes in the background.
func (s *Service) Recognize(ctx context.Context, photo models.CapturedPhoto) (models.OCRResult, error) {
	data, err := s.photos.Get(ctx, photo.URI)
	if err != nil {
		return models.OCRResult{}, fmt.Errorf("loading photo: %w", err)
	}

	start := time.Now()
	done := make(chan recognition, 1)
	err = s.pool.Submit(ctx, func() {
		engine := <-s.engines
		defer func() { s.engines <- engine }()
		result, err := engine.Recognize(data)
		done <- recognition{result: result, err: err}
	})
	if err != nil {
		return models.OCRResult{}, err
	}

	var rec recognition
	select {
	case <-ctx.Done():
		return models.OCRResult{}, ctx.Err()
	case rec = <-done:
	}
	if rec.err != nil {
		return models.OCRResult{}, rec.err
	}

	result := models.OCRResult{
		Text:       normalizeText(rec.result.Text),
		Confidence: rec.result.Confidence,
	}

	logger.WithFields(logrus.Fields{
		"uri":         photo.URI,
		"chars":       len(result.Text),
		"confidence":  result.Confidence,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("OCR finished")

	if result.Text == "" {
		return result, ErrNoText
	}
	if s.opts.MinConfidence > 0 && result.Confidence < s.opts.MinConfidence {
		return result, fmt.Errorf("%w: %.1f < %.1f", ErrLowConfidence, result.Confidence, s.opts.MinConfidence)
	}
	return result, nil
}

// Stats exposes pool counters
func (s *Service) Stats() PoolStats {
	return s.pool.GetStats()
}

// Close stops the pool and releases every engine
func (s *Service) Close() error {
	s.pool.Close()
	s.pool.Wait()

	var errs []error
	for i := 0; i < s.pool.Workers(); i++ {
		if err := (<-s.engines).Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// normalizeText trims each line and drops blank ones
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
