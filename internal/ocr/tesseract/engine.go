// Package tesseract provides an OCR engine backed by gosseract.
// It needs the tesseract and leptonica libraries at build time.
package tesseract

import (
	"fmt"

	"go-catfood-scanner/internal/ocr"
	"go-catfood-scanner/pkg/models"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps one gosseract client
type Engine struct {
	client *gosseract.Client
}

// New is an ocr.EngineFactory
func New(opts ocr.Options) (ocr.Engine, error) {
	client := gosseract.NewClient()

	if opts.Language != "" {
		if err := client.SetLanguage(opts.Language); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting language: %w", err)
		}
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting whitelist: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation: %w", err)
	}

	return &Engine{client: client}, nil
}

// Recognize reads text and averages word confidences
func (e *Engine) Recognize(image []byte) (models.OCRResult, error) {
	if err := e.client.SetImageFromBytes(image); err != nil {
		return models.OCRResult{}, fmt.Errorf("loading image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return models.OCRResult{}, fmt.Errorf("recognizing text: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return models.OCRResult{}, fmt.Errorf("reading word boxes: %w", err)
	}

	var total float64
	for _, box := range boxes {
		total += box.Confidence
	}
	confidence := 0.0
	if len(boxes) > 0 {
		confidence = total / float64(len(boxes))
	}

	return models.OCRResult{Text: text, Confidence: confidence}, nil
}

// Close releases the tesseract handle
func (e *Engine) Close() error {
	return e.client.Close()
}
