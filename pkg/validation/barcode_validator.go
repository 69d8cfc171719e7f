package validation

import (
	"regexp"
	"strings"

	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/pkg/models"
)

// RejectReason explains why a barcode event was rejected
type RejectReason string

const (
	ReasonEmptyPayload         RejectReason = "empty_payload"
	ReasonUnsupportedSymbology RejectReason = "unsupported_symbology"
	ReasonInvalidShape         RejectReason = "invalid_shape"
)

var ean13Shape = regexp.MustCompile(`^\d{13}$`)

// BarcodeValidator checks raw scan events against the supported symbologies.
// It holds no mutable state and is safe for concurrent use.
type BarcodeValidator struct {
	supported map[models.Symbology]struct{}
	shapes    map[models.Symbology]*regexp.Regexp
}

// SupportedSymbologies returns the symbologies accepted by default
func SupportedSymbologies() []models.Symbology {
	return []models.Symbology{
		models.SymbologyQR,
		models.SymbologyEAN13,
		models.SymbologyEAN8,
		models.SymbologyCode128,
		models.SymbologyCode39,
		models.SymbologyUPCE,
		models.SymbologyUPCA,
	}
}

// NewBarcodeValidator creates a validator for the default symbology set.
// Only EAN-13 payloads get a shape check; the other symbologies accept any
// non-blank payload.
func NewBarcodeValidator() *BarcodeValidator {
	supported := make(map[models.Symbology]struct{})
	for _, s := range SupportedSymbologies() {
		supported[s] = struct{}{}
	}
	return &BarcodeValidator{
		supported: supported,
		shapes: map[models.Symbology]*regexp.Regexp{
			models.SymbologyEAN13: ean13Shape,
		},
	}
}

// Check returns the rejection reason for an event, or "" when it is valid
func (v *BarcodeValidator) Check(event models.BarcodeScanEvent) RejectReason {
	if strings.TrimSpace(event.Payload) == "" {
		return ReasonEmptyPayload
	}
	if _, ok := v.supported[event.Symbology]; !ok {
		return ReasonUnsupportedSymbology
	}
	if shape, ok := v.shapes[event.Symbology]; ok && !shape.MatchString(event.Payload) {
		return ReasonInvalidShape
	}
	return ""
}

// Validate returns a validation error describing why the event was rejected
func (v *BarcodeValidator) Validate(event models.BarcodeScanEvent) error {
	reason := v.Check(event)
	if reason == "" {
		return nil
	}
	err := apperrors.NewValidationError("barcode rejected", nil)
	err.Details = string(reason)
	return err
}

// IsValid reports whether the event passes validation
func (v *BarcodeValidator) IsValid(event models.BarcodeScanEvent) bool {
	return v.Check(event) == ""
}
