package validation

import (
	"testing"

	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/pkg/models"
)

func TestBarcodeValidator_Check(t *testing.T) {
	validator := NewBarcodeValidator()

	tests := []struct {
		name      string
		payload   string
		symbology models.Symbology
		expected  RejectReason
	}{
		{"ean13 too short", "123456", models.SymbologyEAN13, ReasonInvalidShape},
		{"ean13 valid shape", "1234567890128", models.SymbologyEAN13, ""},
		{"ean13 with letters", "12345678901AB", models.SymbologyEAN13, ReasonInvalidShape},
		{"ean13 fourteen digits", "12345678901234", models.SymbologyEAN13, ReasonInvalidShape},
		{"ean13 padded", " 1234567890128", models.SymbologyEAN13, ReasonInvalidShape},
		{"code128 free text", "ABC123", models.SymbologyCode128, ""},
		{"qr url", "https://example.com/food/42", models.SymbologyQR, ""},
		{"ean8 not shape checked", "12", models.SymbologyEAN8, ""},
		{"upc_a", "036000291452", models.SymbologyUPCA, ""},
		{"upc_e", "04252614", models.SymbologyUPCE, ""},
		{"code39", "CAT-FOOD", models.SymbologyCode39, ""},
		{"empty payload", "", models.SymbologyCode128, ReasonEmptyPayload},
		{"empty payload ean13", "", models.SymbologyEAN13, ReasonEmptyPayload},
		{"whitespace payload", "  \t\n", models.SymbologyQR, ReasonEmptyPayload},
		{"unsupported symbology", "1234", models.Symbology("pdf417"), ReasonUnsupportedSymbology},
		{"missing symbology", "1234", models.Symbology(""), ReasonUnsupportedSymbology},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := models.BarcodeScanEvent{Payload: tt.payload, Symbology: tt.symbology}
			if got := validator.Check(event); got != tt.expected {
				t.Errorf("Expected reason %q, got %q", tt.expected, got)
			}
			if validator.IsValid(event) != (tt.expected == "") {
				t.Errorf("IsValid disagrees with Check for %q", tt.payload)
			}
		})
	}
}

func TestBarcodeValidator_ValidateReturnsAppError(t *testing.T) {
	validator := NewBarcodeValidator()

	err := validator.Validate(models.BarcodeScanEvent{Payload: "123456", Symbology: models.SymbologyEAN13})
	if err == nil {
		t.Fatal("Expected error for short ean13 payload")
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got: %T", err)
	}
	if appErr.Type != apperrors.ErrorTypeValidation {
		t.Errorf("Expected validation error, got %s", appErr.Type)
	}
	if appErr.Details != string(ReasonInvalidShape) {
		t.Errorf("Expected details %q, got %q", ReasonInvalidShape, appErr.Details)
	}

	if err := validator.Validate(models.BarcodeScanEvent{Payload: "ABC123", Symbology: models.SymbologyCode128}); err != nil {
		t.Errorf("Expected code128 payload to pass, got: %v", err)
	}
}

func TestSupportedSymbologies(t *testing.T) {
	if len(SupportedSymbologies()) != 7 {
		t.Errorf("Expected 7 supported symbologies, got %d", len(SupportedSymbologies()))
	}
}
