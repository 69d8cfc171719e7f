package models

// Symbology is the barcode encoding standard reported by the camera driver
type Symbology string

const (
	SymbologyQR      Symbology = "qr"
	SymbologyEAN13   Symbology = "ean13"
	SymbologyEAN8    Symbology = "ean8"
	SymbologyCode128 Symbology = "code128"
	SymbologyCode39  Symbology = "code39"
	SymbologyUPCE    Symbology = "upc_e"
	SymbologyUPCA    Symbology = "upc_a"
)

// CaptureMode is the active camera mode. Only one is active at a time.
type CaptureMode string

const (
	CaptureModeBarcode CaptureMode = "barcode"
	CaptureModePhoto   CaptureMode = "photo"
)

// BarcodeScanEvent is a single raw scan callback from the camera driver.
// It is consumed once by the barcode gate and never persisted.
type BarcodeScanEvent struct {
	Payload          string    `json:"payload"`
	Symbology        Symbology `json:"symbology"`
	ObservedAtMillis int64     `json:"observed_at_millis"`
}

// ScanMode is the journey the user picked after starting a scan
type ScanMode string

const (
	ScanModeKnownItem      ScanMode = "known-item"
	ScanModeDirectAdditive ScanMode = "direct-additive"
)
