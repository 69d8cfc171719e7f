package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SelectModeRequest chooses the scan mode
type SelectModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=known-item direct-additive"`
}

// SelectItemRequest picks a catalogue item by id
type SelectItemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// CaptureRequest carries optional capture hints
type CaptureRequest struct {
	Zoom   *float64     `json:"zoom,omitempty"`
	Region *FrameRegion `json:"region,omitempty"`
}

// BarcodeRequest is a barcode frame forwarded by the client camera
type BarcodeRequest struct {
	Payload          string    `json:"payload"`
	Symbology        Symbology `json:"symbology"`
	ObservedAtMillis int64     `json:"observed_at_millis"`
}

// GenerateReportRequest asks for a report, optionally linked to the selected item
type GenerateReportRequest struct {
	AssociateSelectedItem bool `json:"associate_selected_item"`
}

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID string `json:"session_id"`
}
