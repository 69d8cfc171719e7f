package models

import "time"

// CapturedPhoto references a photo produced by a camera capture.
// URI is an opaque handle understood by the photo store.
type CapturedPhoto struct {
	URI         string    `json:"uri"`
	ContentType string    `json:"content_type,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// FrameRegion is a capture frame expressed as fractions (0..1) of the preview
type FrameRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CaptureOptions are passed to the camera capture primitive
type CaptureOptions struct {
	Quality     float64      `json:"quality"`
	CropToFrame bool         `json:"crop_to_frame"`
	Zoom        *float64     `json:"zoom,omitempty"`
	Region      *FrameRegion `json:"region,omitempty"`
}

// OCRResult holds recognized text from a captured photo
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}
