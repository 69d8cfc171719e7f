package capture

import (
	"context"

	"go-catfood-scanner/internal/flow"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/pkg/models"
)

// Camera is the capture primitive of the camera driver
type Camera interface {
	Capture(ctx context.Context, opts models.CaptureOptions) (models.CapturedPhoto, error)
}

// Recognizer extracts text from a captured photo
type Recognizer interface {
	Recognize(ctx context.Context, photo models.CapturedPhoto) (models.OCRResult, error)
}

// ReportGenerator produces an AI report from label text
type ReportGenerator interface {
	Generate(ctx context.Context, req models.ReportRequest) (models.AIReport, error)
}

// ReportSaver persists a report against a catalogue item.
// A permission conflict is reported as an AppError of type permission_conflict.
type ReportSaver interface {
	SaveReport(ctx context.Context, req models.SaveReportRequest) error
}

// AssociationStore resolves names and replaces an item's links.
// ReplaceLinks is atomic across both categories; a nil slice leaves that
// category's links as they are.
type AssociationStore interface {
	SearchIngredientByName(ctx context.Context, name string) (id string, found bool, err error)
	SearchAdditiveByName(ctx context.Context, name string) (id string, found bool, err error)
	ReplaceLinks(ctx context.Context, itemID string, ingredientIDs, additiveIDs []string) error
}

// FlowDriver is the part of the flow controller the orchestrator moves forward
type FlowDriver interface {
	TransitionTo(state flow.State)
	State() flow.State
	Generation() uint64
}

// Notifier shows a notice to the user
type Notifier interface {
	Notify(ctx context.Context, notice models.Notice)
}

// Publisher receives pipeline events
type Publisher interface {
	Publish(ctx context.Context, event observer.ScanEvent)
}

// Dependencies groups the collaborators of an Orchestrator.
// Saver and Associations may be nil when persistence is unavailable.
type Dependencies struct {
	Camera       Camera
	Recognizer   Recognizer
	Reports      ReportGenerator
	Saver        ReportSaver
	Associations AssociationStore
	Flow         FlowDriver
	Notifier     Notifier
	Events       Publisher
}
