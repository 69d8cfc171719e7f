package flow

// State is the single active step of the scan journey
type State string

const (
	StateInitial                State = "initial"
	StateSelectingMode          State = "selecting-mode"
	StateSearchingCatalogueItem State = "searching-catalogue-item"
	StateSelectedCatalogueItem  State = "selected-catalogue-item"
	StateTakingPhoto            State = "taking-photo"
	StatePhotoPreview           State = "photo-preview"
	StateProcessingOCR          State = "processing-ocr"
	StateOCRResult              State = "ocr-result"
	StateBarcodeResult          State = "barcode-result"
	StateAIReportDetail         State = "ai-report-detail"
)

// States lists every flow state
var States = []State{
	StateInitial,
	StateSelectingMode,
	StateSearchingCatalogueItem,
	StateSelectedCatalogueItem,
	StateTakingPhoto,
	StatePhotoPreview,
	StateProcessingOCR,
	StateOCRResult,
	StateBarcodeResult,
	StateAIReportDetail,
}

// Valid reports whether s is one of the known states
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// backStep is one row of the back-navigation table
type backStep struct {
	target      State
	resetCamera bool
}

// backTable maps a state to where GoBack leads. States without an entry are a no-op.
var backTable = map[State]backStep{
	StateSelectingMode:          {target: StateInitial},
	StateSearchingCatalogueItem: {target: StateSelectingMode},
	StateTakingPhoto:            {target: StateSelectingMode},
	StatePhotoPreview:           {target: StateTakingPhoto},
	StateOCRResult:              {target: StateTakingPhoto},
	StateBarcodeResult:          {target: StateTakingPhoto, resetCamera: true},
}
