package models

// NoticeKind is the severity of a user-facing notice
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeWarning NoticeKind = "warning"
	NoticeInfo    NoticeKind = "info"
)

// NoticeCode identifies what a notice is about
type NoticeCode string

const (
	NoticeCaptureFailed         NoticeCode = "capture_failed"
	NoticeRecognitionFailed     NoticeCode = "recognition_failed"
	NoticeGenerationFailed      NoticeCode = "generation_failed"
	NoticePermissionConflict    NoticeCode = "permission_conflict"
	NoticeAssociationsSaved     NoticeCode = "associations_saved"
	NoticeAssociationSaveFailed NoticeCode = "association_save_failed"
)

// Notice is a short user-facing message with a title
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Code    NoticeCode `json:"code"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}
