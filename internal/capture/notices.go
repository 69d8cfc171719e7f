package capture

import (
	"fmt"
	"strings"

	"go-catfood-scanner/pkg/models"
)

func captureFailedNotice() models.Notice {
	return models.Notice{
		Kind:    models.NoticeError,
		Code:    models.NoticeCaptureFailed,
		Title:   "Capture failed",
		Message: "The photo could not be taken. Please try again.",
	}
}

func recognitionFailedNotice() models.Notice {
	return models.Notice{
		Kind:    models.NoticeError,
		Code:    models.NoticeRecognitionFailed,
		Title:   "Text recognition failed",
		Message: "The label could not be read. Retry recognition or retake the photo.",
	}
}

func generationFailedNotice() models.Notice {
	return models.Notice{
		Kind:    models.NoticeError,
		Code:    models.NoticeGenerationFailed,
		Title:   "Report generation failed",
		Message: "The report could not be generated. Please try again.",
	}
}

func permissionConflictNotice() models.Notice {
	return models.Notice{
		Kind:    models.NoticeWarning,
		Code:    models.NoticePermissionConflict,
		Title:   "Report not saved",
		Message: "This item's data is owned by another user, so the report was shown but not saved.",
	}
}

func associationsSavedNotice(summary models.AssociationSummary) models.Notice {
	kind := models.NoticeInfo
	if len(summary.NotFound) > 0 {
		kind = models.NoticeWarning
	}
	return models.Notice{
		Kind:    kind,
		Code:    models.NoticeAssociationsSaved,
		Title:   "Ingredients linked",
		Message: summary.Message,
	}
}

func associationSaveFailedNotice() models.Notice {
	return models.Notice{
		Kind:    models.NoticeError,
		Code:    models.NoticeAssociationSaveFailed,
		Title:   "Saving links failed",
		Message: "Ingredients and additives could not be linked. Existing links were kept.",
	}
}

// summaryMessage describes what was linked and lists names that did not resolve
func summaryMessage(s models.AssociationSummary) string {
	msg := fmt.Sprintf("Linked %s and %s.",
		plural(len(s.IngredientIDs), "ingredient"),
		plural(len(s.AdditiveIDs), "additive"))
	if len(s.NotFound) > 0 {
		msg += " Not found: " + strings.Join(s.NotFound, ", ") + "."
	}
	return msg
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
