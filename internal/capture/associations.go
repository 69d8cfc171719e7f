package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/pkg/models"

	"github.com/sirupsen/logrus"
)

// PersistAssociations links the current report's ingredients and additives to
// item. It is best-effort: errors are logged and carried in the summary.
func (o *Orchestrator) PersistAssociations(ctx context.Context, item *models.CatalogueItem) models.AssociationSummary {
	report := o.Report()
	if report == nil || item == nil || o.deps.Associations == nil {
		return models.AssociationSummary{Message: "Nothing to link."}
	}

	log := logger.WithFields(logrus.Fields{"item_id": item.ID})
	start := time.Now()
	summary, err := o.replaceAssociations(ctx, *report, item.ID)
	o.publishAssociations(ctx, summary, time.Since(start), err)

	if err != nil {
		summary.Error = err.Error()
		if apperrors.IsType(err, apperrors.ErrorTypePermissionConflict) {
			log.WithError(err).Warn("Association save refused for item owned by another user")
			o.notify(ctx, permissionConflictNotice())
		} else {
			log.WithError(err).Error("Failed to persist associations")
		}
		return summary
	}

	o.storeSummary(summary)
	log.WithFields(logrus.Fields{
		"ingredients": len(summary.IngredientIDs),
		"additives":   len(summary.AdditiveIDs),
		"not_found":   len(summary.NotFound),
	}).Info("Associations persisted")
	return summary
}

// SaveReportAssociations is the manually triggered variant of PersistAssociations.
// A hard error raises a notice and is returned; existing links are left as they were.
func (o *Orchestrator) SaveReportAssociations(ctx context.Context, report models.AIReport, item *models.CatalogueItem) (models.AssociationSummary, error) {
	if item == nil {
		return models.AssociationSummary{}, apperrors.NewValidationError("a catalogue item must be selected", nil)
	}
	if o.deps.Associations == nil {
		return models.AssociationSummary{}, apperrors.NewInternalError("association store not configured", nil)
	}

	start := time.Now()
	summary, err := o.replaceAssociations(ctx, report, item.ID)
	o.publishAssociations(ctx, summary, time.Since(start), err)

	if err != nil {
		summary.Error = err.Error()
		logger.WithError(err).WithField("item_id", item.ID).Error("Failed to save report associations")
		if apperrors.IsType(err, apperrors.ErrorTypePermissionConflict) {
			o.notify(ctx, permissionConflictNotice())
			return summary, err
		}
		o.notify(ctx, associationSaveFailedNotice())
		return summary, apperrors.NewPersistenceError("saving associations failed", err)
	}

	o.storeSummary(summary)
	o.notify(ctx, associationsSavedNotice(summary))
	return summary, nil
}

// replaceAssociations resolves every name one at a time, in input order, then
// replaces the links of each category that resolved at least one id in one
// atomic write. No link is written unless every lookup succeeded.
func (o *Orchestrator) replaceAssociations(ctx context.Context, report models.AIReport, itemID string) (models.AssociationSummary, error) {
	summary := models.AssociationSummary{
		ItemID:        itemID,
		Resolutions:   []models.AssociationResolution{},
		IngredientIDs: []string{},
		AdditiveIDs:   []string{},
		NotFound:      []string{},
	}
	store := o.deps.Associations

	ingredientIDs, err := resolveNames(ctx, &summary, models.CategoryIngredient, report.Ingredients, store.SearchIngredientByName)
	if err != nil {
		return summary, err
	}
	additiveIDs, err := resolveNames(ctx, &summary, models.CategoryAdditive, report.Additives, store.SearchAdditiveByName)
	if err != nil {
		return summary, err
	}
	summary.IngredientIDs = ingredientIDs
	summary.AdditiveIDs = additiveIDs

	// Categories with nothing resolved keep their links.
	var replaceIngredients, replaceAdditives []string
	if len(ingredientIDs) > 0 {
		replaceIngredients = ingredientIDs
	}
	if len(additiveIDs) > 0 {
		replaceAdditives = additiveIDs
	}
	if replaceIngredients != nil || replaceAdditives != nil {
		if err := store.ReplaceLinks(ctx, itemID, replaceIngredients, replaceAdditives); err != nil {
			return summary, fmt.Errorf("replacing links: %w", err)
		}
	}
	summary.IngredientsUpdated = replaceIngredients != nil
	summary.AdditivesUpdated = replaceAdditives != nil

	summary.Message = summaryMessage(summary)
	return summary, nil
}

type searchFunc func(ctx context.Context, name string) (string, bool, error)

func resolveNames(ctx context.Context, summary *models.AssociationSummary, category models.AssociationCategory, names []string, search searchFunc) ([]string, error) {
	ids := []string{}
	seen := make(map[string]bool)

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		id, found, err := search(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("searching %s %q: %w", category, name, err)
		}

		summary.Resolutions = append(summary.Resolutions, models.AssociationResolution{
			Category:   category,
			Name:       name,
			ResolvedID: id,
			Found:      found,
		})
		if !found {
			summary.NotFound = append(summary.NotFound, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (o *Orchestrator) storeSummary(summary models.AssociationSummary) {
	o.mu.Lock()
	o.associations = &summary
	o.mu.Unlock()
}

func (o *Orchestrator) publishAssociations(ctx context.Context, summary models.AssociationSummary, d time.Duration, err error) {
	o.publish(ctx, observer.ScanEvent{
		EventType:    observer.AssociationsPersisted,
		Duration:     d,
		Success:      err == nil,
		ErrorMessage: errString(err),
		Metadata: map[string]interface{}{
			"item_id":   summary.ItemID,
			"not_found": len(summary.NotFound),
		},
	})
}
