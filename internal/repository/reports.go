package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/pkg/models"

	"github.com/google/uuid"
)

// StoredReport is a report persisted against a catalogue item
type StoredReport struct {
	ID              string          `json:"id"`
	ItemID          string          `json:"item_id"`
	CreatedBy       string          `json:"created_by"`
	IngredientsText string          `json:"ingredients_text"`
	Report          models.AIReport `json:"report"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SaveReport stores the report for req.TargetItemID on behalf of actor.
// An item holds one report; only the user who first saved it may replace it.
func (s *Store) SaveReport(ctx context.Context, actor string, req models.SaveReportRequest) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return apperrors.NewValidationError("actor id is required", ErrMissingActor)
	}
	body, err := json.Marshal(models.AIReport{
		Tags:        req.Tags,
		Safety:      req.Safety,
		Nutrient:    req.Nutrient,
		Additives:   req.Additives,
		Ingredients: req.Ingredients,
		Percentage:  req.Percentage,
		PercentData: req.PercentData,
	})
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	now := s.timestamp()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT owner_id FROM catalogue_items WHERE id = ?`, req.TargetItemID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("catalogue item not found", ErrItemNotFound)
		}
		if err != nil {
			return fmt.Errorf("loading catalogue item: %w", err)
		}

		var createdBy string
		err = tx.QueryRowContext(ctx, `SELECT created_by FROM ai_reports WHERE item_id = ?`, req.TargetItemID).Scan(&createdBy)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if owner != "" && owner != actor {
				return apperrors.NewPermissionConflictError("catalogue item belongs to another user", ErrPermissionConflict)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ai_reports (id, item_id, created_by, ingredients_text, report_json, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), req.TargetItemID, actor, req.IngredientsText, string(body), now, now)
			if err != nil {
				return fmt.Errorf("inserting report: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("loading existing report: %w", err)
		}

		if createdBy != actor {
			return apperrors.NewPermissionConflictError("report belongs to another user", ErrPermissionConflict)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ai_reports SET ingredients_text = ?, report_json = ?, updated_at = ? WHERE item_id = ?`,
			req.IngredientsText, string(body), now, req.TargetItemID)
		if err != nil {
			return fmt.Errorf("updating report: %w", err)
		}
		return nil
	})
}

// GetReport loads the report stored for an item
func (s *Store) GetReport(ctx context.Context, itemID string) (*StoredReport, error) {
	var (
		r                StoredReport
		body             string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, item_id, created_by, ingredients_text, report_json, created_at, updated_at
		 FROM ai_reports WHERE item_id = ?`, itemID).
		Scan(&r.ID, &r.ItemID, &r.CreatedBy, &r.IngredientsText, &body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading report: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &r.Report); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	r.CreatedAt = parseTimestamp(created)
	r.UpdatedAt = parseTimestamp(updated)
	return &r, nil
}

// ActorStore performs writes on behalf of one user
type ActorStore struct {
	store *Store
	actor string
}

// As returns a view of the store whose writes are attributed to actor
func (s *Store) As(actor string) *ActorStore {
	return &ActorStore{store: s, actor: strings.TrimSpace(actor)}
}

// Actor returns the user id writes are attributed to
func (a *ActorStore) Actor() string { return a.actor }

func (a *ActorStore) SaveReport(ctx context.Context, req models.SaveReportRequest) error {
	return a.store.SaveReport(ctx, a.actor, req)
}

func (a *ActorStore) SearchIngredientByName(ctx context.Context, name string) (string, bool, error) {
	return a.store.SearchIngredientByName(ctx, name)
}

func (a *ActorStore) SearchAdditiveByName(ctx context.Context, name string) (string, bool, error) {
	return a.store.SearchAdditiveByName(ctx, name)
}

func (a *ActorStore) ReplaceIngredientLinks(ctx context.Context, itemID string, ids []string) error {
	return a.store.replaceLinks(ctx, a.actor, itemID, linkSet{ingredientTable, ids})
}

func (a *ActorStore) ReplaceAdditiveLinks(ctx context.Context, itemID string, ids []string) error {
	return a.store.replaceLinks(ctx, a.actor, itemID, linkSet{additiveTable, ids})
}

func (a *ActorStore) ReplaceLinks(ctx context.Context, itemID string, ingredientIDs, additiveIDs []string) error {
	return a.store.replaceLinks(ctx, a.actor, itemID, categorySets(ingredientIDs, additiveIDs)...)
}
