package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/logger"

	"github.com/sirupsen/logrus"
)

// nameTable describes one of the two name catalogues and its link table
type nameTable struct {
	kind      string
	table     string
	linkTable string
	linkCol   string
}

var (
	ingredientTable = nameTable{kind: "ingredient", table: "ingredients", linkTable: "item_ingredients", linkCol: "ingredient_id"}
	additiveTable   = nameTable{kind: "additive", table: "additives", linkTable: "item_additives", linkCol: "additive_id"}
)

// LinkedName is a name linked to a catalogue item
type LinkedName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchIngredientByName resolves a recognized ingredient name to an id
func (s *Store) SearchIngredientByName(ctx context.Context, name string) (string, bool, error) {
	return s.searchName(ctx, ingredientTable, name)
}

// SearchAdditiveByName resolves a recognized additive name to an id
func (s *Store) SearchAdditiveByName(ctx context.Context, name string) (string, bool, error) {
	return s.searchName(ctx, additiveTable, name)
}

func (s *Store) searchName(ctx context.Context, t nameTable, name string) (string, bool, error) {
	norm := normalizeName(name)
	if norm == "" {
		return "", false, nil
	}

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM `+t.table+` WHERE normalized_name = ?`, norm).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("looking up %s %q: %w", t.kind, name, err)
	}
	if !s.matcher.Fuzzy {
		return "", false, nil
	}

	rows, err := s.loadNames(ctx, t)
	if err != nil {
		return "", false, err
	}
	best, ok := s.matcher.Best(norm, rows)
	if !ok {
		return "", false, nil
	}
	logger.WithFields(logrus.Fields{
		"kind":    t.kind,
		"query":   name,
		"matched": best.Name,
	}).Debug("Resolved name by fuzzy match")
	return best.ID, true, nil
}

func (s *Store) loadNames(ctx context.Context, t nameTable) ([]namedRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, normalized_name FROM `+t.table)
	if err != nil {
		return nil, fmt.Errorf("loading %s names: %w", t.kind, err)
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		var r namedRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Normalized); err != nil {
			return nil, fmt.Errorf("scanning %s name: %w", t.kind, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceIngredientLinks replaces every ingredient link of an item in one transaction
func (s *Store) ReplaceIngredientLinks(ctx context.Context, itemID string, ids []string) error {
	return s.replaceLinks(ctx, "", itemID, linkSet{ingredientTable, ids})
}

// ReplaceAdditiveLinks replaces every additive link of an item in one transaction
func (s *Store) ReplaceAdditiveLinks(ctx context.Context, itemID string, ids []string) error {
	return s.replaceLinks(ctx, "", itemID, linkSet{additiveTable, ids})
}

// ReplaceLinks replaces the ingredient and additive links of an item in a
// single transaction. A nil slice leaves that category untouched.
func (s *Store) ReplaceLinks(ctx context.Context, itemID string, ingredientIDs, additiveIDs []string) error {
	return s.replaceLinks(ctx, "", itemID, categorySets(ingredientIDs, additiveIDs)...)
}

// linkSet is the full list of ids one category of an item links to
type linkSet struct {
	table nameTable
	ids   []string
}

func categorySets(ingredientIDs, additiveIDs []string) []linkSet {
	var sets []linkSet
	if ingredientIDs != nil {
		sets = append(sets, linkSet{ingredientTable, ingredientIDs})
	}
	if additiveIDs != nil {
		sets = append(sets, linkSet{additiveTable, additiveIDs})
	}
	return sets
}

// replaceLinks deletes the item's links of each set then inserts its ids in
// order, all in one transaction.
// A non-empty actor must own the item when the item has an owner.
func (s *Store) replaceLinks(ctx context.Context, actor, itemID string, sets ...linkSet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT owner_id FROM catalogue_items WHERE id = ?`, itemID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("catalogue item not found", ErrItemNotFound)
		}
		if err != nil {
			return fmt.Errorf("loading catalogue item: %w", err)
		}
		if actor != "" && owner != "" && owner != actor {
			return apperrors.NewPermissionConflictError("catalogue item belongs to another user", ErrPermissionConflict)
		}

		for _, set := range sets {
			t := set.table
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+t.linkTable+` WHERE item_id = ?`, itemID); err != nil {
				return fmt.Errorf("clearing %s links: %w", t.kind, err)
			}
			for pos, id := range set.ids {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO `+t.linkTable+` (item_id, `+t.linkCol+`, position) VALUES (?, ?, ?)`,
					itemID, id, pos)
				if err != nil {
					return fmt.Errorf("linking %s %s: %w", t.kind, id, err)
				}
			}
		}
		return nil
	})
}

// LinkedIngredients lists the ingredients linked to an item in link order
func (s *Store) LinkedIngredients(ctx context.Context, itemID string) ([]LinkedName, error) {
	return s.linked(ctx, ingredientTable, itemID)
}

// LinkedAdditives lists the additives linked to an item in link order
func (s *Store) LinkedAdditives(ctx context.Context, itemID string) ([]LinkedName, error) {
	return s.linked(ctx, additiveTable, itemID)
}

func (s *Store) linked(ctx context.Context, t nameTable, itemID string) ([]LinkedName, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT n.id, n.name FROM `+t.linkTable+` l
		 JOIN `+t.table+` n ON n.id = l.`+t.linkCol+`
		 WHERE l.item_id = ? ORDER BY l.position`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing %s links: %w", t.kind, err)
	}
	defer rows.Close()

	out := make([]LinkedName, 0)
	for rows.Next() {
		var n LinkedName
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("scanning %s link: %w", t.kind, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
