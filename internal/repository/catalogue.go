package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go-catfood-scanner/pkg/models"

	"github.com/google/uuid"
)

const itemColumns = `id, name, brand, barcode, image_url, owner_id, created_at`

// CreateItem inserts a catalogue item, assigning an id when it has none
func (s *Store) CreateItem(ctx context.Context, item models.CatalogueItem) (models.CatalogueItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return models.CatalogueItem{}, fmt.Errorf("catalogue item name is required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	created := s.timestamp()
	item.CreatedAt = parseTimestamp(created)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalogue_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Brand, item.Barcode, item.ImageURL, item.OwnerID, created)
	if err != nil {
		return models.CatalogueItem{}, fmt.Errorf("inserting catalogue item: %w", err)
	}
	return item, nil
}

// GetItem loads a catalogue item by id
func (s *Store) GetItem(ctx context.Context, id string) (*models.CatalogueItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM catalogue_items WHERE id = ?`, id)
	return scanItem(row)
}

// FindItemByBarcode loads the catalogue item carrying a barcode
func (s *Store) FindItemByBarcode(ctx context.Context, barcode string) (*models.CatalogueItem, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrItemNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM catalogue_items WHERE barcode = ? ORDER BY created_at LIMIT 1`, barcode)
	return scanItem(row)
}

// SearchItems matches query against item names and brands, or an exact barcode
func (s *Store) SearchItems(ctx context.Context, query string, limit int) ([]models.CatalogueItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM catalogue_items
		 WHERE LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR barcode = ?
		 ORDER BY name, id LIMIT ?`,
		pattern, pattern, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching catalogue: %w", err)
	}
	defer rows.Close()

	items := make([]models.CatalogueItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.CatalogueItem, error) {
	var item models.CatalogueItem
	var created string
	err := row.Scan(&item.ID, &item.Name, &item.Brand, &item.Barcode, &item.ImageURL, &item.OwnerID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning catalogue item: %w", err)
	}
	item.CreatedAt = parseTimestamp(created)
	return &item, nil
}

// AddIngredient registers an ingredient name, returning the existing id when
// a name with the same normalized form is already known
func (s *Store) AddIngredient(ctx context.Context, name string) (string, error) {
	return s.addName(ctx, ingredientTable, name)
}

// AddAdditive registers an additive name the same way as AddIngredient
func (s *Store) AddAdditive(ctx context.Context, name string) (string, error) {
	return s.addName(ctx, additiveTable, name)
}

func (s *Store) addName(ctx context.Context, t nameTable, name string) (string, error) {
	norm := normalizeName(name)
	if norm == "" {
		return "", fmt.Errorf("%s name is required", t.kind)
	}

	var id string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM `+t.table+` WHERE normalized_name = ?`, norm).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("looking up %s: %w", t.kind, err)
		}
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+t.table+` (id, name, normalized_name) VALUES (?, ?, ?)`,
			id, strings.TrimSpace(name), norm)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", t.kind, err)
		}
		return nil
	})
	return id, err
}
