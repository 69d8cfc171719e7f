package models

import "time"

// CatalogueItem is a cat-food product in the catalogue
type CatalogueItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand,omitempty"`
	Barcode   string    `json:"barcode,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AssociationCategory distinguishes the two kinds of item links
type AssociationCategory string

const (
	CategoryIngredient AssociationCategory = "ingredient"
	CategoryAdditive   AssociationCategory = "additive"
)

// AssociationResolution is the lookup outcome for one recognized name
type AssociationResolution struct {
	Category   AssociationCategory `json:"category"`
	Name       string              `json:"name"`
	ResolvedID string              `json:"resolved_id,omitempty"`
	Found      bool                `json:"found"`
}

// AssociationSummary reports what an association save did.
// NotFound keeps the order in which names were looked up.
type AssociationSummary struct {
	ItemID             string                  `json:"item_id"`
	Resolutions        []AssociationResolution `json:"resolutions"`
	IngredientIDs      []string                `json:"ingredient_ids"`
	AdditiveIDs        []string                `json:"additive_ids"`
	IngredientsUpdated bool                    `json:"ingredients_updated"`
	AdditivesUpdated   bool                    `json:"additives_updated"`
	NotFound           []string                `json:"not_found"`
	Message            string                  `json:"message"`
	Error              string                  `json:"error,omitempty"`
}
