// Package brewing stores the plan-limited resources: batches, inventory
// items and recipes.
// models.go describes the three tables and the create payloads.
package brewing

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Batch statuses.
const (
	StatusPlanning     = "planning"
	StatusFermenting   = "fermenting"
	StatusConditioning = "conditioning"
	StatusPackaged     = "packaged"
)

var batchStatuses = map[string]bool{
	StatusPlanning:     true,
	StatusFermenting:   true,
	StatusConditioning: true,
	StatusPackaged:     true,
}

// Inventory categories.
var inventoryCategories = map[string]bool{
	"grain":     true,
	"hops":      true,
	"yeast":     true,
	"adjunct":   true,
	"equipment": true,
	"other":     true,
}

// Column widths the create validation enforces.
const (
	maxNameLength  = 255
	maxStyleLength = 255
	maxUnitLength  = 30
)

// abvFactor converts the gravity drop to percent alcohol by volume.
const abvFactor = 131.25

// Batch is one brew day and its fermentation.
type Batch struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"userId" db:"user_id"`
	RecipeID        *uuid.UUID `json:"recipeId" db:"recipe_id"`
	Name            string     `json:"name" db:"name"`
	Style           string     `json:"style" db:"style"`
	Status          string     `json:"status" db:"status"`
	OriginalGravity *float64   `json:"originalGravity" db:"original_gravity"`
	FinalGravity    *float64   `json:"finalGravity" db:"final_gravity"`
	ABV             *float64   `json:"abv" db:"-"`
	BrewDate        *time.Time `json:"brewDate" db:"brew_date"`
	Notes           string     `json:"notes" db:"notes"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// ComputeABV fills ABV when both gravities are known: (OG - FG) * 131.25,
// rounded to two decimals.
func (b *Batch) ComputeABV() {
	b.ABV = nil
	if b.OriginalGravity == nil || b.FinalGravity == nil {
		return
	}
	v := math.Round((*b.OriginalGravity-*b.FinalGravity)*abvFactor*100) / 100
	b.ABV = &v
}

// InventoryItem is an ingredient or piece of equipment on hand.
type InventoryItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	Quantity  float64   `json:"quantity" db:"quantity"`
	Unit      string    `json:"unit" db:"unit"`
	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Recipe is a saved recipe.
type Recipe struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"userId" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Style           string    `json:"style" db:"style"`
	BatchSizeLiters *float64  `json:"batchSizeLiters" db:"batch_size_liters"`
	Notes           string    `json:"notes" db:"notes"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// BatchRequest is the POST /api/batches body. BrewDate is YYYY-MM-DD.
// RecipeID must name one of the caller's recipes when set; afterwards it is a
// weak reference and survives the recipe being deleted.
type BatchRequest struct {
	RecipeID        *uuid.UUID `json:"recipeId"`
	Name            string     `json:"name"`
	Style           string     `json:"style"`
	Status          string     `json:"status"`
	OriginalGravity *float64   `json:"originalGravity"`
	FinalGravity    *float64   `json:"finalGravity"`
	BrewDate        string     `json:"brewDate"`
	Notes           string     `json:"notes"`
}

// InventoryRequest is the POST /api/inventory body.
type InventoryRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes"`
}

// RecipeRequest is the POST /api/recipes body.
type RecipeRequest struct {
	Name            string   `json:"name"`
	Style           string   `json:"style"`
	BatchSizeLiters *float64 `json:"batchSizeLiters"`
	Notes           string   `json:"notes"`
}
