// Package brewing — service.go validates resources and asks the limit gate
// before every create.
package brewing

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/features/limits"
)

// Store is the brewing persistence. *Repository implements it.
type Store interface {
	limits.Counter
	CreateBatch(ctx context.Context, b *Batch, limit int) error
	CreateInventoryItem(ctx context.Context, item *InventoryItem, limit int) error
	CreateRecipe(ctx context.Context, rec *Recipe, limit int) error
	ListBatches(ctx context.Context, userID uuid.UUID) ([]*Batch, error)
	ListInventoryItems(ctx context.Context, userID uuid.UUID) ([]*InventoryItem, error)
	ListRecipes(ctx context.Context, userID uuid.UUID) ([]*Recipe, error)
	OwnsRecipe(ctx context.Context, userID, recipeID uuid.UUID) (bool, error)
	Delete(ctx context.Context, resource limits.Resource, userID, id uuid.UUID) error
}

// Service manages brewing resources.
type Service struct {
	repo Store
	gate *limits.Gate
}

// NewService creates the brewing service.
func NewService(repo Store, gate *limits.Gate) *Service {
	return &Service{repo: repo, gate: gate}
}

// admit runs the gate and returns the cap the insert must enforce:
// limits.Unlimited in soft mode or for premium users.
func (s *Service) admit(ctx context.Context, userID uuid.UUID, resource limits.Resource) (int, error) {
	d, err := s.gate.Enforce(ctx, userID, resource)
	if err != nil {
		return 0, err
	}
	if s.gate.Strict() {
		return d.Limit, nil
	}
	return limits.Unlimited, nil
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name is too long (max %d characters)", common.ErrValidation, maxNameLength)
	}
	return name, nil
}

// optionalText trims v and checks it fits a VARCHAR(width) column.
func optionalText(field, v string, width int) (string, error) {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) > width {
		return "", fmt.Errorf("%w: %s is too long (max %d characters)", common.ErrValidation, field, width)
	}
	return v, nil
}

// CreateBatch validates and stores a batch.
//
// Errors:
//   - common.ErrValidation: missing name, long style, bad status, gravities,
//     date, or a recipeId the caller does not own
//   - *limits.LimitError: plan limit reached
func (s *Service) CreateBatch(ctx context.Context, userID uuid.UUID, req BatchRequest) (*Batch, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}
	style, err := optionalText("style", req.Style, maxStyleLength)
	if err != nil {
		return nil, err
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = StatusPlanning
	}
	if !batchStatuses[status] {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrValidation, req.Status)
	}

	for _, g := range []*float64{req.OriginalGravity, req.FinalGravity} {
		if g != nil && (*g < 0.98 || *g > 1.2) {
			return nil, fmt.Errorf("%w: gravity must be between 0.980 and 1.200", common.ErrValidation)
		}
	}
	if req.OriginalGravity != nil && req.FinalGravity != nil && *req.FinalGravity > *req.OriginalGravity {
		return nil, fmt.Errorf("%w: final gravity cannot exceed original gravity", common.ErrValidation)
	}

	var brewDate *time.Time
	if d := strings.TrimSpace(req.BrewDate); d != "" {
		t, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return nil, fmt.Errorf("%w: brewDate must be YYYY-MM-DD", common.ErrValidation)
		}
		brewDate = &t
	}

	if req.RecipeID != nil {
		owned, err := s.repo.OwnsRecipe(ctx, userID, *req.RecipeID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, fmt.Errorf("%w: recipeId does not match any of your recipes", common.ErrValidation)
		}
	}

	limit, err := s.admit(ctx, userID, limits.ResourceBatches)
	if err != nil {
		return nil, err
	}

	b := &Batch{
		ID:              uuid.New(),
		UserID:          userID,
		RecipeID:        req.RecipeID,
		Name:            name,
		Style:           style,
		Status:          status,
		OriginalGravity: req.OriginalGravity,
		FinalGravity:    req.FinalGravity,
		BrewDate:        brewDate,
		Notes:           strings.TrimSpace(req.Notes),
	}
	if err := s.repo.CreateBatch(ctx, b, limit); err != nil {
		return nil, err
	}
	b.ComputeABV()

	log.WithFields(log.Fields{"user_id": userID, "batch_id": b.ID}).Info("batch created")
	return b, nil
}

// CreateInventoryItem validates and stores an inventory item. Category is
// required.
func (s *Service) CreateInventoryItem(ctx context.Context, userID uuid.UUID, req InventoryRequest) (*InventoryItem, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", common.ErrValidation)
	}
	if !inventoryCategories[category] {
		return nil, fmt.Errorf("%w: unknown category %q", common.ErrValidation, req.Category)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", common.ErrValidation)
	}
	unit, err := optionalText("unit", req.Unit, maxUnitLength)
	if err != nil {
		return nil, err
	}

	limit, err := s.admit(ctx, userID, limits.ResourceInventory)
	if err != nil {
		return nil, err
	}

	item := &InventoryItem{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		Category: category,
		Quantity: req.Quantity,
		Unit:     unit,
		Notes:    strings.TrimSpace(req.Notes),
	}
	if err := s.repo.CreateInventoryItem(ctx, item, limit); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "item_id": item.ID}).Info("inventory item created")
	return item, nil
}

// CreateRecipe validates and stores a recipe.
func (s *Service) CreateRecipe(ctx context.Context, userID uuid.UUID, req RecipeRequest) (*Recipe, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}
	style, err := optionalText("style", req.Style, maxStyleLength)
	if err != nil {
		return nil, err
	}
	if req.BatchSizeLiters != nil && *req.BatchSizeLiters <= 0 {
		return nil, fmt.Errorf("%w: batchSizeLiters must be positive", common.ErrValidation)
	}

	limit, err := s.admit(ctx, userID, limits.ResourceRecipes)
	if err != nil {
		return nil, err
	}

	rec := &Recipe{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            name,
		Style:           style,
		BatchSizeLiters: req.BatchSizeLiters,
		Notes:           strings.TrimSpace(req.Notes),
	}
	if err := s.repo.CreateRecipe(ctx, rec, limit); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "recipe_id": rec.ID}).Info("recipe created")
	return rec, nil
}

func (s *Service) ListBatches(ctx context.Context, userID uuid.UUID) ([]*Batch, error) {
	return s.repo.ListBatches(ctx, userID)
}

func (s *Service) ListInventoryItems(ctx context.Context, userID uuid.UUID) ([]*InventoryItem, error) {
	return s.repo.ListInventoryItems(ctx, userID)
}

func (s *Service) ListRecipes(ctx context.Context, userID uuid.UUID) ([]*Recipe, error) {
	return s.repo.ListRecipes(ctx, userID)
}

// Delete removes one of the user's resources.
func (s *Service) Delete(ctx context.Context, resource limits.Resource, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, resource, userID, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": userID, "resource": resource, "id": id}).Info("resource deleted")
	return nil
}
