// Package brewing — repository.go works with batches, inventory_items and
// recipes. It also counts rows for the limit gate.
package brewing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/db/postgres"
	"crackedgrain.shop/storefront/internal/features/limits"
)

// tables maps each gated resource to its table.
var tables = map[limits.Resource]string{
	limits.ResourceBatches:   "batches",
	limits.ResourceInventory: "inventory_items",
	limits.ResourceRecipes:   "recipes",
}

// Repository stores brewing resources.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func tableFor(resource limits.Resource) (string, error) {
	t, ok := tables[resource]
	if !ok {
		return "", fmt.Errorf("%w: unknown resource %q", common.ErrValidation, resource)
	}
	return t, nil
}

// Count returns how many rows of the resource the user owns.
func (r *Repository) Count(ctx context.Context, userID uuid.UUID, resource limits.Resource) (int, error) {
	table, err := tableFor(resource)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", resource, err)
	}
	return n, nil
}

// insertCapped runs insert in a transaction. With a limit other than
// limits.Unlimited it first locks the user row and re-counts, refusing
// with *limits.LimitError when the ceiling was already reached.
func (r *Repository) insertCapped(ctx context.Context, userID uuid.UUID, resource limits.Resource, limit int, insert func(tx pgx.Tx) error) error {
	table, err := tableFor(resource)
	if err != nil {
		return err
	}

	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if limit != limits.Unlimited {
			if _, err := postgres.LockUser(ctx, tx, userID); err != nil {
				if postgres.IsNoRows(err) {
					return common.ErrUserNotFound
				}
				return fmt.Errorf("lock user: %w", err)
			}

			var count int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, userID).Scan(&count); err != nil {
				return fmt.Errorf("recount %s: %w", resource, err)
			}
			if count >= limit {
				return &limits.LimitError{Decision: limits.Decision{
					Resource:     resource,
					CurrentCount: count,
					Limit:        limit,
					Tier:         common.TierFree,
				}}
			}
		}
		return insert(tx)
	})
}

// CreateBatch inserts a batch. limit is limits.Unlimited or the hard cap.
func (r *Repository) CreateBatch(ctx context.Context, b *Batch, limit int) error {
	return r.insertCapped(ctx, b.UserID, limits.ResourceBatches, limit, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO batches (id, user_id, recipe_id, name, style, status,
				original_gravity, final_gravity, brew_date, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at
		`, b.ID, b.UserID, b.RecipeID, b.Name, b.Style, b.Status,
			b.OriginalGravity, b.FinalGravity, b.BrewDate, b.Notes,
		).Scan(&b.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		return nil
	})
}

// CreateInventoryItem inserts an inventory item.
func (r *Repository) CreateInventoryItem(ctx context.Context, item *InventoryItem, limit int) error {
	return r.insertCapped(ctx, item.UserID, limits.ResourceInventory, limit, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO inventory_items (id, user_id, name, category, quantity, unit, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`, item.ID, item.UserID, item.Name, item.Category, item.Quantity, item.Unit, item.Notes,
		).Scan(&item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert inventory item: %w", err)
		}
		return nil
	})
}

// CreateRecipe inserts a recipe.
func (r *Repository) CreateRecipe(ctx context.Context, rec *Recipe, limit int) error {
	return r.insertCapped(ctx, rec.UserID, limits.ResourceRecipes, limit, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO recipes (id, user_id, name, style, batch_size_liters, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, rec.ID, rec.UserID, rec.Name, rec.Style, rec.BatchSizeLiters, rec.Notes,
		).Scan(&rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		return nil
	})
}

// ListBatches returns the user's batches, newest first.
func (r *Repository) ListBatches(ctx context.Context, userID uuid.UUID) ([]*Batch, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, recipe_id, name, style, status,
			original_gravity, final_gravity, brew_date, notes, created_at
		FROM batches
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	out := make([]*Batch, 0)
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.UserID, &b.RecipeID, &b.Name, &b.Style, &b.Status,
			&b.OriginalGravity, &b.FinalGravity, &b.BrewDate, &b.Notes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.ComputeABV()
		out = append(out, &b)
	}
	return out, rows.Err()
}

// ListInventoryItems returns the user's inventory, newest first.
func (r *Repository) ListInventoryItems(ctx context.Context, userID uuid.UUID) ([]*InventoryItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, category, quantity, unit, notes, created_at
		FROM inventory_items
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	out := make([]*InventoryItem, 0)
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.Name, &it.Category, &it.Quantity,
			&it.Unit, &it.Notes, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

// OwnsRecipe reports whether the recipe exists and belongs to the user.
func (r *Repository) OwnsRecipe(ctx context.Context, userID, recipeID uuid.UUID) (bool, error) {
	var owned bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1 AND user_id = $2)`,
		recipeID, userID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check recipe owner: %w", err)
	}
	return owned, nil
}

// ListRecipes returns the user's recipes, newest first.
func (r *Repository) ListRecipes(ctx context.Context, userID uuid.UUID) ([]*Recipe, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, style, batch_size_liters, notes, created_at
		FROM recipes
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	out := make([]*Recipe, 0)
	for rows.Next() {
		var rec Recipe
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Style,
			&rec.BatchSizeLiters, &rec.Notes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Delete removes one of the user's rows. common.ErrNotFound when the row
// does not exist or belongs to someone else.
func (r *Repository) Delete(ctx context.Context, resource limits.Resource, userID, id uuid.UUID) error {
	table, err := tableFor(resource)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
