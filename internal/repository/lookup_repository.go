package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/CETS-Org/cets-worker/internal/models"
)

// LookupRepository resolves symbolic status/type codes against the lookup table.
type LookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository constructs the repository.
func NewLookupRepository(db *sqlx.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// ListByCategory returns all lookups in a category.
func (r *LookupRepository) ListByCategory(ctx context.Context, category models.LookupCategory) ([]models.Lookup, error) {
	const query = `SELECT id, category, code, name FROM ref_lookups WHERE category = $1 ORDER BY code ASC`
	var lookups []models.Lookup
	if err := r.db.SelectContext(ctx, &lookups, query, category); err != nil {
		return nil, fmt.Errorf("list lookups for %s: %w", category, err)
	}
	return lookups, nil
}
