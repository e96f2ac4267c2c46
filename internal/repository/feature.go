package repository

import (
	"context"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FeatureRepository struct {
	db dbtx
}

func NewFeatureRepository(pool *pgxpool.Pool) *FeatureRepository {
	return &FeatureRepository{db: pool}
}

func (r *FeatureRepository) Create(ctx context.Context, f *domain.Feature) error {
	_, err := r.db.Exec(ctx, `INSERT INTO features (id, name) VALUES ($1, $2)`, f.ID, f.Name)
	return err
}

// ExistingIDs returns the subset of ids that name a known feature.
func (r *FeatureRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM features WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
