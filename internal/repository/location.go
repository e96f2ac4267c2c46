package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationRepository reads the region > district > sub-district tree.
type LocationRepository struct {
	db dbtx
}

func NewLocationRepository(pool *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{db: pool}
}

func (r *LocationRepository) Create(ctx context.Context, l *domain.Location) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO locations (id, name, level, parent_id) VALUES ($1, $2, $3, $4)`,
		l.ID, l.Name, l.Level, nullableString(l.ParentID),
	)
	return err
}

func (r *LocationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	var l domain.Location
	var parentID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, name, level, parent_id FROM locations WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.Name, &l.Level, &parentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, err
	}
	l.ParentID = derefString(parentID)
	return &l, nil
}

// GetAncestors returns the chain above id, nearest parent first.
func (r *LocationRepository) GetAncestors(ctx context.Context, id string) ([]*domain.Location, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		`WITH RECURSIVE up AS (
			SELECT l.id, l.name, l.level, l.parent_id, 0 AS depth FROM locations l WHERE l.id = $1
			UNION ALL
			SELECT l.id, l.name, l.level, l.parent_id, up.depth + 1
			FROM locations l JOIN up ON l.id = up.parent_id
		)
		SELECT id, name, level, parent_id FROM up WHERE depth > 0 ORDER BY depth`,
		id,
	)
	if err != nil {
		return nil, err
	}
	return scanLocations(rows)
}

// GetDescendants returns every location below id at any depth.
func (r *LocationRepository) GetDescendants(ctx context.Context, id string) ([]*domain.Location, error) {
	rows, err := r.db.Query(ctx,
		`WITH RECURSIVE down AS (
			SELECT l.id, l.name, l.level, l.parent_id FROM locations l WHERE l.parent_id = $1
			UNION ALL
			SELECT l.id, l.name, l.level, l.parent_id
			FROM locations l JOIN down ON l.parent_id = down.id
		)
		SELECT id, name, level, parent_id FROM down ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, err
	}
	return scanLocations(rows)
}

func scanLocations(rows pgx.Rows) ([]*domain.Location, error) {
	defer rows.Close()
	var out []*domain.Location
	for rows.Next() {
		var l domain.Location
		var parentID *string
		if err := rows.Scan(&l.ID, &l.Name, &l.Level, &parentID); err != nil {
			return nil, err
		}
		l.ParentID = derefString(parentID)
		out = append(out, &l)
	}
	return out, rows.Err()
}

// locationPaths maps each id to the names from its region down to itself.
func locationPaths(ctx context.Context, db dbtx, ids []string) (map[string][]string, error) {
	rows, err := db.Query(ctx,
		`WITH RECURSIVE chain AS (
			SELECT l.id AS leaf_id, l.name, l.parent_id, 0 AS depth FROM locations l WHERE l.id = ANY($1)
			UNION ALL
			SELECT chain.leaf_id, l.name, l.parent_id, chain.depth + 1
			FROM locations l JOIN chain ON l.id = chain.parent_id
		)
		SELECT leaf_id, name FROM chain ORDER BY leaf_id, depth DESC`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string][]string)
	for rows.Next() {
		var leaf, name string
		if err := rows.Scan(&leaf, &name); err != nil {
			return nil, err
		}
		paths[leaf] = append(paths[leaf], name)
	}
	return paths, rows.Err()
}
