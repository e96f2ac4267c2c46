package repository

import (
	"context"

	"github.com/cloo-solutions/plotsearch/internal/contracts"
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const savedSearchColumns = `id::text, user_id, name, criteria, is_active, created_at, updated_at`

type SavedSearchRepository struct {
	db dbtx
}

func NewSavedSearchRepository(pool *pgxpool.Pool) *SavedSearchRepository {
	return &SavedSearchRepository{db: pool}
}

func NewSavedSearchRepositoryWithTx(tx pgx.Tx) *SavedSearchRepository {
	return &SavedSearchRepository{db: tx}
}

func (r *SavedSearchRepository) Create(ctx context.Context, s *domain.SavedSearch) error {
	criteria, err := contracts.EncodeCriteria(s.Criteria)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO saved_searches (id, user_id, name, criteria, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.Name, criteria, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SavedSearchRepository) GetByID(ctx context.Context, id string) (*domain.SavedSearch, error) {
	return r.getOne(ctx, `SELECT `+savedSearchColumns+` FROM saved_searches WHERE id = $1`, id)
}

func (r *SavedSearchRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.SavedSearch, error) {
	return r.getOne(ctx, `SELECT `+savedSearchColumns+` FROM saved_searches WHERE id = $1 FOR UPDATE`, id)
}

func (r *SavedSearchRepository) getOne(ctx context.Context, query, id string) (*domain.SavedSearch, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	list, err := scanSavedSearches(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrSavedSearchNotFound
	}
	return list[0], nil
}

func (r *SavedSearchRepository) ListByUser(ctx context.Context, userID string) ([]*domain.SavedSearch, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanSavedSearches(rows)
}

func (r *SavedSearchRepository) Update(ctx context.Context, s *domain.SavedSearch) error {
	criteria, err := contracts.EncodeCriteria(s.Criteria)
	if err != nil {
		return err
	}
	result, err := r.db.Exec(ctx,
		`UPDATE saved_searches SET name = $2, criteria = $3, is_active = $4, updated_at = $5 WHERE id = $1`,
		s.ID, s.Name, criteria, s.IsActive, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSavedSearchNotFound
	}
	return nil
}

func (r *SavedSearchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM saved_searches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSavedSearchNotFound
	}
	return nil
}

func (r *SavedSearchRepository) FindAllActive(ctx context.Context) ([]*domain.SavedSearch, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE is_active ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	return scanSavedSearches(rows)
}

func scanSavedSearches(rows pgx.Rows) ([]*domain.SavedSearch, error) {
	defer rows.Close()
	var out []*domain.SavedSearch
	for rows.Next() {
		var s domain.SavedSearch
		var raw []byte
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &raw, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		criteria, err := contracts.DecodeCriteria(raw)
		if err != nil {
			return nil, err
		}
		s.Criteria = criteria
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

