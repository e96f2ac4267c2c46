package service

import (
	"context"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/google/uuid"
)

// SortField is one ORDER BY term.
type SortField struct {
	Key   domain.SortKey
	Order domain.SortOrder
}

// DistanceHit is a listing with its distance from a search center.
type DistanceHit struct {
	Property   *domain.Property
	DistanceKm float64
}

// FilterSummary describes the value ranges available in a matching set.
type FilterSummary struct {
	MinPrice   *float64                `json:"min_price,omitempty"`
	MaxPrice   *float64                `json:"max_price,omitempty"`
	MinArea    *float64                `json:"min_area,omitempty"`
	MaxArea    *float64                `json:"max_area,omitempty"`
	Categories map[domain.Category]int `json:"categories"`
}

// PropertyStore is the queryable listing store. Implementations evaluate
// tree.Predicates only; post-filters are the caller's job.
type PropertyStore interface {
	FindMany(ctx context.Context, tree *filter.Tree, sort []SortField, skip, take int) ([]*domain.Property, error)
	Count(ctx context.Context, tree *filter.Tree) (int, error)
	// FindWithinRadius is only called when SupportsGeography is true. Results
	// are ordered by distance ascending, then creation time descending.
	FindWithinRadius(ctx context.Context, tree *filter.Tree, center geo.Point, radiusMeters float64, skip, take int) ([]DistanceHit, error)
	Summarize(ctx context.Context, tree *filter.Tree) (*FilterSummary, error)
	SupportsGeography() bool
}

// LocationStore resolves the region hierarchy. GetAncestors returns the
// nearest ancestor first.
type LocationStore interface {
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	GetAncestors(ctx context.Context, id string) ([]*domain.Location, error)
	GetDescendants(ctx context.Context, id string) ([]*domain.Location, error)
}

// FeatureStore checks feature ids supplied in criteria.
type FeatureStore interface {
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// SavedSearchRepositoryInterface defines persistence for saved searches
type SavedSearchRepositoryInterface interface {
	Create(ctx context.Context, s *domain.SavedSearch) error
	GetByID(ctx context.Context, id string) (*domain.SavedSearch, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.SavedSearch, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.SavedSearch, error)
	Update(ctx context.Context, s *domain.SavedSearch) error
	Delete(ctx context.Context, id string) error
	FindAllActive(ctx context.Context) ([]*domain.SavedSearch, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
