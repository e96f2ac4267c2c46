package service

import (
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
)

// ListingHit is one row of a result page. DistanceKm is set only when the
// search had a radius.
type ListingHit struct {
	Property   *domain.Property
	DistanceKm *float64
}

// Suggestion is a relaxed version of a zero-result search that does match.
type Suggestion struct {
	Kind        string
	Description string
	Criteria    domain.SearchCriteria
	Count       int
}

const (
	SuggestionPriceWidened   = "price_widened"
	SuggestionLocationParent = "location_parent"
)

// SearchResult is a page of listings plus the metadata a client needs to
// render and paginate it.
type SearchResult struct {
	Items              []ListingHit
	Pagination         pagination.Meta
	EffectiveSortBy    domain.SortKey
	EffectiveSortOrder domain.SortOrder
	SortFallback       bool
	AppliedFilters     []string
	Available          *FilterSummary
	Warnings           []filter.Warning
	Suggestions        []Suggestion
}

// Total is the match count reported with the page.
func (r *SearchResult) Total() int {
	return r.Pagination.Total
}

// IDs returns the listing ids in result order.
func (r *SearchResult) IDs() []string {
	ids := make([]string, len(r.Items))
	for i, hit := range r.Items {
		ids[i] = hit.Property.ID
	}
	return ids
}
