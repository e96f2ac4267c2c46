package filter

import "github.com/cloo-solutions/plotsearch/internal/domain"

// Warning records a criteria field the compiler ignored.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Tree is the conjunction of store-pushable predicates plus the post-filters
// that have to run after fetching. An empty Predicates list still carries the
// status predicate, so it matches every listing in the base status scope.
type Tree struct {
	Predicates  []Predicate
	PostFilters []Predicate
	Warnings    []Warning
}

// Match evaluates the whole tree, post-filters included.
func (t *Tree) Match(p *domain.Property) bool {
	return t.MatchPushable(p) && t.MatchPostFilters(p)
}

// MatchPushable evaluates only the predicates a store would run.
func (t *Tree) MatchPushable(p *domain.Property) bool {
	for _, pred := range t.Predicates {
		if !pred.Match(p) {
			return false
		}
	}
	return true
}

// MatchPostFilters evaluates only the post-filters.
func (t *Tree) MatchPostFilters(p *domain.Property) bool {
	for _, pred := range t.PostFilters {
		if !pred.Match(p) {
			return false
		}
	}
	return true
}

// HasPostFilters reports whether anything must run outside the store.
func (t *Tree) HasPostFilters() bool {
	return len(t.PostFilters) > 0
}

// ApplyPostFilters keeps the listings that pass every post-filter, in order.
func (t *Tree) ApplyPostFilters(items []*domain.Property) []*domain.Property {
	if !t.HasPostFilters() {
		return items
	}
	out := make([]*domain.Property, 0, len(items))
	for _, p := range items {
		if t.MatchPostFilters(p) {
			out = append(out, p)
		}
	}
	return out
}

// Pushable returns a copy without post-filters.
func (t *Tree) Pushable() *Tree {
	return &Tree{
		Predicates: append([]Predicate(nil), t.Predicates...),
		Warnings:   t.Warnings,
	}
}

// With returns a copy with extra store-pushable predicates appended.
func (t *Tree) With(preds ...Predicate) *Tree {
	out := &Tree{
		Predicates:  make([]Predicate, 0, len(t.Predicates)+len(preds)),
		PostFilters: append([]Predicate(nil), t.PostFilters...),
		Warnings:    t.Warnings,
	}
	out.Predicates = append(out.Predicates, t.Predicates...)
	out.Predicates = append(out.Predicates, preds...)
	return out
}

// Radius returns the tree's radius predicate, if any.
func (t *Tree) Radius() (GeoRadius, bool) {
	for _, pred := range t.Predicates {
		if g, ok := pred.(GeoRadius); ok {
			return g, true
		}
	}
	return GeoRadius{}, false
}

// Without returns a copy with every predicate of kind k removed.
func (t *Tree) Without(k Kind) *Tree {
	out := &Tree{
		PostFilters: append([]Predicate(nil), t.PostFilters...),
		Warnings:    t.Warnings,
	}
	for _, pred := range t.Predicates {
		if pred.Kind() != k {
			out.Predicates = append(out.Predicates, pred)
		}
	}
	return out
}

// Applied renders every predicate for the applied-filter summary.
func (t *Tree) Applied() []string {
	out := make([]string, 0, len(t.Predicates)+len(t.PostFilters))
	for _, pred := range t.Predicates {
		out = append(out, pred.String())
	}
	for _, pred := range t.PostFilters {
		out = append(out, pred.String())
	}
	return out
}
