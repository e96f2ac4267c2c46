package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/cloo-solutions/plotsearch/internal/logging"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
	"github.com/cloo-solutions/plotsearch/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStoreTimeout  = 5 * time.Second
	DefaultMaxCandidates = 5000

	collectBatchSize = 500
)

// ExecutorConfig tunes store access.
type ExecutorConfig struct {
	// StoreTimeout bounds every single store round-trip. Zero disables it.
	StoreTimeout time.Duration
	// MaxCandidates caps how many rows are pulled into memory when results
	// have to be filtered or grouped outside the store.
	MaxCandidates int
}

// ExecuteOptions toggles optional work in Execute.
type ExecuteOptions struct {
	IncludeAvailable bool
}

// QueryExecutor runs compiled predicate trees against the property store.
type QueryExecutor struct {
	store   PropertyStore
	cfg     ExecutorConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewQueryExecutor creates a QueryExecutor; nil logger and metrics are allowed.
func NewQueryExecutor(store PropertyStore, cfg ExecutorConfig, logger *slog.Logger, m *metrics.Metrics) *QueryExecutor {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	return &QueryExecutor{
		store:   store,
		cfg:     cfg,
		logger:  logging.OrDefault(logger),
		metrics: m,
	}
}

// Store returns the underlying property store.
func (e *QueryExecutor) Store() PropertyStore {
	return e.store
}

// ResolveSort maps a requested key to store sort fields. Keys the store
// cannot order by fall back to createdAt desc and report fallback=true. A
// createdAt desc tiebreak is appended whenever the primary key is not
// createdAt.
func ResolveSort(key domain.SortKey, order domain.SortOrder) (fields []SortField, effective domain.SortKey, effectiveOrder domain.SortOrder, fallback bool) {
	if order != domain.SortAsc {
		order = domain.SortDesc
	}
	switch {
	case key == "":
		key = domain.SortByCreatedAt
		order = domain.SortDesc
	case !key.StoreSortable():
		key = domain.SortByCreatedAt
		order = domain.SortDesc
		fallback = true
	}

	fields = []SortField{{Key: key, Order: order}}
	if key != domain.SortByCreatedAt {
		fields = append(fields, SortField{Key: domain.SortByCreatedAt, Order: domain.SortDesc})
	}
	return fields, key, order, fallback
}

// Execute fetches one page for tree. Count and page run concurrently and
// both must succeed. When the tree has post-filters they run over the
// fetched page only, and Total becomes the size of the filtered page.
func (e *QueryExecutor) Execute(ctx context.Context, tree *filter.Tree, page pagination.Page, sortBy domain.SortKey, order domain.SortOrder, opts ExecuteOptions) (result *SearchResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryExecutor.Execute", telemetry.SpanAttributes{Operation: "execute"})
	defer span.End()
	start := time.Now()
	defer func() {
		e.metrics.ObserveOperation("execute", start, err)
		span.SetError(err)
	}()

	fields, effective, effectiveOrder, fallback := ResolveSort(sortBy, order)

	var (
		total   int
		items   []*domain.Property
		summary *FilterSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.count(gctx, tree)
		total = n
		return err
	})
	g.Go(func() error {
		rows, err := e.findMany(gctx, tree, fields, page.Offset(), page.Limit)
		items = rows
		return err
	})
	if opts.IncludeAvailable {
		g.Go(func() error {
			s, err := e.summarize(gctx, tree)
			summary = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if tree.HasPostFilters() {
		items = tree.ApplyPostFilters(items)
		total = len(items)
	}

	result = &SearchResult{
		Items:              hitsFor(tree, items),
		Pagination:         pagination.NewMeta(page, total),
		EffectiveSortBy:    effective,
		EffectiveSortOrder: effectiveOrder,
		SortFallback:       fallback,
		AppliedFilters:     tree.Applied(),
		Available:          summary,
		Warnings:           tree.Warnings,
	}
	if fallback {
		e.logger.Debug("sort key not supported by store, using createdAt", "requested", sortBy)
	}
	e.metrics.ObserveResults("execute", total)
	return result, nil
}

// Count asks the store for the number of rows matching the pushable part of
// tree. Post-filters are ignored, so the result may exceed what Execute
// returns.
func (e *QueryExecutor) Count(ctx context.Context, tree *filter.Tree) (int, error) {
	return e.count(ctx, tree.Pushable())
}

// CountExact counts matches with post-filters applied. Without post-filters
// it is a plain store count; otherwise candidates are scanned in batches.
func (e *QueryExecutor) CountExact(ctx context.Context, tree *filter.Tree) (int, error) {
	if !tree.HasPostFilters() {
		return e.count(ctx, tree)
	}
	items, truncated, err := e.CollectAll(ctx, tree)
	if err != nil {
		return 0, err
	}
	if truncated {
		e.logger.Warn("exact count truncated", "max_candidates", e.cfg.MaxCandidates)
	}
	return len(tree.ApplyPostFilters(items)), nil
}

// CollectAll pages through every row matching the pushable predicates in
// createdAt desc order, stopping at MaxCandidates. truncated reports whether
// the cap was hit.
func (e *QueryExecutor) CollectAll(ctx context.Context, tree *filter.Tree) (items []*domain.Property, truncated bool, err error) {
	fields, _, _, _ := ResolveSort(domain.SortByCreatedAt, domain.SortDesc)
	for skip := 0; skip < e.cfg.MaxCandidates; skip += collectBatchSize {
		take := collectBatchSize
		if rest := e.cfg.MaxCandidates - skip; rest < take {
			take = rest
		}
		batch, err := e.findMany(ctx, tree, fields, skip, take)
		if err != nil {
			return nil, false, err
		}
		items = append(items, batch...)
		if len(batch) < take {
			return items, false, nil
		}
	}
	return items, true, nil
}

// FindWithinRadius calls the store's native radius query.
func (e *QueryExecutor) FindWithinRadius(ctx context.Context, tree *filter.Tree, center geo.Point, radiusKm float64, skip, take int) ([]DistanceHit, error) {
	ctx, cancel := e.roundTrip(ctx)
	defer cancel()
	hits, err := e.store.FindWithinRadius(ctx, tree, center, radiusKm*1000, skip, take)
	if err != nil {
		return nil, storeError(fmt.Sprintf("find properties within %gkm of (%g, %g)", radiusKm, center.Lat, center.Lng), err)
	}
	return hits, nil
}

func (e *QueryExecutor) count(ctx context.Context, tree *filter.Tree) (int, error) {
	ctx, cancel := e.roundTrip(ctx)
	defer cancel()
	n, err := e.store.Count(ctx, tree)
	if err != nil {
		return 0, storeError("count properties where "+describe(tree), err)
	}
	return n, nil
}

func (e *QueryExecutor) findMany(ctx context.Context, tree *filter.Tree, sort []SortField, skip, take int) ([]*domain.Property, error) {
	ctx, cancel := e.roundTrip(ctx)
	defer cancel()
	rows, err := e.store.FindMany(ctx, tree, sort, skip, take)
	if err != nil {
		return nil, storeError("find properties where "+describe(tree), err)
	}
	return rows, nil
}

func (e *QueryExecutor) summarize(ctx context.Context, tree *filter.Tree) (*FilterSummary, error) {
	ctx, cancel := e.roundTrip(ctx)
	defer cancel()
	s, err := e.store.Summarize(ctx, tree)
	if err != nil {
		return nil, storeError("summarize properties where "+describe(tree), err)
	}
	return s, nil
}

func (e *QueryExecutor) roundTrip(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.StoreTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

// storeError keeps domain errors raised by a store and classifies anything
// else, timeouts included, as infrastructure.
func storeError(op string, err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Code != domain.ErrCodeInfrastructure {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.NewInfrastructureError(op, err)
}

func describe(tree *filter.Tree) string {
	applied := tree.Applied()
	if len(applied) == 0 {
		return "true"
	}
	out := applied[0]
	for _, a := range applied[1:] {
		out += " AND " + a
	}
	return out
}

func hitsFor(tree *filter.Tree, items []*domain.Property) []ListingHit {
	radius, hasRadius := tree.Radius()
	hits := make([]ListingHit, len(items))
	for i, p := range items {
		hits[i] = ListingHit{Property: p}
		if hasRadius && p.Coordinates != nil {
			d := geo.HaversineKm(radius.Center, *p.Coordinates)
			hits[i].DistanceKm = &d
		}
	}
	return hits
}
