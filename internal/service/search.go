package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/logging"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
	"github.com/cloo-solutions/plotsearch/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	priceWidenLow  = 0.8
	priceWidenHigh = 1.2
)

// SearchService compiles criteria and runs them through the executor.
type SearchService struct {
	compiler  *filter.Compiler
	executor  *QueryExecutor
	locations LocationStore
	features  FeatureStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewSearchService creates a SearchService. features may be nil, in which
// case feature ids are not checked.
func NewSearchService(executor *QueryExecutor, locations LocationStore, features FeatureStore, logger *slog.Logger, m *metrics.Metrics) *SearchService {
	var resolver filter.LocationResolver
	if locations != nil {
		resolver = locations
	}
	return &SearchService{
		compiler:  filter.NewCompiler(resolver),
		executor:  executor,
		locations: locations,
		features:  features,
		logger:    logging.OrDefault(logger),
		metrics:   m,
	}
}

// SearchInput is one search request.
type SearchInput struct {
	Criteria         domain.SearchCriteria
	Scope            filter.Scope
	DefaultLimit     int
	Suggest          bool
	IncludeAvailable bool
}

// Search compiles and executes criteria. With Suggest set and no matches,
// relaxed alternatives that do match are attached to the result.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (result *SearchResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		UserID:    in.Scope.OwnerID,
		Operation: "search",
	})
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("search", start, err)
		span.SetError(err)
	}()

	tree, err := s.Compile(ctx, in.Criteria, in.Scope)
	if err != nil {
		return nil, err
	}

	defaultLimit := in.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = pagination.DefaultLimit
	}
	page := pagination.New(in.Criteria.Page, in.Criteria.Limit, defaultLimit)

	result, err = s.executor.Execute(ctx, tree, page, in.Criteria.SortBy, in.Criteria.SortOrder, ExecuteOptions{
		IncludeAvailable: in.IncludeAvailable,
	})
	if err != nil {
		return nil, err
	}

	if in.Suggest && result.Total() == 0 {
		result.Suggestions = s.Suggest(ctx, in.Criteria, in.Scope)
	}
	return result, nil
}

// Compile checks feature ids against the feature store, then compiles.
// Unknown feature ids are rejected in both ALL and ANY mode.
func (s *SearchService) Compile(ctx context.Context, criteria domain.SearchCriteria, scope filter.Scope) (*filter.Tree, error) {
	if err := s.checkFeatures(ctx, criteria.FeatureIDs); err != nil {
		return nil, err
	}
	tree, err := s.compiler.Compile(ctx, criteria, scope)
	if err != nil {
		return nil, err
	}
	for _, w := range tree.Warnings {
		s.logger.Warn("search criteria ignored", "field", w.Field, "reason", w.Message)
	}
	return tree, nil
}

func (s *SearchService) checkFeatures(ctx context.Context, ids []string) error {
	ids = filter.NormalizeIDs(ids)
	if len(ids) == 0 || s.features == nil {
		return nil
	}
	existing, err := s.features.ExistingIDs(ctx, ids)
	if err != nil {
		return domain.NewInfrastructureError("check feature ids "+strings.Join(ids, ","), err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return domain.NewValidationError("featureIds", "unknown feature ids: "+strings.Join(unknown, ","))
	}
	return nil
}

// Suggest re-runs relaxed variants of criteria concurrently: the price range
// widened by 20% each way, and the location moved one level up. Variants
// that fail or still match nothing are dropped.
func (s *SearchService) Suggest(ctx context.Context, criteria domain.SearchCriteria, scope filter.Scope) []Suggestion {
	candidates := s.relaxations(ctx, criteria)
	if len(candidates) == 0 {
		return nil
	}

	results := make([]*Suggestion, len(candidates))
	// legs soft-fail and always return nil
	var g errgroup.Group
	for i, c := range candidates {
		g.Go(func() error {
			tree, err := s.compiler.Compile(ctx, c.Criteria, scope)
			if err != nil {
				s.logger.Debug("suggestion skipped", "kind", c.Kind, "error", err)
				return nil
			}
			n, err := s.executor.CountExact(ctx, tree)
			if err != nil {
				s.logger.Debug("suggestion skipped", "kind", c.Kind, "error", err)
				return nil
			}
			if n == 0 {
				return nil
			}
			c.Count = n
			results[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	var out []Suggestion
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (s *SearchService) relaxations(ctx context.Context, criteria domain.SearchCriteria) []Suggestion {
	base := criteria.Filters()
	var out []Suggestion

	if p := base.Price; !p.IsZero() && !p.Inverted() {
		widened := base
		var min, max *float64
		if p.Min != nil {
			v := *p.Min * priceWidenLow
			min = &v
		}
		if p.Max != nil {
			v := *p.Max * priceWidenHigh
			max = &v
		}
		widened.Price = domain.Between(min, max)
		out = append(out, Suggestion{
			Kind:        SuggestionPriceWidened,
			Description: "price range widened by 20%",
			Criteria:    widened,
		})
	}

	if id, level, ok := base.LocationRef(); ok && level != domain.LocationLevelRegion && s.locations != nil {
		ancestors, err := s.locations.GetAncestors(ctx, id)
		if err != nil {
			s.logger.Debug("location suggestion skipped", "location_id", id, "error", err)
		} else if len(ancestors) > 0 {
			parent := ancestors[0]
			out = append(out, Suggestion{
				Kind:        SuggestionLocationParent,
				Description: fmt.Sprintf("search in %s instead", parent.Name),
				Criteria:    base.WithLocation(parent.ID, parent.Level),
			})
		}
	}
	return out
}
