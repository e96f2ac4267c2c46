package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/cloo-solutions/plotsearch/internal/logging"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
	"github.com/cloo-solutions/plotsearch/internal/telemetry"
	"github.com/mmcloughlin/geohash"
	"golang.org/x/sync/errgroup"
)

// MaxZoom is the deepest map zoom level accepted by Cluster.
const MaxZoom = 22

// ClusterPoint groups the listings that share a grid cell.
type ClusterPoint struct {
	Lat       float64
	Lng       float64
	Count     int
	AvgPrice  float64
	MinPrice  float64
	MaxPrice  float64
	MemberIDs []string
	Cell      string
}

// GeoService answers radius, box, cluster, distance and route queries over
// publicly visible listings.
type GeoService struct {
	executor *QueryExecutor
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewGeoService(executor *QueryExecutor, logger *slog.Logger, m *metrics.Metrics) *GeoService {
	return &GeoService{
		executor: executor,
		logger:   logging.OrDefault(logger),
		metrics:  m,
	}
}

func publicTree(preds ...filter.Predicate) *filter.Tree {
	tree := &filter.Tree{Predicates: []filter.Predicate{
		filter.Equals{Field: filter.FieldStatus, Value: string(domain.ListingStatusPublished)},
	}}
	return tree.With(preds...)
}

// SearchRadius returns listings within radiusKm of center, nearest first
// with newer listings first on equal distance. Each hit carries its
// distance.
func (s *GeoService) SearchRadius(ctx context.Context, center geo.Point, radiusKm float64, page pagination.Page) (result *SearchResult, err error) {
	if err := filter.ValidateRadius(center, radiusKm); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "GeoService.SearchRadius", telemetry.SpanAttributes{Operation: "radius"})
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("radius", start, err)
		span.SetError(err)
	}()

	radius := filter.GeoRadius{Center: center, RadiusKm: radiusKm}
	tree := publicTree(radius)

	var (
		hits     []DistanceHit
		total    int
		warnings []filter.Warning
	)
	if s.executor.Store().SupportsGeography() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := s.executor.Count(gctx, tree)
			total = n
			return err
		})
		g.Go(func() error {
			h, err := s.executor.FindWithinRadius(gctx, tree, center, radiusKm, page.Offset(), page.Limit)
			hits = h
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		all, truncated, err := s.radiusFallback(ctx, radius)
		if err != nil {
			return nil, err
		}
		if truncated {
			warnings = append(warnings, CandidatesTruncatedWarning)
		}
		total = len(all)
		hits = slicePage(all, page)
	}

	items := make([]ListingHit, len(hits))
	for i := range hits {
		d := hits[i].DistanceKm
		items[i] = ListingHit{Property: hits[i].Property, DistanceKm: &d}
	}
	s.metrics.ObserveResults("radius", total)

	return &SearchResult{
		Items:              items,
		Pagination:         pagination.NewMeta(page, total),
		EffectiveSortBy:    domain.SortByDistance,
		EffectiveSortOrder: domain.SortAsc,
		AppliedFilters:     tree.Applied(),
		Warnings:           warnings,
	}, nil
}

// CandidatesTruncatedWarning marks a result computed from a capped candidate
// set; its total is a lower bound.
var CandidatesTruncatedWarning = filter.Warning{
	Field:   "radius_km",
	Message: "too many candidates; results and total may be incomplete, narrow the search",
}

// radiusFallback pre-filters with the approximate degree box in the store,
// then keeps exact haversine matches and sorts them.
func (s *GeoService) radiusFallback(ctx context.Context, radius filter.GeoRadius) ([]DistanceHit, bool, error) {
	box := filter.GeoBox{Box: geo.BoxAround(radius.Center, radius.RadiusKm)}
	candidates, truncated, err := s.executor.CollectAll(ctx, publicTree(box))
	if err != nil {
		return nil, false, err
	}
	if truncated {
		s.logger.Warn("radius candidates truncated", "lat", radius.Center.Lat, "lng", radius.Center.Lng, "radius_km", radius.RadiusKm)
	}

	hits := make([]DistanceHit, 0, len(candidates))
	for _, p := range candidates {
		if p.Coordinates == nil {
			continue
		}
		d := geo.HaversineKm(radius.Center, *p.Coordinates)
		if d <= radius.RadiusKm {
			hits = append(hits, DistanceHit{Property: p, DistanceKm: d})
		}
	}
	SortByDistance(hits)
	return hits, truncated, nil
}

// SortByDistance orders hits by distance asc, then createdAt desc, then id.
func SortByDistance(hits []DistanceHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if !a.Property.CreatedAt.Equal(b.Property.CreatedAt) {
			return a.Property.CreatedAt.After(b.Property.CreatedAt)
		}
		return a.Property.ID < b.Property.ID
	})
}

func slicePage[T any](all []T, page pagination.Page) []T {
	from := page.Offset()
	if from < 0 || from >= len(all) {
		return []T{}
	}
	to := from + page.Limit
	if to > len(all) {
		to = len(all)
	}
	return all[from:to]
}

// SearchBoundingBox returns listings inside box, edges included, newest
// first.
func (s *GeoService) SearchBoundingBox(ctx context.Context, box geo.Box, page pagination.Page) (result *SearchResult, err error) {
	if err := filter.ValidateBox(box); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "GeoService.SearchBoundingBox", telemetry.SpanAttributes{Operation: "bbox"})
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("bbox", start, err)
		span.SetError(err)
	}()

	return s.executor.Execute(ctx, publicTree(filter.GeoBox{Box: box}), page, domain.SortByCreatedAt, domain.SortDesc, ExecuteOptions{})
}

// Cluster groups listings inside box by geohash cell, with the cell size
// chosen from zoom. From zoom 18 on every listing is its own cluster.
// Every listing lands in exactly one cluster.
func (s *GeoService) Cluster(ctx context.Context, box geo.Box, zoom int) (clusters []ClusterPoint, err error) {
	if err := filter.ValidateBox(box); err != nil {
		return nil, err
	}
	if zoom < 0 || zoom > MaxZoom {
		return nil, domain.NewValidationError("zoom", "must be between 0 and 22")
	}
	ctx, span := telemetry.StartSpan(ctx, "GeoService.Cluster", telemetry.SpanAttributes{Operation: "cluster"})
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("cluster", start, err)
		span.SetError(err)
	}()

	listings, truncated, err := s.executor.CollectAll(ctx, publicTree(filter.GeoBox{Box: box}))
	if err != nil {
		return nil, err
	}
	if truncated {
		s.logger.Warn("cluster candidates truncated", "zoom", zoom)
	}
	return ClusterListings(listings, zoom), nil
}

// GeohashPrecision maps a map zoom level to a geohash length; 0 means one
// cluster per listing.
func GeohashPrecision(zoom int) uint {
	switch {
	case zoom >= 18:
		return 0
	case zoom >= 15:
		return 7
	case zoom >= 12:
		return 6
	case zoom >= 9:
		return 5
	case zoom >= 6:
		return 4
	case zoom >= 3:
		return 3
	default:
		return 2
	}
}

// ClusterListings groups listings in first-seen cell order. Listings without
// coordinates are skipped.
func ClusterListings(listings []*domain.Property, zoom int) []ClusterPoint {
	precision := GeohashPrecision(zoom)

	type acc struct {
		latSum, lngSum, priceSum float64
		point                    ClusterPoint
	}
	var order []string
	cells := make(map[string]*acc)

	for _, p := range listings {
		if p.Coordinates == nil {
			continue
		}
		key := p.ID
		if precision > 0 {
			key = geohash.EncodeWithPrecision(p.Coordinates.Lat, p.Coordinates.Lng, precision)
		}
		c, ok := cells[key]
		if !ok {
			c = &acc{point: ClusterPoint{Cell: key, MinPrice: math.Inf(1), MaxPrice: math.Inf(-1)}}
			cells[key] = c
			order = append(order, key)
		}
		c.latSum += p.Coordinates.Lat
		c.lngSum += p.Coordinates.Lng
		c.priceSum += p.Price
		c.point.MinPrice = math.Min(c.point.MinPrice, p.Price)
		c.point.MaxPrice = math.Max(c.point.MaxPrice, p.Price)
		c.point.MemberIDs = append(c.point.MemberIDs, p.ID)
	}

	out := make([]ClusterPoint, 0, len(order))
	for _, key := range order {
		c := cells[key]
		n := float64(len(c.point.MemberIDs))
		c.point.Count = len(c.point.MemberIDs)
		c.point.Lat = c.latSum / n
		c.point.Lng = c.lngSum / n
		c.point.AvgPrice = c.priceSum / n
		out = append(out, c.point)
	}
	return out
}

// DistanceBetween validates both points and returns their haversine
// distance in km.
func (s *GeoService) DistanceBetween(a, b geo.Point) (float64, error) {
	if err := filter.ValidatePoint("from", a); err != nil {
		return 0, err
	}
	if err := filter.ValidatePoint("to", b); err != nil {
		return 0, err
	}
	return geo.HaversineKm(a, b), nil
}

// SearchAlongRoute finds listings within bufferKm of any waypoint. Distance
// is measured to each waypoint, not to the segments between them. Results
// are de-duplicated keeping first-seen order: waypoint order, then distance.
func (s *GeoService) SearchAlongRoute(ctx context.Context, waypoints []geo.Point, bufferKm float64) (listings []*domain.Property, err error) {
	if len(waypoints) < 2 {
		return nil, domain.ErrTooFewWaypoints
	}
	for _, w := range waypoints {
		if err := filter.ValidateRadius(w, bufferKm); err != nil {
			return nil, err
		}
	}
	ctx, span := telemetry.StartSpan(ctx, "GeoService.SearchAlongRoute", telemetry.SpanAttributes{Operation: "route"})
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("route", start, err)
		span.SetError(err)
	}()

	perWaypoint := make([][]DistanceHit, len(waypoints))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range waypoints {
		g.Go(func() error {
			hits, err := s.radiusAll(gctx, filter.GeoRadius{Center: w, RadiusKm: bufferKm})
			perWaypoint[i] = hits
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, hits := range perWaypoint {
		for _, h := range hits {
			if _, dup := seen[h.Property.ID]; dup {
				continue
			}
			seen[h.Property.ID] = struct{}{}
			listings = append(listings, h.Property)
		}
	}
	s.metrics.ObserveResults("route", len(listings))
	return listings, nil
}

func (s *GeoService) radiusAll(ctx context.Context, radius filter.GeoRadius) ([]DistanceHit, error) {
	if s.executor.Store().SupportsGeography() {
		return s.executor.FindWithinRadius(ctx, publicTree(radius), radius.Center, radius.RadiusKm, 0, s.executor.cfg.MaxCandidates)
	}
	hits, _, err := s.radiusFallback(ctx, radius)
	return hits, err
}
