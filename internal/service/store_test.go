package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/stretchr/testify/mock"
)

// memoryStore is a PropertyStore that evaluates predicates in memory.
type memoryStore struct {
	mu         sync.Mutex
	listings   []*domain.Property
	geography  bool
	findCalls  int
	countCalls int
	err        error
}

func newMemoryStore(listings ...*domain.Property) *memoryStore {
	return &memoryStore{listings: listings}
}

func (m *memoryStore) add(p *domain.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = append(m.listings, p)
}

func (m *memoryStore) matching(tree *filter.Tree) []*domain.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Property
	for _, p := range m.listings {
		if tree.MatchPushable(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *memoryStore) FindMany(ctx context.Context, tree *filter.Tree, fields []SortField, skip, take int) ([]*domain.Property, error) {
	m.mu.Lock()
	m.findCalls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := m.matching(tree)
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j], fields) })
	return window(rows, skip, take), nil
}

func (m *memoryStore) Count(ctx context.Context, tree *filter.Tree) (int, error) {
	m.mu.Lock()
	m.countCalls++
	m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.matching(tree)), nil
}

func (m *memoryStore) FindWithinRadius(ctx context.Context, tree *filter.Tree, center geo.Point, radiusMeters float64, skip, take int) ([]DistanceHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	var hits []DistanceHit
	for _, p := range m.matching(tree) {
		if p.Coordinates == nil {
			continue
		}
		d := geo.HaversineKm(center, *p.Coordinates)
		if d*1000 <= radiusMeters {
			hits = append(hits, DistanceHit{Property: p, DistanceKm: d})
		}
	}
	SortByDistance(hits)
	return window(hits, skip, take), nil
}

func (m *memoryStore) Summarize(ctx context.Context, tree *filter.Tree) (*FilterSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := &FilterSummary{Categories: map[domain.Category]int{}}
	for _, p := range m.matching(tree) {
		price := p.Price
		if s.MinPrice == nil || price < *s.MinPrice {
			s.MinPrice = &price
		}
		if s.MaxPrice == nil || price > *s.MaxPrice {
			s.MaxPrice = &price
		}
		if p.Area != nil {
			area := *p.Area
			if s.MinArea == nil || area < *s.MinArea {
				s.MinArea = &area
			}
			if s.MaxArea == nil || area > *s.MaxArea {
				s.MaxArea = &area
			}
		}
		s.Categories[p.Category]++
	}
	return s, nil
}

func (m *memoryStore) SupportsGeography() bool { return m.geography }

func window[T any](rows []T, skip, take int) []T {
	if skip >= len(rows) {
		return nil
	}
	end := skip + take
	if end > len(rows) {
		end = len(rows)
	}
	return rows[skip:end]
}

func less(a, b *domain.Property, fields []SortField) bool {
	for _, f := range fields {
		c := compareBy(a, b, f.Key)
		if c == 0 {
			continue
		}
		if f.Order == domain.SortAsc {
			return c < 0
		}
		return c > 0
	}
	return a.ID < b.ID
}

func compareBy(a, b *domain.Property, key domain.SortKey) int {
	switch key {
	case domain.SortByPrice:
		return compareFloat(&a.Price, &b.Price)
	case domain.SortByArea:
		return compareFloat(a.Area, b.Area)
	case domain.SortByRooms:
		return compareInt(a.Rooms, b.Rooms)
	case domain.SortByBuildYear:
		return compareInt(a.BuildYear, b.BuildYear)
	case domain.SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case domain.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareFloat(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareInt(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return *a - *b
}

// memoryLocations is a LocationStore over a fixed tree.
type memoryLocations struct {
	byID map[string]*domain.Location
}

func newMemoryLocations(locs ...*domain.Location) *memoryLocations {
	m := &memoryLocations{byID: map[string]*domain.Location{}}
	for _, l := range locs {
		m.byID[l.ID] = l
	}
	return m
}

func (m *memoryLocations) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	return l, nil
}

func (m *memoryLocations) GetAncestors(ctx context.Context, id string) ([]*domain.Location, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	var out []*domain.Location
	for l.ParentID != "" {
		parent, ok := m.byID[l.ParentID]
		if !ok {
			break
		}
		out = append(out, parent)
		l = parent
	}
	return out, nil
}

func (m *memoryLocations) GetDescendants(ctx context.Context, id string) ([]*domain.Location, error) {
	var out []*domain.Location
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		for _, l := range m.byID {
			for _, f := range frontier {
				if l.ParentID == f {
					out = append(out, l)
					next = append(next, l.ID)
				}
			}
		}
		frontier = next
	}
	return out, nil
}

// memoryFeatures is a FeatureStore over a fixed id set.
type memoryFeatures map[string]bool

func (m memoryFeatures) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		if m[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// memorySavedSearches is a SavedSearchRepositoryInterface backed by a map.
type memorySavedSearches struct {
	mu   sync.Mutex
	rows map[string]domain.SavedSearch
}

func newMemorySavedSearches() *memorySavedSearches {
	return &memorySavedSearches{rows: map[string]domain.SavedSearch{}}
}

func (m *memorySavedSearches) Create(ctx context.Context, s *domain.SavedSearch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = *s
	return nil
}

func (m *memorySavedSearches) GetByID(ctx context.Context, id string) (*domain.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrSavedSearchNotFound
	}
	return &s, nil
}

func (m *memorySavedSearches) GetByIDForUpdate(ctx context.Context, id string) (*domain.SavedSearch, error) {
	return m.GetByID(ctx, id)
}

func (m *memorySavedSearches) ListByUser(ctx context.Context, userID string) ([]*domain.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SavedSearch
	for _, s := range m.rows {
		if s.UserID == userID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memorySavedSearches) Update(ctx context.Context, s *domain.SavedSearch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; !ok {
		return domain.ErrSavedSearchNotFound
	}
	m.rows[s.ID] = *s
	return nil
}

func (m *memorySavedSearches) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrSavedSearchNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memorySavedSearches) FindAllActive(ctx context.Context) ([]*domain.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SavedSearch
	for _, s := range m.rows {
		if s.IsActive {
			s := s
			out = append(out, &s)
		}
	}
	return out, nil
}

// MockSavedSearchRepository is a mock implementation of SavedSearchRepositoryInterface
type MockSavedSearchRepository struct {
	mock.Mock
}

func (m *MockSavedSearchRepository) Create(ctx context.Context, s *domain.SavedSearch) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSavedSearchRepository) GetByID(ctx context.Context, id string) (*domain.SavedSearch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SavedSearch), args.Error(1)
}

func (m *MockSavedSearchRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.SavedSearch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SavedSearch), args.Error(1)
}

func (m *MockSavedSearchRepository) ListByUser(ctx context.Context, userID string) ([]*domain.SavedSearch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SavedSearch), args.Error(1)
}

func (m *MockSavedSearchRepository) Update(ctx context.Context, s *domain.SavedSearch) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSavedSearchRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSavedSearchRepository) FindAllActive(ctx context.Context) ([]*domain.SavedSearch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SavedSearch), args.Error(1)
}

// MockUUIDGenerator hands out ids in order.
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "00000000-0000-0000-0000-000000000000"
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return baseTime }

type listingOpt func(*domain.Property)

func listing(id string, price float64, opts ...listingOpt) *domain.Property {
	p := &domain.Property{
		ID:        id,
		Title:     "Listing " + id,
		Price:     price,
		Category:  domain.CategoryLand,
		Status:    domain.ListingStatusPublished,
		OwnerID:   "owner-1",
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func at(lat, lng float64) listingOpt {
	return func(p *domain.Property) { p.Coordinates = &geo.Point{Lat: lat, Lng: lng} }
}

func withArea(a float64) listingOpt {
	return func(p *domain.Property) { p.Area = &a }
}

func withCategory(c domain.Category) listingOpt {
	return func(p *domain.Property) { p.Category = c }
}

func withStatus(s domain.ListingStatus) listingOpt {
	return func(p *domain.Property) { p.Status = s }
}

func createdAgo(d time.Duration) listingOpt {
	return func(p *domain.Property) { p.CreatedAt = baseTime.Add(-d) }
}

func inLocation(id string) listingOpt {
	return func(p *domain.Property) { p.LocationID = id }
}

func withFeatures(ids ...string) listingOpt {
	return func(p *domain.Property) {
		for _, id := range ids {
			p.Features = append(p.Features, domain.Feature{ID: id, Name: id})
		}
	}
}

func withElectricity(v bool) listingOpt {
	return func(p *domain.Property) { p.Electricity = &v }
}

func ptr[T any](v T) *T { return &v }
