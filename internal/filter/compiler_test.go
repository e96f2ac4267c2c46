package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLocationResolver struct {
	mock.Mock
}

func (m *MockLocationResolver) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Location), args.Error(1)
}

func (m *MockLocationResolver) GetDescendants(ctx context.Context, id string) ([]*domain.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Location), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func kinds(preds []Predicate) []Kind {
	out := make([]Kind, len(preds))
	for i, p := range preds {
		out[i] = p.Kind()
	}
	return out
}

func TestCompile_EmptyCriteriaHasOnlyStatus(t *testing.T) {
	tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{}, PublicScope())
	require.NoError(t, err)

	require.Len(t, tree.Predicates, 1)
	assert.Equal(t, Equals{Field: FieldStatus, Value: "PUBLISHED"}, tree.Predicates[0])
	assert.Empty(t, tree.PostFilters)
	assert.Empty(t, tree.Warnings)
}

func TestCompile_InvertedRangeDroppedDeterministically(t *testing.T) {
	criteria := domain.SearchCriteria{
		Price: domain.Between(ptr(100000.0), ptr(50000.0)),
		Rooms: domain.Between(ptr(2), ptr(4)),
	}

	first, err := NewCompiler(nil).Compile(context.Background(), criteria, PublicScope())
	require.NoError(t, err)
	second, err := NewCompiler(nil).Compile(context.Background(), criteria, PublicScope())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, p := range first.Predicates {
		if r, ok := p.(Range); ok {
			assert.NotEqual(t, FieldPrice, r.Field)
		}
	}
	assert.Equal(t, []Warning{{Field: "price", Message: "min is greater than max; range ignored"}}, first.Warnings)
	assert.Equal(t, []Kind{KindEquals, KindRange, KindRange}, kinds(first.Predicates))
}

func TestCompile_RangeBoundsBecomeSeparatePredicates(t *testing.T) {
	tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{
		Price:     domain.Between(nil, ptr(500000.0)),
		Area:      domain.Between(ptr(100.0), ptr(900.0)),
		BuildYear: domain.Between(ptr(1990), nil),
	}, PublicScope())
	require.NoError(t, err)

	assert.Equal(t, []Predicate{
		Equals{Field: FieldStatus, Value: "PUBLISHED"},
		Range{Field: FieldPrice, Max: ptr(500000.0)},
		Range{Field: FieldArea, Min: ptr(100.0)},
		Range{Field: FieldArea, Max: ptr(900.0)},
		Range{Field: FieldBuildYear, Min: ptr(1990.0)},
	}, tree.Predicates)
}

func TestCompile_BooleanFlagsOnlyWhenSet(t *testing.T) {
	tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{
		Amenities: domain.Amenities{Water: ptr(false), RoadAccess: ptr(true)},
	}, PublicScope())
	require.NoError(t, err)

	assert.Equal(t, []Predicate{
		Equals{Field: FieldStatus, Value: "PUBLISHED"},
		BooleanFlag{Field: FieldWater, Expected: false},
		BooleanFlag{Field: FieldRoadAccess, Expected: true},
	}, tree.Predicates)
}

func TestCompile_FeatureModes(t *testing.T) {
	t.Run("ALL compiles to one check per feature", func(t *testing.T) {
		tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{
			FeatureIDs:  []string{"A", "B", "A", " "},
			FeatureMode: domain.FeatureModeAll,
		}, PublicScope())
		require.NoError(t, err)

		require.Len(t, tree.Predicates, 2)
		conj, ok := tree.Predicates[1].(Conjunction)
		require.True(t, ok)
		assert.Equal(t, []Predicate{
			SetMembership{Field: FieldFeatures, Values: []string{"A"}, Mode: domain.FeatureModeAll},
			SetMembership{Field: FieldFeatures, Values: []string{"B"}, Mode: domain.FeatureModeAll},
		}, conj.Predicates)
	})

	t.Run("ANY compiles to a single membership", func(t *testing.T) {
		tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{
			FeatureIDs:  []string{"A", "B"},
			FeatureMode: domain.FeatureModeAny,
		}, PublicScope())
		require.NoError(t, err)

		require.Len(t, tree.Predicates, 2)
		assert.Equal(t, SetMembership{Field: FieldFeatures, Values: []string{"A", "B"}, Mode: domain.FeatureModeAny}, tree.Predicates[1])
	})

	t.Run("default mode is ALL", func(t *testing.T) {
		tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{FeatureIDs: []string{"A"}}, PublicScope())
		require.NoError(t, err)
		assert.Equal(t, KindConjunction, tree.Predicates[1].Kind())
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		_, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{FeatureIDs: []string{"A"}, FeatureMode: "SOME"}, PublicScope())
		assert.True(t, domain.IsValidation(err))
	})
}

func TestCompile_GeoFilters(t *testing.T) {
	center := &geo.Point{Lat: 41.0, Lng: 29.0}
	ne := &geo.Point{Lat: 41.2, Lng: 29.2}
	sw := &geo.Point{Lat: 41.0, Lng: 29.0}

	tests := []struct {
		name     string
		geo      *domain.GeoFilter
		wantKind Kind
		wantErr  bool
	}{
		{"radius", &domain.GeoFilter{Center: center, RadiusKm: 10}, KindGeoRadius, false},
		{"box", &domain.GeoFilter{NorthEast: ne, SouthWest: sw}, KindGeoBox, false},
		{"both", &domain.GeoFilter{Center: center, RadiusKm: 10, NorthEast: ne, SouthWest: sw}, "", true},
		{"radius zero", &domain.GeoFilter{Center: center, RadiusKm: 0}, "", true},
		{"radius too large", &domain.GeoFilter{Center: center, RadiusKm: 100.5}, "", true},
		{"radius without center", &domain.GeoFilter{RadiusKm: 5}, "", true},
		{"bad latitude", &domain.GeoFilter{Center: &geo.Point{Lat: 91, Lng: 0}, RadiusKm: 5}, "", true},
		{"half box", &domain.GeoFilter{NorthEast: ne}, "", true},
		{"degenerate box", &domain.GeoFilter{NorthEast: &geo.Point{Lat: 41.1, Lng: 29.2}, SouthWest: &geo.Point{Lat: 41.1, Lng: 29.1}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{Geo: tt.geo}, PublicScope())
			if tt.wantErr {
				assert.True(t, domain.IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.wantKind == "" {
				assert.Len(t, tree.Predicates, 1)
				return
			}
			assert.Equal(t, tt.wantKind, tree.Predicates[len(tree.Predicates)-1].Kind())
		})
	}
}

func TestCompile_ConflictingGeoFailsFast(t *testing.T) {
	locations := new(MockLocationResolver)

	_, err := NewCompiler(locations).Compile(context.Background(), domain.SearchCriteria{
		DistrictID: "d1",
		Geo: &domain.GeoFilter{
			Center: &geo.Point{Lat: 1, Lng: 1}, RadiusKm: 1,
			NorthEast: &geo.Point{Lat: 2, Lng: 2}, SouthWest: &geo.Point{Lat: 1, Lng: 1},
		},
	}, PublicScope())

	assert.ErrorIs(t, err, domain.ErrConflictingGeoFilters)
	locations.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCompile_TextTrimmed(t *testing.T) {
	tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{Term: "   "}, PublicScope())
	require.NoError(t, err)
	assert.Len(t, tree.Predicates, 1)

	tree, err = NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{Term: "  olive grove "}, PublicScope())
	require.NoError(t, err)
	assert.Equal(t, TextSearch{Term: "olive grove", Fields: TextFields}, tree.Predicates[1])
}

func TestCompile_PricePerAreaIsPostFilter(t *testing.T) {
	tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{
		PricePerArea: domain.Between(ptr(100.0), ptr(250.0)),
	}, PublicScope())
	require.NoError(t, err)

	assert.Len(t, tree.Predicates, 1)
	assert.Equal(t, []Predicate{
		Range{Field: FieldPricePerArea, Min: ptr(100.0)},
		Range{Field: FieldPricePerArea, Max: ptr(250.0)},
	}, tree.PostFilters)
	assert.True(t, tree.HasPostFilters())
	assert.False(t, tree.Pushable().HasPostFilters())
}

func TestCompile_StatusOverride(t *testing.T) {
	criteria := domain.SearchCriteria{Status: domain.ListingStatusDraft}

	tree, err := NewCompiler(nil).Compile(context.Background(), criteria, PublicScope())
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: FieldStatus, Value: "PUBLISHED"}, tree.Predicates[0])
	require.Len(t, tree.Warnings, 1)
	assert.Equal(t, "status", tree.Warnings[0].Field)

	tree, err = NewCompiler(nil).Compile(context.Background(), criteria, OwnerScope("owner-1"))
	require.NoError(t, err)
	assert.Equal(t, []Predicate{
		Equals{Field: FieldStatus, Value: "DRAFT"},
		Equals{Field: FieldOwner, Value: "owner-1"},
	}, tree.Predicates)
	assert.Empty(t, tree.Warnings)
}

func TestCompile_LocationHierarchy(t *testing.T) {
	ctx := context.Background()

	t.Run("sub-district is exact", func(t *testing.T) {
		locations := new(MockLocationResolver)
		tree, err := NewCompiler(locations).Compile(ctx, domain.SearchCriteria{RegionID: "r1", SubDistrictID: "s1"}, PublicScope())
		require.NoError(t, err)
		assert.Equal(t, Equals{Field: FieldLocation, Value: "s1"}, tree.Predicates[1])
		locations.AssertExpectations(t)
	})

	t.Run("district expands to its sub-districts", func(t *testing.T) {
		locations := new(MockLocationResolver)
		locations.On("GetByID", ctx, "d1").Return(&domain.Location{ID: "d1", Level: domain.LocationLevelDistrict}, nil)
		locations.On("GetDescendants", ctx, "d1").Return([]*domain.Location{{ID: "s1"}, {ID: "s2"}}, nil)

		tree, err := NewCompiler(locations).Compile(ctx, domain.SearchCriteria{DistrictID: "d1"}, PublicScope())
		require.NoError(t, err)
		assert.Equal(t, SetMembership{Field: FieldLocation, Values: []string{"d1", "s1", "s2"}, Mode: domain.FeatureModeAny}, tree.Predicates[1])
		locations.AssertExpectations(t)
	})

	t.Run("unknown region is not found", func(t *testing.T) {
		locations := new(MockLocationResolver)
		locations.On("GetByID", ctx, "nope").Return(nil, domain.ErrLocationNotFound)

		_, err := NewCompiler(locations).Compile(ctx, domain.SearchCriteria{RegionID: "nope"}, PublicScope())
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("store failure is infrastructure", func(t *testing.T) {
		locations := new(MockLocationResolver)
		locations.On("GetByID", ctx, "r1").Return(&domain.Location{ID: "r1"}, nil)
		locations.On("GetDescendants", ctx, "r1").Return(nil, errors.New("connection reset"))

		_, err := NewCompiler(locations).Compile(ctx, domain.SearchCriteria{RegionID: "r1"}, PublicScope())
		assert.True(t, domain.IsInfrastructure(err))
		assert.Contains(t, err.Error(), "r1")
	})
}

func TestCompile_RejectsUnknownEnums(t *testing.T) {
	_, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{Category: "CASTLE"}, PublicScope())
	assert.True(t, domain.IsValidation(err))

	_, err = NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{Status: "GONE"}, OwnerScope("o"))
	assert.True(t, domain.IsValidation(err))
}

func TestCompile_PredicateOrder(t *testing.T) {
	tree, err := NewCompiler(nil).Compile(context.Background(), domain.SearchCriteria{
		Term:          "vineyard",
		Category:      domain.CategoryVineyard,
		SubDistrictID: "s1",
		Price:         domain.Between(ptr(1.0), nil),
		Amenities:     domain.Amenities{Gas: ptr(true)},
		FeatureIDs:    []string{"f"},
		Geo:           &domain.GeoFilter{Center: &geo.Point{Lat: 1, Lng: 1}, RadiusKm: 5},
		PricePerArea:  domain.Between(nil, ptr(10.0)),
	}, PublicScope())
	require.NoError(t, err)

	assert.Equal(t, []Kind{KindEquals, KindEquals, KindEquals, KindRange, KindBoolean, KindConjunction, KindGeoRadius, KindText}, kinds(tree.Predicates))
	assert.Equal(t, []Kind{KindRange}, kinds(tree.PostFilters))
}
