package domain

import "github.com/cloo-solutions/plotsearch/internal/geo"

// Number is the set of types a Range can bound.
type Number interface {
	~int | ~float64
}

// Range is an optional min/max pair; a nil bound is open.
type Range[T Number] struct {
	Min *T `json:"min,omitempty"`
	Max *T `json:"max,omitempty"`
}

// Between builds a range from optional bounds.
func Between[T Number](min, max *T) Range[T] {
	return Range[T]{Min: min, Max: max}
}

// IsZero reports whether neither bound is set.
func (r Range[T]) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Inverted reports whether both bounds are set with min > max.
func (r Range[T]) Inverted() bool {
	return r.Min != nil && r.Max != nil && *r.Min > *r.Max
}

// Contains reports whether v satisfies both bounds inclusively.
func (r Range[T]) Contains(v T) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// FeatureMode combines a feature id list.
type FeatureMode string

const (
	FeatureModeAll FeatureMode = "ALL"
	FeatureModeAny FeatureMode = "ANY"
)

// SortKey names a field results can be ordered by.
type SortKey string

const (
	SortByPrice        SortKey = "price"
	SortByCreatedAt    SortKey = "createdAt"
	SortByUpdatedAt    SortKey = "updatedAt"
	SortByTitle        SortKey = "title"
	SortByArea         SortKey = "area"
	SortByRooms        SortKey = "rooms"
	SortByBuildYear    SortKey = "buildYear"
	SortByPricePerArea SortKey = "pricePerArea"
	SortByDistance     SortKey = "distance"
)

// Valid reports whether k is one of the known sort keys.
func (k SortKey) Valid() bool {
	switch k {
	case SortByPrice, SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByArea,
		SortByRooms, SortByBuildYear, SortByPricePerArea, SortByDistance:
		return true
	}
	return false
}

// StoreSortable reports whether the property store can order by k directly.
// Derived keys (pricePerArea, distance) are not.
func (k SortKey) StoreSortable() bool {
	switch k {
	case SortByPrice, SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByArea, SortByRooms, SortByBuildYear:
		return true
	}
	return false
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Amenities holds the tri-state boolean flags of a search; nil means
// "don't care", which is different from false.
type Amenities struct {
	Electricity *bool `json:"electricity,omitempty"`
	Water       *bool `json:"water,omitempty"`
	Gas         *bool `json:"gas,omitempty"`
	RoadAccess  *bool `json:"road_access,omitempty"`
	Sewerage    *bool `json:"sewerage,omitempty"`
	Furnished   *bool `json:"furnished,omitempty"`
}

// GeoFilter is either a radius around Center or a box between NorthEast and
// SouthWest. Setting both shapes is a contract violation.
type GeoFilter struct {
	Center    *geo.Point `json:"center,omitempty"`
	RadiusKm  float64    `json:"radius_km,omitempty"`
	NorthEast *geo.Point `json:"north_east,omitempty"`
	SouthWest *geo.Point `json:"south_west,omitempty"`
}

func (g GeoFilter) HasRadius() bool { return g.Center != nil || g.RadiusKm != 0 }
func (g GeoFilter) HasBox() bool    { return g.NorthEast != nil || g.SouthWest != nil }

// SearchCriteria is the full set of optional search conditions plus
// pagination and sort. Values are treated as immutable once built.
type SearchCriteria struct {
	Term string

	Price        Range[float64]
	Area         Range[float64]
	PricePerArea Range[float64]
	Rooms        Range[int]
	Bathrooms    Range[int]
	Floor        Range[int]
	BuildYear    Range[int]

	Category Category
	Status   ListingStatus

	RegionID      string
	DistrictID    string
	SubDistrictID string

	FeatureIDs  []string
	FeatureMode FeatureMode

	Amenities Amenities
	Geo       *GeoFilter

	Page      int
	Limit     int
	SortBy    SortKey
	SortOrder SortOrder
}

// Filters returns a copy without pagination and sort, which is the shape
// persisted for a saved search.
func (c SearchCriteria) Filters() SearchCriteria {
	out := c
	out.Page = 0
	out.Limit = 0
	out.SortBy = ""
	out.SortOrder = ""
	if c.FeatureIDs != nil {
		out.FeatureIDs = append([]string(nil), c.FeatureIDs...)
	}
	if c.Geo != nil {
		g := *c.Geo
		out.Geo = &g
	}
	return out
}

// LocationRef returns the most specific location set and its level.
func (c SearchCriteria) LocationRef() (string, LocationLevel, bool) {
	switch {
	case c.SubDistrictID != "":
		return c.SubDistrictID, LocationLevelSubDistrict, true
	case c.DistrictID != "":
		return c.DistrictID, LocationLevelDistrict, true
	case c.RegionID != "":
		return c.RegionID, LocationLevelRegion, true
	}
	return "", "", false
}

// WithLocation returns a copy scoped to a single location at level.
func (c SearchCriteria) WithLocation(id string, level LocationLevel) SearchCriteria {
	out := c
	out.RegionID, out.DistrictID, out.SubDistrictID = "", "", ""
	switch level {
	case LocationLevelRegion:
		out.RegionID = id
	case LocationLevelDistrict:
		out.DistrictID = id
	case LocationLevelSubDistrict:
		out.SubDistrictID = id
	}
	return out
}
