package domain

import (
	"strings"
	"time"
)

const MaxSavedSearchNameLength = 120

// SavedSearch is a named set of filters owned by one user. Criteria never
// carries pagination or sort.
type SavedSearch struct {
	ID        string
	UserID    string
	Name      string
	Criteria  SearchCriteria
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy compares the owner id; it is the only authorization check a saved
// search needs.
func (s *SavedSearch) OwnedBy(userID string) bool {
	return userID != "" && s.UserID == userID
}

// ValidateSavedSearchName trims and bounds a saved search name.
func ValidateSavedSearchName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("name", "name is required")
	}
	if len(name) > MaxSavedSearchNameLength {
		return "", NewValidationError("name", "name is too long")
	}
	return name, nil
}

// CriteriaPatch is a partial criteria update. A supplied field overwrites the
// stored value (a supplied null clears it); an unsupplied field is kept.
type CriteriaPatch struct {
	Term Optional[string] `json:"term"`

	MinPrice        Optional[*float64] `json:"min_price"`
	MaxPrice        Optional[*float64] `json:"max_price"`
	MinArea         Optional[*float64] `json:"min_area"`
	MaxArea         Optional[*float64] `json:"max_area"`
	MinPricePerArea Optional[*float64] `json:"min_price_per_area"`
	MaxPricePerArea Optional[*float64] `json:"max_price_per_area"`
	MinRooms        Optional[*int]     `json:"min_rooms"`
	MaxRooms        Optional[*int]     `json:"max_rooms"`
	MinBathrooms    Optional[*int]     `json:"min_bathrooms"`
	MaxBathrooms    Optional[*int]     `json:"max_bathrooms"`
	MinFloor        Optional[*int]     `json:"min_floor"`
	MaxFloor        Optional[*int]     `json:"max_floor"`
	MinBuildYear    Optional[*int]     `json:"min_build_year"`
	MaxBuildYear    Optional[*int]     `json:"max_build_year"`

	Category      Optional[Category] `json:"category"`
	RegionID      Optional[string]   `json:"region_id"`
	DistrictID    Optional[string]   `json:"district_id"`
	SubDistrictID Optional[string]   `json:"sub_district_id"`

	FeatureIDs  Optional[[]string]    `json:"feature_ids"`
	FeatureMode Optional[FeatureMode] `json:"feature_mode"`

	Electricity Optional[*bool] `json:"electricity"`
	Water       Optional[*bool] `json:"water"`
	Gas         Optional[*bool] `json:"gas"`
	RoadAccess  Optional[*bool] `json:"road_access"`
	Sewerage    Optional[*bool] `json:"sewerage"`
	Furnished   Optional[*bool] `json:"furnished"`

	Geo Optional[*GeoFilter] `json:"geo"`
}

// Apply merges the patch over base and returns the result; base is not
// modified.
func (p CriteriaPatch) Apply(base SearchCriteria) SearchCriteria {
	out := base.Filters()

	apply(&out.Term, p.Term)
	apply(&out.Price.Min, p.MinPrice)
	apply(&out.Price.Max, p.MaxPrice)
	apply(&out.Area.Min, p.MinArea)
	apply(&out.Area.Max, p.MaxArea)
	apply(&out.PricePerArea.Min, p.MinPricePerArea)
	apply(&out.PricePerArea.Max, p.MaxPricePerArea)
	apply(&out.Rooms.Min, p.MinRooms)
	apply(&out.Rooms.Max, p.MaxRooms)
	apply(&out.Bathrooms.Min, p.MinBathrooms)
	apply(&out.Bathrooms.Max, p.MaxBathrooms)
	apply(&out.Floor.Min, p.MinFloor)
	apply(&out.Floor.Max, p.MaxFloor)
	apply(&out.BuildYear.Min, p.MinBuildYear)
	apply(&out.BuildYear.Max, p.MaxBuildYear)

	apply(&out.Category, p.Category)
	apply(&out.RegionID, p.RegionID)
	apply(&out.DistrictID, p.DistrictID)
	apply(&out.SubDistrictID, p.SubDistrictID)

	apply(&out.FeatureIDs, p.FeatureIDs)
	apply(&out.FeatureMode, p.FeatureMode)

	apply(&out.Amenities.Electricity, p.Electricity)
	apply(&out.Amenities.Water, p.Water)
	apply(&out.Amenities.Gas, p.Gas)
	apply(&out.Amenities.RoadAccess, p.RoadAccess)
	apply(&out.Amenities.Sewerage, p.Sewerage)
	apply(&out.Amenities.Furnished, p.Furnished)

	apply(&out.Geo, p.Geo)

	return out
}

// IsEmpty reports whether no field was supplied.
func (p CriteriaPatch) IsEmpty() bool {
	return !(p.Term.Set || p.MinPrice.Set || p.MaxPrice.Set || p.MinArea.Set || p.MaxArea.Set ||
		p.MinPricePerArea.Set || p.MaxPricePerArea.Set || p.MinRooms.Set || p.MaxRooms.Set ||
		p.MinBathrooms.Set || p.MaxBathrooms.Set || p.MinFloor.Set || p.MaxFloor.Set ||
		p.MinBuildYear.Set || p.MaxBuildYear.Set || p.Category.Set || p.RegionID.Set ||
		p.DistrictID.Set || p.SubDistrictID.Set || p.FeatureIDs.Set || p.FeatureMode.Set ||
		p.Electricity.Set || p.Water.Set || p.Gas.Set || p.RoadAccess.Set || p.Sewerage.Set ||
		p.Furnished.Set || p.Geo.Set)
}

func apply[T any](dst *T, o Optional[T]) {
	if v, ok := o.Get(); ok {
		*dst = v
	}
}
