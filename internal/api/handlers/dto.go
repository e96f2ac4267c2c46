package handlers

import (
	"time"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
	"github.com/cloo-solutions/plotsearch/internal/service"
)

const timeFormat = time.RFC3339

type PropertyResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Address      string           `json:"address,omitempty"`
	Price        float64          `json:"price"`
	PricePerArea *float64         `json:"price_per_area,omitempty"`
	Category     string           `json:"category"`
	Status       string           `json:"status"`
	Area         *float64         `json:"area,omitempty"`
	Rooms        *int             `json:"rooms,omitempty"`
	Bathrooms    *int             `json:"bathrooms,omitempty"`
	Floor        *int             `json:"floor,omitempty"`
	BuildYear    *int             `json:"build_year,omitempty"`
	Electricity  *bool            `json:"electricity,omitempty"`
	Water        *bool            `json:"water,omitempty"`
	Gas          *bool            `json:"gas,omitempty"`
	RoadAccess   *bool            `json:"road_access,omitempty"`
	Sewerage     *bool            `json:"sewerage,omitempty"`
	Furnished    *bool            `json:"furnished,omitempty"`
	LocationID   string           `json:"location_id,omitempty"`
	LocationPath []string         `json:"location_path,omitempty"`
	Coordinates  *geo.Point       `json:"coordinates,omitempty"`
	Features     []domain.Feature `json:"features"`
	Images       []string         `json:"images"`
	DistanceKm   *float64         `json:"distance_km,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

func propertyToResponse(p *domain.Property, distanceKm *float64) PropertyResponse {
	resp := PropertyResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Address:      p.Address,
		Price:        p.Price,
		Category:     string(p.Category),
		Status:       string(p.Status),
		Area:         p.Area,
		Rooms:        p.Rooms,
		Bathrooms:    p.Bathrooms,
		Floor:        p.Floor,
		BuildYear:    p.BuildYear,
		Electricity:  p.Electricity,
		Water:        p.Water,
		Gas:          p.Gas,
		RoadAccess:   p.RoadAccess,
		Sewerage:     p.Sewerage,
		Furnished:    p.Furnished,
		LocationID:   p.LocationID,
		LocationPath: p.LocationPath,
		Coordinates:  p.Coordinates,
		Features:     p.Features,
		Images:       p.Images,
		DistanceKm:   distanceKm,
		CreatedAt:    p.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:    p.UpdatedAt.UTC().Format(timeFormat),
	}
	if v, ok := p.PricePerArea(); ok {
		resp.PricePerArea = &v
	}
	if resp.Features == nil {
		resp.Features = []domain.Feature{}
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	return resp
}

type SortResponse struct {
	By       string `json:"by"`
	Order    string `json:"order"`
	Fallback bool   `json:"fallback"`
}

type SuggestionResponse struct {
	Kind        string       `json:"kind"`
	Description string       `json:"description"`
	Count       int          `json:"count"`
	Criteria    CriteriaBody `json:"criteria"`
}

type SearchResponse struct {
	Items          []PropertyResponse     `json:"items"`
	Pagination     pagination.Meta        `json:"pagination"`
	Sort           SortResponse           `json:"sort"`
	AppliedFilters []string               `json:"applied_filters"`
	Available      *service.FilterSummary `json:"available,omitempty"`
	Warnings       []filter.Warning       `json:"warnings,omitempty"`
	Suggestions    []SuggestionResponse   `json:"suggestions,omitempty"`
}

func searchToResponse(res *service.SearchResult) *SearchResponse {
	out := &SearchResponse{
		Items:      make([]PropertyResponse, 0, len(res.Items)),
		Pagination: res.Pagination,
		Sort: SortResponse{
			By:       string(res.EffectiveSortBy),
			Order:    string(res.EffectiveSortOrder),
			Fallback: res.SortFallback,
		},
		AppliedFilters: res.AppliedFilters,
		Available:      res.Available,
		Warnings:       res.Warnings,
	}
	if out.AppliedFilters == nil {
		out.AppliedFilters = []string{}
	}
	for _, hit := range res.Items {
		out.Items = append(out.Items, propertyToResponse(hit.Property, hit.DistanceKm))
	}
	for _, s := range res.Suggestions {
		out.Suggestions = append(out.Suggestions, SuggestionResponse{
			Kind:        s.Kind,
			Description: s.Description,
			Count:       s.Count,
			Criteria:    criteriaToBody(s.Criteria),
		})
	}
	return out
}

type GeoBody struct {
	Center    *geo.Point `json:"center,omitempty"`
	RadiusKm  float64    `json:"radius_km,omitempty"`
	NorthEast *geo.Point `json:"north_east,omitempty"`
	SouthWest *geo.Point `json:"south_west,omitempty"`
}

// CriteriaBody is the JSON form of saved-search criteria. Field names match
// the /properties/search query parameters, except term (q there).
type CriteriaBody struct {
	Term string `json:"term,omitempty"`

	MinPrice        *float64 `json:"min_price,omitempty"`
	MaxPrice        *float64 `json:"max_price,omitempty"`
	MinArea         *float64 `json:"min_area,omitempty"`
	MaxArea         *float64 `json:"max_area,omitempty"`
	MinPricePerArea *float64 `json:"min_price_per_area,omitempty"`
	MaxPricePerArea *float64 `json:"max_price_per_area,omitempty"`
	MinRooms        *int     `json:"min_rooms,omitempty"`
	MaxRooms        *int     `json:"max_rooms,omitempty"`
	MinBathrooms    *int     `json:"min_bathrooms,omitempty"`
	MaxBathrooms    *int     `json:"max_bathrooms,omitempty"`
	MinFloor        *int     `json:"min_floor,omitempty"`
	MaxFloor        *int     `json:"max_floor,omitempty"`
	MinBuildYear    *int     `json:"min_build_year,omitempty"`
	MaxBuildYear    *int     `json:"max_build_year,omitempty"`

	Category      string `json:"category,omitempty"`
	RegionID      string `json:"region_id,omitempty"`
	DistrictID    string `json:"district_id,omitempty"`
	SubDistrictID string `json:"sub_district_id,omitempty"`

	FeatureIDs  []string `json:"feature_ids,omitempty"`
	FeatureMode string   `json:"feature_mode,omitempty"`

	Electricity *bool `json:"electricity,omitempty"`
	Water       *bool `json:"water,omitempty"`
	Gas         *bool `json:"gas,omitempty"`
	RoadAccess  *bool `json:"road_access,omitempty"`
	Sewerage    *bool `json:"sewerage,omitempty"`
	Furnished   *bool `json:"furnished,omitempty"`

	Geo *GeoBody `json:"geo,omitempty"`
}

func (b CriteriaBody) toDomain() domain.SearchCriteria {
	c := domain.SearchCriteria{
		Term:          b.Term,
		Price:         domain.Between(b.MinPrice, b.MaxPrice),
		Area:          domain.Between(b.MinArea, b.MaxArea),
		PricePerArea:  domain.Between(b.MinPricePerArea, b.MaxPricePerArea),
		Rooms:         domain.Between(b.MinRooms, b.MaxRooms),
		Bathrooms:     domain.Between(b.MinBathrooms, b.MaxBathrooms),
		Floor:         domain.Between(b.MinFloor, b.MaxFloor),
		BuildYear:     domain.Between(b.MinBuildYear, b.MaxBuildYear),
		Category:      domain.Category(b.Category),
		RegionID:      b.RegionID,
		DistrictID:    b.DistrictID,
		SubDistrictID: b.SubDistrictID,
		FeatureIDs:    b.FeatureIDs,
		FeatureMode:   domain.FeatureMode(b.FeatureMode),
		Amenities: domain.Amenities{
			Electricity: b.Electricity,
			Water:       b.Water,
			Gas:         b.Gas,
			RoadAccess:  b.RoadAccess,
			Sewerage:    b.Sewerage,
			Furnished:   b.Furnished,
		},
	}
	if b.Geo != nil {
		c.Geo = &domain.GeoFilter{
			Center:    b.Geo.Center,
			RadiusKm:  b.Geo.RadiusKm,
			NorthEast: b.Geo.NorthEast,
			SouthWest: b.Geo.SouthWest,
		}
	}
	return c
}

func criteriaToBody(c domain.SearchCriteria) CriteriaBody {
	b := CriteriaBody{
		Term:            c.Term,
		MinPrice:        c.Price.Min,
		MaxPrice:        c.Price.Max,
		MinArea:         c.Area.Min,
		MaxArea:         c.Area.Max,
		MinPricePerArea: c.PricePerArea.Min,
		MaxPricePerArea: c.PricePerArea.Max,
		MinRooms:        c.Rooms.Min,
		MaxRooms:        c.Rooms.Max,
		MinBathrooms:    c.Bathrooms.Min,
		MaxBathrooms:    c.Bathrooms.Max,
		MinFloor:        c.Floor.Min,
		MaxFloor:        c.Floor.Max,
		MinBuildYear:    c.BuildYear.Min,
		MaxBuildYear:    c.BuildYear.Max,
		Category:        string(c.Category),
		RegionID:        c.RegionID,
		DistrictID:      c.DistrictID,
		SubDistrictID:   c.SubDistrictID,
		FeatureIDs:      c.FeatureIDs,
		FeatureMode:     string(c.FeatureMode),
		Electricity:     c.Amenities.Electricity,
		Water:           c.Amenities.Water,
		Gas:             c.Amenities.Gas,
		RoadAccess:      c.Amenities.RoadAccess,
		Sewerage:        c.Amenities.Sewerage,
		Furnished:       c.Amenities.Furnished,
	}
	if c.Geo != nil {
		b.Geo = &GeoBody{
			Center:    c.Geo.Center,
			RadiusKm:  c.Geo.RadiusKm,
			NorthEast: c.Geo.NorthEast,
			SouthWest: c.Geo.SouthWest,
		}
	}
	return b
}

type SavedSearchResponse struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Criteria  CriteriaBody `json:"criteria"`
	IsActive  bool         `json:"is_active"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
}

func savedSearchToResponse(s *domain.SavedSearch) *SavedSearchResponse {
	return &SavedSearchResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Name:      s.Name,
		Criteria:  criteriaToBody(s.Criteria),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: s.UpdatedAt.UTC().Format(timeFormat),
	}
}
