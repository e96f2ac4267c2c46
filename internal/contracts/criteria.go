package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/geo"
)

const (
	criteriaSchema = "criteria"

	// CriteriaVersion is the version written by EncodeCriteria.
	CriteriaVersion = 1
)

type pointV1 struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geoV1 struct {
	Center    *pointV1 `json:"center,omitempty"`
	RadiusKm  float64  `json:"radius_km,omitempty"`
	NorthEast *pointV1 `json:"north_east,omitempty"`
	SouthWest *pointV1 `json:"south_west,omitempty"`
}

// criteriaV1 is the stored shape of saved search criteria. Field names are
// frozen; a shape change needs a new version.
type criteriaV1 struct {
	SchemaVersion int    `json:"schema_version"`
	Term          string `json:"term,omitempty"`

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
	Status        string `json:"status,omitempty"`
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

	Geo *geoV1 `json:"geo,omitempty"`
}

// EncodeCriteria serializes the filter part of c as a versioned document.
// Pagination and sort are not stored.
func EncodeCriteria(c domain.SearchCriteria) ([]byte, error) {
	c = c.Filters()
	doc := criteriaV1{
		SchemaVersion:   CriteriaVersion,
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
		Status:          string(c.Status),
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
	if g := c.Geo; g != nil {
		doc.Geo = &geoV1{
			Center:    fromPoint(g.Center),
			RadiusKm:  g.RadiusKm,
			NorthEast: fromPoint(g.NorthEast),
			SouthWest: fromPoint(g.SouthWest),
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode criteria: %w", err)
	}
	return body, nil
}

// DecodeCriteria parses a stored criteria document. Unknown versions and
// documents failing their schema are infrastructure errors: the row cannot
// be trusted, and the caller did nothing wrong.
func DecodeCriteria(body []byte) (domain.SearchCriteria, error) {
	version, err := peekVersion(body)
	if err != nil {
		return domain.SearchCriteria{}, domain.NewInfrastructureError("decode criteria", err)
	}
	if version != CriteriaVersion {
		return domain.SearchCriteria{}, domain.NewInfrastructureError("decode criteria",
			fmt.Errorf("unsupported criteria schema_version %d", version))
	}
	if err := Validate(criteriaSchema, version, body); err != nil {
		return domain.SearchCriteria{}, domain.NewInfrastructureError("decode criteria", err)
	}

	var doc criteriaV1
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.SearchCriteria{}, domain.NewInfrastructureError("decode criteria", err)
	}

	c := domain.SearchCriteria{
		Term:          doc.Term,
		Price:         domain.Between(doc.MinPrice, doc.MaxPrice),
		Area:          domain.Between(doc.MinArea, doc.MaxArea),
		PricePerArea:  domain.Between(doc.MinPricePerArea, doc.MaxPricePerArea),
		Rooms:         domain.Between(doc.MinRooms, doc.MaxRooms),
		Bathrooms:     domain.Between(doc.MinBathrooms, doc.MaxBathrooms),
		Floor:         domain.Between(doc.MinFloor, doc.MaxFloor),
		BuildYear:     domain.Between(doc.MinBuildYear, doc.MaxBuildYear),
		Category:      domain.Category(doc.Category),
		Status:        domain.ListingStatus(doc.Status),
		RegionID:      doc.RegionID,
		DistrictID:    doc.DistrictID,
		SubDistrictID: doc.SubDistrictID,
		FeatureIDs:    doc.FeatureIDs,
		FeatureMode:   domain.FeatureMode(doc.FeatureMode),
		Amenities: domain.Amenities{
			Electricity: doc.Electricity,
			Water:       doc.Water,
			Gas:         doc.Gas,
			RoadAccess:  doc.RoadAccess,
			Sewerage:    doc.Sewerage,
			Furnished:   doc.Furnished,
		},
	}
	if g := doc.Geo; g != nil {
		c.Geo = &domain.GeoFilter{
			Center:    toPoint(g.Center),
			RadiusKm:  g.RadiusKm,
			NorthEast: toPoint(g.NorthEast),
			SouthWest: toPoint(g.SouthWest),
		}
	}
	return c, nil
}

func fromPoint(p *geo.Point) *pointV1 {
	if p == nil {
		return nil
	}
	return &pointV1{Lat: p.Lat, Lng: p.Lng}
}

func toPoint(p *pointV1) *geo.Point {
	if p == nil {
		return nil
	}
	return &geo.Point{Lat: p.Lat, Lng: p.Lng}
}
