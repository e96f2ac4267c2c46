package domain

import (
	"time"

	"github.com/cloo-solutions/plotsearch/internal/geo"
)

// ListingStatus is the lifecycle stage of a listing.
type ListingStatus string

const (
	ListingStatusPublished ListingStatus = "PUBLISHED"
	ListingStatusDraft     ListingStatus = "DRAFT"
	ListingStatusPending   ListingStatus = "PENDING"
	ListingStatusSold      ListingStatus = "SOLD"
	ListingStatusArchived  ListingStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusPublished, ListingStatusDraft, ListingStatusPending, ListingStatusSold, ListingStatusArchived:
		return true
	}
	return false
}

// Category is the kind of property being listed.
type Category string

const (
	CategoryLand       Category = "LAND"
	CategoryField      Category = "FIELD"
	CategoryVineyard   Category = "VINEYARD"
	CategoryGarden     Category = "GARDEN"
	CategoryHouse      Category = "HOUSE"
	CategoryVilla      Category = "VILLA"
	CategoryApartment  Category = "APARTMENT"
	CategoryCommercial Category = "COMMERCIAL"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryLand, CategoryField, CategoryVineyard, CategoryGarden,
	CategoryHouse, CategoryVilla, CategoryApartment, CategoryCommercial,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Feature is a named amenity a listing can be tagged with, e.g. "paved-road".
type Feature struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Property is a listing with its typed details and the denormalized
// location, feature and image projections used in search results.
type Property struct {
	ID          string
	Title       string
	Description string
	Address     string
	Price       float64
	Category    Category
	Status      ListingStatus
	OwnerID     string

	Area      *float64
	Rooms     *int
	Bathrooms *int
	Floor     *int
	BuildYear *int

	Electricity *bool
	Water       *bool
	Gas         *bool
	RoadAccess  *bool
	Sewerage    *bool
	Furnished   *bool

	LocationID   string
	LocationPath []string
	Coordinates  *geo.Point
	Features     []Feature
	Images       []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricePerArea returns price divided by area; ok is false when area is
// missing or zero.
func (p *Property) PricePerArea() (float64, bool) {
	if p.Area == nil || *p.Area <= 0 {
		return 0, false
	}
	return p.Price / *p.Area, true
}

// HasFeature reports whether the listing carries the feature id.
func (p *Property) HasFeature(id string) bool {
	for _, f := range p.Features {
		if f.ID == id {
			return true
		}
	}
	return false
}

// LocationLevel is the depth of a location in the region hierarchy.
type LocationLevel string

const (
	LocationLevelRegion      LocationLevel = "REGION"
	LocationLevelDistrict    LocationLevel = "DISTRICT"
	LocationLevelSubDistrict LocationLevel = "SUB_DISTRICT"
)

// Location is one node of the region > district > sub-district tree.
type Location struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Level    LocationLevel `json:"level"`
	ParentID string        `json:"parentId,omitempty"`
}
