// Package filter turns search criteria into a store-independent predicate
// tree and evaluates that tree against in-memory listings.
package filter

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/geo"
)

// Field names a listing attribute a predicate can test.
type Field string

const (
	FieldStatus       Field = "status"
	FieldCategory     Field = "category"
	FieldOwner        Field = "owner"
	FieldLocation     Field = "location"
	FieldPrice        Field = "price"
	FieldArea         Field = "area"
	FieldPricePerArea Field = "pricePerArea"
	FieldRooms        Field = "rooms"
	FieldBathrooms    Field = "bathrooms"
	FieldFloor        Field = "floor"
	FieldBuildYear    Field = "buildYear"
	FieldElectricity  Field = "electricity"
	FieldWater        Field = "water"
	FieldGas          Field = "gas"
	FieldRoadAccess   Field = "roadAccess"
	FieldSewerage     Field = "sewerage"
	FieldFurnished    Field = "furnished"
	FieldFeatures     Field = "features"
	FieldTitle        Field = "title"
	FieldDescription  Field = "description"
	FieldAddress      Field = "address"
)

// TextFields are the fields a free-text term is matched against.
var TextFields = []Field{FieldTitle, FieldDescription, FieldAddress}

// Kind tags a predicate variant.
type Kind string

const (
	KindRange       Kind = "range"
	KindEquals      Kind = "equals"
	KindBoolean     Kind = "boolean"
	KindSet         Kind = "set"
	KindGeoRadius   Kind = "geoRadius"
	KindGeoBox      Kind = "geoBox"
	KindText        Kind = "text"
	KindConjunction Kind = "and"
)

// Predicate is a single filter condition. Predicates describe what to match;
// stores translate them into their own query language.
type Predicate interface {
	Kind() Kind
	Match(p *domain.Property) bool
	String() string
}

// Range bounds a numeric field. A listing without a value for the field
// never matches.
type Range struct {
	Field Field
	Min   *float64
	Max   *float64
}

func (Range) Kind() Kind { return KindRange }

func (r Range) Match(p *domain.Property) bool {
	v, ok := numericValue(p, r.Field)
	if !ok {
		return false
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) String() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%s in [%g, %g]", r.Field, *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf("%s >= %g", r.Field, *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("%s <= %g", r.Field, *r.Max)
	}
	return fmt.Sprintf("%s any", r.Field)
}

// Equals matches a string-valued field exactly.
type Equals struct {
	Field Field
	Value string
}

func (Equals) Kind() Kind { return KindEquals }

func (e Equals) Match(p *domain.Property) bool {
	return stringValue(p, e.Field) == e.Value
}

func (e Equals) String() string { return fmt.Sprintf("%s = %s", e.Field, e.Value) }

// BooleanFlag matches an amenity flag that is explicitly set to Expected.
type BooleanFlag struct {
	Field    Field
	Expected bool
}

func (BooleanFlag) Kind() Kind { return KindBoolean }

func (b BooleanFlag) Match(p *domain.Property) bool {
	v := boolValue(p, b.Field)
	return v != nil && *v == b.Expected
}

func (b BooleanFlag) String() string { return fmt.Sprintf("%s = %t", b.Field, b.Expected) }

// SetMembership matches a field against a set of values. For the features
// field Mode ALL needs every value present, ANY needs at least one. For
// scalar fields the value must be one of Values.
type SetMembership struct {
	Field  Field
	Values []string
	Mode   domain.FeatureMode
}

func (SetMembership) Kind() Kind { return KindSet }

func (s SetMembership) Match(p *domain.Property) bool {
	if s.Field == FieldFeatures {
		if s.Mode == domain.FeatureModeAll {
			for _, id := range s.Values {
				if !p.HasFeature(id) {
					return false
				}
			}
			return len(s.Values) > 0
		}
		for _, id := range s.Values {
			if p.HasFeature(id) {
				return true
			}
		}
		return false
	}

	v := stringValue(p, s.Field)
	for _, want := range s.Values {
		if v == want {
			return true
		}
	}
	return false
}

func (s SetMembership) String() string {
	return fmt.Sprintf("%s %s(%s)", s.Field, strings.ToLower(string(s.Mode)), strings.Join(s.Values, ","))
}

// GeoRadius matches listings within RadiusKm great-circle distance of Center.
type GeoRadius struct {
	Center   geo.Point
	RadiusKm float64
}

func (GeoRadius) Kind() Kind { return KindGeoRadius }

func (g GeoRadius) Match(p *domain.Property) bool {
	if p.Coordinates == nil {
		return false
	}
	return geo.HaversineKm(g.Center, *p.Coordinates) <= g.RadiusKm
}

func (g GeoRadius) String() string {
	return fmt.Sprintf("within %gkm of (%g, %g)", g.RadiusKm, g.Center.Lat, g.Center.Lng)
}

// GeoBox matches listings inside Box, edges included.
type GeoBox struct {
	Box geo.Box
}

func (GeoBox) Kind() Kind { return KindGeoBox }

func (g GeoBox) Match(p *domain.Property) bool {
	return p.Coordinates != nil && g.Box.Contains(*p.Coordinates)
}

func (g GeoBox) String() string {
	return fmt.Sprintf("inside (%g, %g)-(%g, %g)",
		g.Box.SouthWest.Lat, g.Box.SouthWest.Lng, g.Box.NorthEast.Lat, g.Box.NorthEast.Lng)
}

// TextSearch is a case-insensitive substring match OR-ed across Fields.
type TextSearch struct {
	Term   string
	Fields []Field
}

func (TextSearch) Kind() Kind { return KindText }

func (t TextSearch) Match(p *domain.Property) bool {
	term := strings.ToLower(t.Term)
	for _, f := range t.Fields {
		if strings.Contains(strings.ToLower(stringValue(p, f)), term) {
			return true
		}
	}
	return false
}

func (t TextSearch) String() string { return fmt.Sprintf("text %q", t.Term) }

// Conjunction requires every child predicate to match.
type Conjunction struct {
	Predicates []Predicate
}

func (Conjunction) Kind() Kind { return KindConjunction }

func (c Conjunction) Match(p *domain.Property) bool {
	for _, pred := range c.Predicates {
		if !pred.Match(p) {
			return false
		}
	}
	return true
}

func (c Conjunction) String() string {
	parts := make([]string, len(c.Predicates))
	for i, pred := range c.Predicates {
		parts[i] = pred.String()
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func numericValue(p *domain.Property, f Field) (float64, bool) {
	switch f {
	case FieldPrice:
		return p.Price, true
	case FieldArea:
		if p.Area == nil {
			return 0, false
		}
		return *p.Area, true
	case FieldPricePerArea:
		return p.PricePerArea()
	case FieldRooms:
		return intValue(p.Rooms)
	case FieldBathrooms:
		return intValue(p.Bathrooms)
	case FieldFloor:
		return intValue(p.Floor)
	case FieldBuildYear:
		return intValue(p.BuildYear)
	}
	return 0, false
}

func intValue(v *int) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}

func stringValue(p *domain.Property, f Field) string {
	switch f {
	case FieldStatus:
		return string(p.Status)
	case FieldCategory:
		return string(p.Category)
	case FieldOwner:
		return p.OwnerID
	case FieldLocation:
		return p.LocationID
	case FieldTitle:
		return p.Title
	case FieldDescription:
		return p.Description
	case FieldAddress:
		return p.Address
	}
	return ""
}

func boolValue(p *domain.Property, f Field) *bool {
	switch f {
	case FieldElectricity:
		return p.Electricity
	case FieldWater:
		return p.Water
	case FieldGas:
		return p.Gas
	case FieldRoadAccess:
		return p.RoadAccess
	case FieldSewerage:
		return p.Sewerage
	case FieldFurnished:
		return p.Furnished
	}
	return nil
}
