package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloo-solutions/plotsearch/internal/api"
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/geo"
)

// queryParams reads typed query values and keeps the first parse failure so
// a handler can check once after reading everything.
type queryParams struct {
	values url.Values
	field  string
	msg    string
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{values: r.URL.Query()}
}

func (q *queryParams) fail(field, msg string) {
	if q.field == "" {
		q.field, q.msg = field, msg
	}
}

// failed writes the recorded failure as a 400 and reports whether there was
// one.
func (q *queryParams) failed(w http.ResponseWriter) bool {
	if q.field == "" {
		return false
	}
	api.ValidationError(w, q.field, q.msg)
	return true
}

func (q *queryParams) str(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *queryParams) has(name string) bool {
	return q.str(name) != ""
}

func (q *queryParams) float(name string) *float64 {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name, "must be a number")
		return nil
	}
	return &v
}

func (q *queryParams) int(name string) *int {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "must be an integer")
		return nil
	}
	return &v
}

func (q *queryParams) intOr(name string, def int) int {
	if v := q.int(name); v != nil {
		return *v
	}
	return def
}

func (q *queryParams) bool(name string) *bool {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "must be true or false")
		return nil
	}
	return &v
}

func (q *queryParams) list(name string) []string {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// point reads a lat/lng pair. Neither set yields nil; only one set is an
// error.
func (q *queryParams) point(latName, lngName string) *geo.Point {
	lat, lng := q.float(latName), q.float(lngName)
	switch {
	case lat == nil && lng == nil:
		return nil
	case lat == nil:
		q.fail(latName, "is required with "+lngName)
		return nil
	case lng == nil:
		q.fail(lngName, "is required with "+latName)
		return nil
	}
	return &geo.Point{Lat: *lat, Lng: *lng}
}

// requirePoint is point for endpoints where the pair is mandatory.
func (q *queryParams) requirePoint(latName, lngName string) geo.Point {
	p := q.point(latName, lngName)
	if p == nil {
		q.fail(latName, "is required")
		return geo.Point{}
	}
	return *p
}

func (q *queryParams) requireBox() geo.Box {
	ne := q.requirePoint("ne_lat", "ne_lng")
	sw := q.requirePoint("sw_lat", "sw_lng")
	return geo.Box{NorthEast: ne, SouthWest: sw}
}

// criteria builds search criteria from the /properties/search parameters.
func (q *queryParams) criteria() domain.SearchCriteria {
	c := domain.SearchCriteria{
		Term:          q.str("q"),
		Price:         domain.Between(q.float("min_price"), q.float("max_price")),
		Area:          domain.Between(q.float("min_area"), q.float("max_area")),
		PricePerArea:  domain.Between(q.float("min_price_per_area"), q.float("max_price_per_area")),
		Rooms:         domain.Between(q.int("min_rooms"), q.int("max_rooms")),
		Bathrooms:     domain.Between(q.int("min_bathrooms"), q.int("max_bathrooms")),
		Floor:         domain.Between(q.int("min_floor"), q.int("max_floor")),
		BuildYear:     domain.Between(q.int("min_build_year"), q.int("max_build_year")),
		Category:      domain.Category(strings.ToUpper(q.str("category"))),
		Status:        domain.ListingStatus(strings.ToUpper(q.str("status"))),
		RegionID:      q.str("region_id"),
		DistrictID:    q.str("district_id"),
		SubDistrictID: q.str("sub_district_id"),
		FeatureIDs:    q.list("feature_ids"),
		Amenities: domain.Amenities{
			Electricity: q.bool("electricity"),
			Water:       q.bool("water"),
			Gas:         q.bool("gas"),
			RoadAccess:  q.bool("road_access"),
			Sewerage:    q.bool("sewerage"),
			Furnished:   q.bool("furnished"),
		},
		Page:  q.intOr("page", 1),
		Limit: q.intOr("limit", 0),
	}

	if mode := strings.ToUpper(q.str("feature_mode")); mode != "" {
		switch domain.FeatureMode(mode) {
		case domain.FeatureModeAll, domain.FeatureModeAny:
			c.FeatureMode = domain.FeatureMode(mode)
		default:
			q.fail("feature_mode", "must be ALL or ANY")
		}
	}

	if key := q.str("sort_by"); key != "" {
		if !domain.SortKey(key).Valid() {
			q.fail("sort_by", "unknown sort key")
		}
		c.SortBy = domain.SortKey(key)
	}
	if order := strings.ToLower(q.str("sort_order")); order != "" {
		if order != string(domain.SortAsc) && order != string(domain.SortDesc) {
			q.fail("sort_order", "must be asc or desc")
		}
		c.SortOrder = domain.SortOrder(order)
	}

	center := q.point("lat", "lng")
	radius := q.float("radius_km")
	ne := q.point("ne_lat", "ne_lng")
	sw := q.point("sw_lat", "sw_lng")
	if center != nil || radius != nil || ne != nil || sw != nil {
		g := &domain.GeoFilter{Center: center, NorthEast: ne, SouthWest: sw}
		if radius != nil {
			g.RadiusKm = *radius
		}
		c.Geo = g
	}
	return c
}
