package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flagKind int

const (
	kindString flagKind = iota
	kindUpper
	kindFloat
	kindInt
	kindBool
	kindList
)

// criteriaFlag maps a CLI flag onto a /properties/search query parameter.
// body is the key in a saved-search criteria document; empty means the
// flag is not part of saved criteria.
type criteriaFlag struct {
	name  string
	param string
	body  string
	kind  flagKind
	usage string
}

var criteriaFlags = []criteriaFlag{
	{"q", "q", "term", kindString, "Free-text term matched against title, description and address"},
	{"min-price", "min_price", "min_price", kindFloat, "Minimum price"},
	{"max-price", "max_price", "max_price", kindFloat, "Maximum price"},
	{"min-area", "min_area", "min_area", kindFloat, "Minimum area"},
	{"max-area", "max_area", "max_area", kindFloat, "Maximum area"},
	{"min-price-per-area", "min_price_per_area", "min_price_per_area", kindFloat, "Minimum price per area unit"},
	{"max-price-per-area", "max_price_per_area", "max_price_per_area", kindFloat, "Maximum price per area unit"},
	{"min-rooms", "min_rooms", "min_rooms", kindInt, "Minimum rooms"},
	{"max-rooms", "max_rooms", "max_rooms", kindInt, "Maximum rooms"},
	{"min-bathrooms", "min_bathrooms", "min_bathrooms", kindInt, "Minimum bathrooms"},
	{"max-bathrooms", "max_bathrooms", "max_bathrooms", kindInt, "Maximum bathrooms"},
	{"min-floor", "min_floor", "min_floor", kindInt, "Minimum floor"},
	{"max-floor", "max_floor", "max_floor", kindInt, "Maximum floor"},
	{"min-build-year", "min_build_year", "min_build_year", kindInt, "Earliest build year"},
	{"max-build-year", "max_build_year", "max_build_year", kindInt, "Latest build year"},
	{"category", "category", "category", kindUpper, "Listing category"},
	{"region-id", "region_id", "region_id", kindString, "Region location id"},
	{"district-id", "district_id", "district_id", kindString, "District location id"},
	{"sub-district-id", "sub_district_id", "sub_district_id", kindString, "Sub-district location id"},
	{"features", "feature_ids", "feature_ids", kindList, "Feature ids (comma-separated)"},
	{"feature-mode", "feature_mode", "feature_mode", kindUpper, "ALL or ANY"},
	{"electricity", "electricity", "electricity", kindBool, "Require electricity"},
	{"water", "water", "water", kindBool, "Require water"},
	{"gas", "gas", "gas", kindBool, "Require gas"},
	{"road-access", "road_access", "road_access", kindBool, "Require road access"},
	{"sewerage", "sewerage", "sewerage", kindBool, "Require sewerage"},
	{"furnished", "furnished", "furnished", kindBool, "Require furnished"},
}

var searchOnlyFlags = []criteriaFlag{
	{"status", "status", "", kindUpper, "Lifecycle status (only honored for your own listings)"},
	{"sort-by", "sort_by", "", kindString, "Sort key"},
	{"sort-order", "sort_order", "", kindString, "asc or desc"},
}

var geoFilterFlags = []criteriaFlag{
	{"lat", "lat", "", kindFloat, "Center latitude for a radius filter"},
	{"lng", "lng", "", kindFloat, "Center longitude for a radius filter"},
	{"radius-km", "radius_km", "", kindFloat, "Radius in km around --lat/--lng"},
	{"ne-lat", "ne_lat", "", kindFloat, "Bounding box north-east latitude"},
	{"ne-lng", "ne_lng", "", kindFloat, "Bounding box north-east longitude"},
	{"sw-lat", "sw_lat", "", kindFloat, "Bounding box south-west latitude"},
	{"sw-lng", "sw_lng", "", kindFloat, "Bounding box south-west longitude"},
}

func register(fs *pflag.FlagSet, flags []criteriaFlag) {
	for _, f := range flags {
		switch f.kind {
		case kindFloat:
			fs.Float64(f.name, 0, f.usage)
		case kindInt:
			fs.Int(f.name, 0, f.usage)
		case kindBool:
			fs.Bool(f.name, false, f.usage)
		case kindList:
			fs.StringSlice(f.name, nil, f.usage)
		default:
			fs.String(f.name, "", f.usage)
		}
	}
}

// addCriteriaFlags registers the filter flags shared by search and saved
// create/update.
func addCriteriaFlags(cmd *cobra.Command, withSearchOnly bool) {
	register(cmd.Flags(), criteriaFlags)
	register(cmd.Flags(), geoFilterFlags)
	if withSearchOnly {
		register(cmd.Flags(), searchOnlyFlags)
	}
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("page", "p", 1, "Page number")
	cmd.Flags().IntP("limit", "n", 0, "Page size (server default when 0)")
}

// flagString renders a changed flag the way the server parses it.
func flagString(fs *pflag.FlagSet, f criteriaFlag) string {
	if f.kind == kindList {
		values, _ := fs.GetStringSlice(f.name)
		return strings.Join(values, ",")
	}
	v := fs.Lookup(f.name).Value.String()
	if f.kind == kindUpper {
		v = strings.ToUpper(v)
	}
	return v
}

// criteriaQuery encodes every changed criteria flag as a query parameter.
func criteriaQuery(fs *pflag.FlagSet) url.Values {
	q := url.Values{}
	for _, group := range [][]criteriaFlag{criteriaFlags, geoFilterFlags, searchOnlyFlags} {
		for _, f := range group {
			if fs.Lookup(f.name) == nil || !fs.Changed(f.name) {
				continue
			}
			q.Set(f.param, flagString(fs, f))
		}
	}
	pageQuery(fs, q)
	return q
}

func pageQuery(fs *pflag.FlagSet, q url.Values) {
	if fs.Lookup("page") != nil && fs.Changed("page") {
		q.Set("page", fs.Lookup("page").Value.String())
	}
	if fs.Lookup("limit") != nil && fs.Changed("limit") {
		q.Set("limit", fs.Lookup("limit").Value.String())
	}
}

// criteriaBody builds a saved-search criteria document from the changed
// flags. Only changed flags appear, so the same document serves as a
// merge patch on update.
func criteriaBody(fs *pflag.FlagSet) (map[string]any, error) {
	body := map[string]any{}
	for _, f := range criteriaFlags {
		if !fs.Changed(f.name) {
			continue
		}
		switch f.kind {
		case kindFloat:
			v, _ := fs.GetFloat64(f.name)
			body[f.body] = v
		case kindInt:
			v, _ := fs.GetInt(f.name)
			body[f.body] = v
		case kindBool:
			v, _ := fs.GetBool(f.name)
			body[f.body] = v
		case kindList:
			v, _ := fs.GetStringSlice(f.name)
			body[f.body] = v
		default:
			body[f.body] = flagString(fs, f)
		}
	}

	geo, err := geoBody(fs)
	if err != nil {
		return nil, err
	}
	if geo != nil {
		body["geo"] = geo
	}
	return body, nil
}

func geoBody(fs *pflag.FlagSet) (map[string]any, error) {
	changed := func(names ...string) int {
		n := 0
		for _, name := range names {
			if fs.Changed(name) {
				n++
			}
		}
		return n
	}
	get := func(name string) float64 {
		v, _ := fs.GetFloat64(name)
		return v
	}

	radius := changed("lat", "lng", "radius-km")
	box := changed("ne-lat", "ne-lng", "sw-lat", "sw-lng")
	switch {
	case radius > 0 && box > 0:
		return nil, fmt.Errorf("radius and bounding box filters are mutually exclusive")
	case radius > 0:
		if radius != 3 {
			return nil, fmt.Errorf("a radius filter needs --lat, --lng and --radius-km")
		}
		return map[string]any{
			"center":    Point{Lat: get("lat"), Lng: get("lng")},
			"radius_km": get("radius-km"),
		}, nil
	case box > 0:
		if box != 4 {
			return nil, fmt.Errorf("a bounding box filter needs --ne-lat, --ne-lng, --sw-lat and --sw-lng")
		}
		return map[string]any{
			"north_east": Point{Lat: get("ne-lat"), Lng: get("ne-lng")},
			"south_west": Point{Lat: get("sw-lat"), Lng: get("sw-lng")},
		}, nil
	}
	return nil, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}
