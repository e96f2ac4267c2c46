// Package geo holds the coordinate math used by search: great-circle
// distance, km to degree conversion and bounding-box containment.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by HaversineKm.
	EarthRadiusKm = 6371.0

	// KmPerDegree approximates the length of one degree of latitude.
	KmPerDegree = 111.0
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies inside the legal lat/lng ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// Box is a latitude/longitude rectangle given by its north-east and
// south-west corners.
type Box struct {
	NorthEast Point `json:"northEast"`
	SouthWest Point `json:"southWest"`
}

// Degenerate reports whether the box has no area or is inverted.
func (b Box) Degenerate() bool {
	return b.NorthEast.Lat <= b.SouthWest.Lat || b.NorthEast.Lng <= b.SouthWest.Lng
}

// CrossesAntimeridian reports whether the box wraps past ±180 longitude,
// which BoxAround signals with a south-west longitude east of the
// north-east one.
func (b Box) CrossesAntimeridian() bool {
	return b.SouthWest.Lng > b.NorthEast.Lng
}

// Contains is an inclusive containment test on both axes. A box crossing
// the antimeridian covers [SouthWest.Lng, 180] and [-180, NorthEast.Lng].
func (b Box) Contains(p Point) bool {
	if p.Lat < b.SouthWest.Lat || p.Lat > b.NorthEast.Lat {
		return false
	}
	if b.CrossesAntimeridian() {
		return p.Lng >= b.SouthWest.Lng || p.Lng <= b.NorthEast.Lng
	}
	return p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	east := b.NorthEast.Lng
	if b.CrossesAntimeridian() {
		east += 360
	}
	lng := (east + b.SouthWest.Lng) / 2
	if lng > 180 {
		lng -= 360
	}
	return Point{
		Lat: (b.NorthEast.Lat + b.SouthWest.Lat) / 2,
		Lng: lng,
	}
}

// HaversineKm returns the great-circle distance between a and b in km.
func HaversineKm(a, b Point) float64 {
	if a == b {
		return 0
	}
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// rounding can push h slightly past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Delta is a span in degrees on each axis.
type Delta struct {
	Lat float64
	Lng float64
}

// DegreeDeltaForKm converts km into an approximate degree span at the given
// latitude. It is only good enough to pre-filter candidates before an exact
// HaversineKm check.
func DegreeDeltaForKm(km, atLat float64) Delta {
	latDelta := km / KmPerDegree
	cos := math.Cos(radians(atLat))
	if cos < 1e-9 {
		// at the poles every longitude is within reach
		return Delta{Lat: latDelta, Lng: 180}
	}
	return Delta{Lat: latDelta, Lng: km / (KmPerDegree * cos)}
}

// BoxAround returns the pre-filter box for a radius search around center.
// Longitude wraps at ±180, so the box may cross the antimeridian; a span
// that would cover every longitude becomes [-180, 180].
func BoxAround(center Point, km float64) Box {
	d := DegreeDeltaForKm(km, center.Lat)
	west, east := -180.0, 180.0
	if d.Lng < 180 {
		west = wrapLng(center.Lng - d.Lng)
		east = wrapLng(center.Lng + d.Lng)
	}
	return Box{
		NorthEast: Point{Lat: math.Min(90, center.Lat+d.Lat), Lng: east},
		SouthWest: Point{Lat: math.Max(-90, center.Lat-d.Lat), Lng: west},
	}
}

func wrapLng(lng float64) float64 {
	switch {
	case lng > 180:
		return lng - 360
	case lng < -180:
		return lng + 360
	}
	return lng
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
