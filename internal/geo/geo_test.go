package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm_Identity(t *testing.T) {
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 41.0, Lng: 29.0},
		{Lat: -33.86, Lng: 151.21},
		{Lat: 89.99, Lng: -179.99},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, HaversineKm(p, p))
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{{Lat: 41.0, Lng: 29.0}, {Lat: 41.1, Lng: 29.1}},
		{{Lat: 51.5, Lng: -0.12}, {Lat: 48.85, Lng: 2.35}},
		{{Lat: -10, Lng: 170}, {Lat: 10, Lng: -170}},
	}
	for _, pair := range pairs {
		assert.InDelta(t, HaversineKm(pair[0], pair[1]), HaversineKm(pair[1], pair[0]), 1e-9)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	london := Point{Lat: 51.5074, Lng: -0.1278}
	paris := Point{Lat: 48.8566, Lng: 2.3522}

	assert.InDelta(t, 343.5, HaversineKm(london, paris), 1.0)
}

func TestHaversineKm_Antipodal(t *testing.T) {
	d := HaversineKm(Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
}

func TestDegreeDeltaForKm(t *testing.T) {
	d := DegreeDeltaForKm(111, 0)
	assert.InDelta(t, 1.0, d.Lat, 1e-9)
	assert.InDelta(t, 1.0, d.Lng, 1e-9)

	d = DegreeDeltaForKm(111, 60)
	assert.InDelta(t, 1.0, d.Lat, 1e-9)
	assert.InDelta(t, 2.0, d.Lng, 1e-6)

	d = DegreeDeltaForKm(10, 90)
	assert.Equal(t, 180.0, d.Lng)
}

func TestBoxAround_ContainsRadius(t *testing.T) {
	center := Point{Lat: 41.0, Lng: 29.0}
	box := BoxAround(center, 10)

	assert.True(t, box.Contains(center))
	// a point 9.9 km due north and due east must survive the pre-filter
	north := Point{Lat: center.Lat + 9.9/KmPerDegree, Lng: center.Lng}
	assert.True(t, box.Contains(north))
	east := Point{Lat: center.Lat, Lng: center.Lng + 9.9/(KmPerDegree*math.Cos(41.0*math.Pi/180))}
	assert.True(t, box.Contains(east))
}

func TestBoxAround_WrapsAntimeridian(t *testing.T) {
	center := Point{Lat: 0, Lng: 179.99}
	box := BoxAround(center, 10)

	assert.True(t, box.CrossesAntimeridian())
	assert.Greater(t, box.SouthWest.Lng, 179.0)
	assert.Less(t, box.NorthEast.Lng, -179.0)

	across := Point{Lat: 0, Lng: -179.99}
	assert.InDelta(t, 2.224, HaversineKm(center, across), 0.01)
	assert.True(t, box.Contains(across))
	assert.True(t, box.Contains(center))
	assert.False(t, box.Contains(Point{Lat: 0, Lng: 0}))
	assert.False(t, box.Contains(Point{Lat: 0, Lng: 179}))

	west := BoxAround(Point{Lat: 0, Lng: -179.99}, 10)
	assert.True(t, west.CrossesAntimeridian())
	assert.True(t, west.Contains(center))
}

func TestBoxAround_CoversAllLongitudesNearPole(t *testing.T) {
	box := BoxAround(Point{Lat: 90, Lng: 10}, 50)
	assert.False(t, box.CrossesAntimeridian())
	assert.Equal(t, -180.0, box.SouthWest.Lng)
	assert.Equal(t, 180.0, box.NorthEast.Lng)
	assert.True(t, box.Contains(Point{Lat: 89.9, Lng: -170}))
}

func TestBox_CenterAcrossAntimeridian(t *testing.T) {
	box := Box{NorthEast: Point{Lat: 1, Lng: -179}, SouthWest: Point{Lat: -1, Lng: 179}}
	c := box.Center()
	assert.Equal(t, 0.0, c.Lat)
	assert.InDelta(t, 180.0, math.Abs(c.Lng), 1e-9)
}

func TestBox_ContainsInclusive(t *testing.T) {
	box := Box{NorthEast: Point{Lat: 41.2, Lng: 29.2}, SouthWest: Point{Lat: 41.0, Lng: 29.0}}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Point{Lat: 41.1, Lng: 29.1}, true},
		{"north-east corner", Point{Lat: 41.2, Lng: 29.2}, true},
		{"south-west corner", Point{Lat: 41.0, Lng: 29.0}, true},
		{"north of box", Point{Lat: 41.21, Lng: 29.1}, false},
		{"west of box", Point{Lat: 41.1, Lng: 28.99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, box.Contains(tt.p))
		})
	}
}

func TestBox_Degenerate(t *testing.T) {
	assert.True(t, Box{NorthEast: Point{Lat: 41.1, Lng: 29.2}, SouthWest: Point{Lat: 41.1, Lng: 29.1}}.Degenerate())
	assert.True(t, Box{NorthEast: Point{Lat: 41.2, Lng: 29.0}, SouthWest: Point{Lat: 41.1, Lng: 29.1}}.Degenerate())
	assert.False(t, Box{NorthEast: Point{Lat: 41.2, Lng: 29.2}, SouthWest: Point{Lat: 41.1, Lng: 29.1}}.Degenerate())
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{Lat: 90, Lng: 180}.Valid())
	assert.True(t, Point{Lat: -90, Lng: -180}.Valid())
	assert.False(t, Point{Lat: 90.01, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -180.5}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
}
