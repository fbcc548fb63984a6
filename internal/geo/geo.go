package geo

import (
	"math"

	"github.com/siasic/seismic-watch/internal/models"
)

const earthRadiusKm = 6371.0

// BoundingBox is an axis-aligned lat/lon rectangle used as a coarse
// regional membership test. Longitude wraparound across the antimeridian is
// not handled: every supported region sits well inside a single hemisphere
// span, so boxes never cross ±180.
type BoundingBox struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Contains reports whether the coordinate falls inside the box, edges
// inclusive.
func (b BoundingBox) Contains(c models.Coordinates) bool {
	return c.Latitude >= b.LatMin && c.Latitude <= b.LatMax &&
		c.Longitude >= b.LonMin && c.Longitude <= b.LonMax
}

// Region is a named geographic selector.
type Region string

const (
	RegionColombia     Region = "colombia"
	RegionSouthAmerica Region = "suramerica"
	RegionWorld        Region = "world"
)

var regionBoxes = map[Region]BoundingBox{
	RegionColombia:     {LatMin: -4.5, LatMax: 13.5, LonMin: -82, LonMax: -66},
	RegionSouthAmerica: {LatMin: -56, LatMax: 13, LonMin: -82, LonMax: -34},
}

// Reference points for map centering and distance readouts.
var (
	ColombiaCenter = models.Coordinates{Latitude: 4.5709, Longitude: -74.2973}
	NestCenter     = models.Coordinates{Latitude: 6.78, Longitude: -73.18}
)

// ParseRegion returns the region for a user-supplied name, defaulting to
// RegionWorld for anything unrecognized.
func ParseRegion(s string) (Region, bool) {
	switch Region(s) {
	case RegionColombia, RegionSouthAmerica, RegionWorld:
		return Region(s), true
	}
	return RegionWorld, false
}

// Box returns the bounding box for a region. RegionWorld has no box:
// membership is unconditional.
func (r Region) Box() (BoundingBox, bool) {
	b, ok := regionBoxes[r]
	return b, ok
}

// Contains reports region membership for a coordinate.
func (r Region) Contains(c models.Coordinates) bool {
	box, ok := regionBoxes[r]
	if !ok {
		return true
	}
	return box.Contains(c)
}

// Center returns the map center used when nothing is selected.
func (r Region) Center() models.Coordinates {
	switch r {
	case RegionColombia:
		return ColombiaCenter
	case RegionSouthAmerica:
		return models.Coordinates{Latitude: -15, Longitude: -60}
	default:
		return models.Coordinates{}
	}
}

// DistanceKm computes the great-circle distance between two coordinates
// with the haversine formula on a 6371 km sphere. The asin argument is
// clamped to [-1, 1] so floating-point overshoot near antipodal or
// near-identical points cannot produce NaN.
func DistanceKm(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	h = math.Min(1, math.Max(0, h))
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
