// Package geo holds the small geometric primitives shared by every spatial
// layer: great-circle distance, bearing, and axis-aligned envelopes.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// Point is a (lon, lat) pair, matching the (x, y) convention used by the
// layers (x=longitude, y=latitude).
type Point struct {
	Lon float64
	Lat float64
}

// Envelope is an axis-aligned bounding box in (lon, lat) space.
type Envelope struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Contains reports whether p falls within the envelope, inclusive of edges.
func (e Envelope) Contains(p Point) bool {
	return p.Lon >= e.MinLon && p.Lon <= e.MaxLon && p.Lat >= e.MinLat && p.Lat <= e.MaxLat
}

// Intersects reports whether two envelopes overlap.
func (e Envelope) Intersects(o Envelope) bool {
	return e.MinLon <= o.MaxLon && e.MaxLon >= o.MinLon &&
		e.MinLat <= o.MaxLat && e.MaxLat >= o.MinLat
}

// EnvelopeAround builds a square envelope of the given radius (meters)
// centered on p, approximating meters-to-degrees conversion locally.
func EnvelopeAround(p Point, radiusMeters float64) Envelope {
	dLat := radiusMeters / 111320.0
	dLon := radiusMeters / (111320.0 * math.Max(0.01, math.Cos(p.Lat*math.Pi/180)))
	return Envelope{
		MinLon: p.Lon - dLon,
		MinLat: p.Lat - dLat,
		MaxLon: p.Lon + dLon,
		MaxLat: p.Lat + dLat,
	}
}

// EnvelopeOfPoints returns the smallest envelope containing all pts. Callers
// must pass a non-empty slice.
func EnvelopeOfPoints(pts []Point) Envelope {
	e := Envelope{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
	for _, p := range pts {
		e.MinLon = math.Min(e.MinLon, p.Lon)
		e.MinLat = math.Min(e.MinLat, p.Lat)
		e.MaxLon = math.Max(e.MaxLon, p.Lon)
		e.MaxLat = math.Max(e.MaxLat, p.Lat)
	}
	return e
}

// Haversine returns the great-circle distance, in meters, between two
// (lat, lon) points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(a, 1) // rounding can push near-antipodal pairs just past 1
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Bearing returns the initial compass bearing, in degrees [0, 360), from
// (lat1,lon1) to (lat2,lon2).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLon)
	theta := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(theta+360, 360)
}

// BearingDiff returns the smallest absolute angular difference between two
// bearings given in degrees, always in [0, 180].
func BearingDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
