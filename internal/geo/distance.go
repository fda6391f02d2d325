package geo

import "math"

// EarthRadiusMeters is the IUGG mean Earth radius.
const EarthRadiusMeters = 6371008.8

// Point is a [longitude, latitude] pair in degrees, the same order GeoJSON uses.
type Point [2]float64

func (p Point) Lon() float64 { return p[0] }
func (p Point) Lat() float64 { return p[1] }

// DistanceMeters returns the haversine great-circle distance between a and b.
// NaN inputs propagate to the result.
func DistanceMeters(a, b Point) float64 {
	lat1 := toRadians(a.Lat())
	lat2 := toRadians(b.Lat())
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon() - a.Lon())

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h a hair outside [0,1] for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// ValidPoint reports whether lon/lat are finite WGS84 values.
func ValidPoint(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
