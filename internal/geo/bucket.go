package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

// cellSizes holds worst-case (equatorial) geohash cell width and height in
// meters, indexed by precision.
var cellSizes = [...][2]float64{
	1:  {5009400, 4992600},
	2:  {1252300, 624100},
	3:  {156500, 156000},
	4:  {39100, 19500},
	5:  {4900, 4900},
	6:  {1200, 609.4},
	7:  {152.9, 152.4},
	8:  {38.2, 19.1},
	9:  {4.8, 4.8},
	10: {1.2, 0.595},
	11: {0.149, 0.149},
	12: {0.037, 0.019},
}

// BucketPrecisionFor returns the coarsest geohash precision whose cells are
// small enough that any two points sharing a cell lie within radiusMeters.
// It returns 0 when no precision qualifies.
func BucketPrecisionFor(radiusMeters float64) uint {
	for p := 1; p < len(cellSizes); p++ {
		w, h := cellSizes[p][0], cellSizes[p][1]
		if math.Hypot(w, h) <= radiusMeters {
			return uint(p)
		}
	}
	return 0
}

// Bucket returns the geohash cell containing p at the given precision.
func Bucket(p Point, precision uint) string {
	if precision == 0 {
		return ""
	}
	return geohash.EncodeWithPrecision(p.Lat(), p.Lon(), precision)
}
