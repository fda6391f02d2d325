package models

// GeoJSON represents a GeoJSON Point for MongoDB.
type GeoJSON struct {
	Type        string    `bson:"type" json:"type"`               // Should be "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

// NewPoint builds a GeoJSON Point from longitude and latitude.
func NewPoint(lon, lat float64) GeoJSON {
	return GeoJSON{Type: "Point", Coordinates: []float64{lon, lat}}
}
