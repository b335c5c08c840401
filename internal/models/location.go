package models

import "math"

// Location is a WGS-84 position in decimal degrees.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Valid reports whether both coordinates are finite numbers.
func (l Location) Valid() bool {
	return finite(l.Lat) && finite(l.Lon)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
