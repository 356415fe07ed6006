// Package geo gates reported coordinates on geographic plausibility.
package geo

import (
	"log/slog"

	"github.com/umahmood/haversine"
)

// Validator accepts coordinates that are inside the lat/lon domain and
// within a great-circle radius of a fixed center. Rejections are logged,
// never errors: implausible positions are expected traffic.
type Validator struct {
	center   haversine.Coord
	maxMiles float64
	logger   *slog.Logger
}

func NewValidator(centerLat, centerLon, maxMiles float64, logger *slog.Logger) *Validator {
	return &Validator{
		center:   haversine.Coord{Lat: centerLat, Lon: centerLon},
		maxMiles: maxMiles,
		logger:   logger.With("component", "geo"),
	}
}

// Valid reports whether (lat, lon) is a plausible position for upload.
func (v *Validator) Valid(lat, lon float64) bool {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		v.logger.Warn("invalid position data", "lat", lat, "lon", lon)

		return false
	}

	miles, _ := haversine.Distance(v.center, haversine.Coord{Lat: lat, Lon: lon})
	if miles > v.maxMiles {
		v.logger.Warn("position exceeds max distance", "lat", lat, "lon", lon, "miles", miles, "max_miles", v.maxMiles)

		return false
	}

	return true
}
