// Package geo provides great-circle distance on WGS 84 coordinates.
package geo

import (
	"math"

	apperrors "agrimarket/internal/errors"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Point represents a geographic coordinate in signed degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Valid reports whether both coordinates are finite and in range.
func (p Point) Valid() bool {
	return validLat(p.Lat) && validLon(p.Lon)
}

// Validate returns a validation error naming the first bad coordinate.
// latField and lonField are the caller's names for the two inputs.
func (p Point) Validate(latField, lonField string) error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return apperrors.Validation(latField, latField+" must be a finite number")
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return apperrors.Validation(lonField, lonField+" must be a finite number")
	}
	if !validLat(p.Lat) {
		return apperrors.Validationf(latField, "%s must be between -90 and 90, got %g", latField, p.Lat)
	}
	if !validLon(p.Lon) {
		return apperrors.Validationf(lonField, "%s must be between -180 and 180, got %g", lonField, p.Lon)
	}
	return nil
}

func validLat(v float64) bool { return v >= -90 && v <= 90 }
func validLon(v float64) bool { return v >= -180 && v <= 180 }

// Haversine returns the great-circle distance between a and b in kilometres.
// Non-finite or out-of-range input yields NaN.
func Haversine(a, b Point) float64 {
	if !a.Valid() || !b.Valid() {
		return math.NaN()
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// float error can push h a hair above 1 for antipodal points
	h = math.Min(1, h)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Round2 rounds a distance to two decimals for display.
func Round2(km float64) float64 {
	return math.Round(km*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
