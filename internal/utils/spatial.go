package utils

import (
	"fmt"
	"math"
)

// HaversineDistance calculates the distance between two points in meters
// using the Haversine formula.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000
}

// CalculateBoundingBox calculates a rough bounding box for optimization
func CalculateBoundingBox(lat, lng, radiusMeters float64) (minLat, maxLat, minLng, maxLng float64) {
	// Approximate degrees per meter at the given latitude
	latDegreePerMeter := 1.0 / 111320.0
	lngDegreePerMeter := 1.0 / (111320.0 * math.Cos(lat*math.Pi/180.0))

	deltaLat := radiusMeters * latDegreePerMeter
	deltaLng := radiusMeters * lngDegreePerMeter

	minLat = lat - deltaLat
	maxLat = lat + deltaLat
	minLng = lng - deltaLng
	maxLng = lng + deltaLng

	return minLat, maxLat, minLng, maxLng
}

// ValidCoordinate reports whether lat/lng fall in the WGS84 range.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// RoundCoordinate truncates a coordinate to the given number of decimal
// places. Three places is roughly 110 m of ground distance.
func RoundCoordinate(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// CoordinateKey builds a stable cache key from a rounded coordinate pair.
func CoordinateKey(lat, lng float64, places int) string {
	return fmt.Sprintf("%.*f_%.*f", places, RoundCoordinate(lat, places), places, RoundCoordinate(lng, places))
}
