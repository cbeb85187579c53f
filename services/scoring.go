package services

import (
	"math"

	"geoguess/models"
)

const (
	maxScore     = 5000.0
	scoreDecay   = 3.0
	hintPenalty  = 1.2
	earthRadiusM = 6371000.0
)

// CalculateScore maps a round outcome to an integer score. A perfect guess
// (zero final distance) scores 5000; the score decays exponentially with the
// final distance relative to the initial distance, and a used hint divides
// the result by 1.2 before rounding.
//
// initialDistance must be positive; it is a generated value and a
// non-positive one is a caller bug, answered with a zero score rather than a
// panic.
func CalculateScore(finalDistance, initialDistance float64, hintUsed bool) int {
	if initialDistance <= 0 {
		return 0
	}

	ratio := finalDistance / initialDistance
	raw := maxScore * math.Exp(-scoreDecay*ratio)

	if hintUsed {
		return int(math.Round(raw / hintPenalty))
	}
	return int(math.Round(raw))
}

// HaversineDistance returns the great-circle distance between two coordinates
// in meters.
func HaversineDistance(a, b models.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
