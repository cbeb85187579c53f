package services

import (
	"math"
	"testing"

	"geoguess/models"
)

func TestCalculateScorePerfectGuess(t *testing.T) {
	for _, initial := range []float64{1, 50, 800, 20000} {
		if got := CalculateScore(0, initial, false); got != 5000 {
			t.Errorf("CalculateScore(0, %v, false) = %d, want 5000", initial, got)
		}
	}
}

func TestCalculateScoreMonotonicInDistance(t *testing.T) {
	const initial = 800.0

	prev := CalculateScore(0, initial, false)
	for d := 10.0; d <= 5000; d += 10 {
		score := CalculateScore(d, initial, false)
		if score > prev {
			t.Fatalf("score increased from %d to %d at distance %v", prev, score, d)
		}
		prev = score
	}
}

func TestCalculateScoreHintNeverHelps(t *testing.T) {
	for _, tc := range []struct {
		final   float64
		initial float64
	}{
		{0, 800},
		{100, 800},
		{800, 800},
		{5000, 800},
		{10, 20000},
	} {
		withHint := CalculateScore(tc.final, tc.initial, true)
		without := CalculateScore(tc.final, tc.initial, false)
		if withHint > without {
			t.Errorf("hint raised score for final=%v initial=%v: %d > %d", tc.final, tc.initial, withHint, without)
		}
	}
}

func TestCalculateScoreHintDivisor(t *testing.T) {
	// 5000 / 1.2 rounded
	if got := CalculateScore(0, 800, true); got != 4167 {
		t.Errorf("CalculateScore(0, 800, true) = %d, want 4167", got)
	}
}

func TestCalculateScoreBadInitialDistance(t *testing.T) {
	if got := CalculateScore(100, 0, false); got != 0 {
		t.Errorf("CalculateScore(100, 0, false) = %d, want 0", got)
	}
	if got := CalculateScore(100, -5, false); got != 0 {
		t.Errorf("CalculateScore(100, -5, false) = %d, want 0", got)
	}
}

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name      string
		a, b      models.Location
		want      float64
		tolerance float64
	}{
		{
			name: "same point",
			a:    models.Location{Lat: 35.681236, Lng: 139.767125},
			b:    models.Location{Lat: 35.681236, Lng: 139.767125},
			want: 0, tolerance: 0.001,
		},
		{
			name: "one degree of latitude",
			a:    models.Location{Lat: 0, Lng: 0},
			b:    models.Location{Lat: 1, Lng: 0},
			want: 111195, tolerance: 100,
		},
		{
			name: "tokyo station to shinjuku station",
			a:    models.Location{Lat: 35.681236, Lng: 139.767125},
			b:    models.Location{Lat: 35.690921, Lng: 139.700258},
			want: 6130, tolerance: 150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("HaversineDistance() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}
