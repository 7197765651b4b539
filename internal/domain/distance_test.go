package domain

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tol                    float64
	}{
		{
			name: "one degree of longitude at the equator",
			lat1: 0, lon1: 0, lat2: 0, lon2: 1,
			wantKm: 111.19, tol: 0.05,
		},
		{
			name: "same point",
			lat1: 36.9467, lon1: -76.3295, lat2: 36.9467, lon2: -76.3295,
			wantKm: 0, tol: 1e-9,
		},
		{
			name: "chesapeake station to nearby grid point",
			lat1: 37.000, lon1: -76.000, lat2: 37.05, lon2: -76.03,
			wantKm: 6.2, tol: 0.2,
		},
		{
			name: "symmetric in argument order",
			lat1: 47.6, lon1: -122.3, lat2: 48.4, lon2: -123.0,
			wantKm: Haversine(48.4, -123.0, 47.6, -122.3), tol: 1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.tol {
				t.Errorf("Haversine() = %.4f km, want %.4f km (tol %.4f)", got, tt.wantKm, tt.tol)
			}
		})
	}
}

func TestNormalizeLon360(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-76.0, 284.0},
		{284.0, 284.0},
		{0, 0},
		{360, 0},
		{-360, 0},
		{725, 5},
	}

	for _, tt := range tests {
		if got := NormalizeLon360(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeLon360(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
