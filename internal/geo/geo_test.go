package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineZeroForSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKm(28.6139, 77.2090, 28.6139, 77.2090))
}

func TestHaversineSymmetry(t *testing.T) {
	d1 := HaversineKm(28.6139, 77.2090, 19.0760, 72.8777)
	d2 := HaversineKm(19.0760, 72.8777, 28.6139, 77.2090)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestHaversineDelhiMumbai(t *testing.T) {
	d := HaversineKm(28.6139, 77.2090, 19.0760, 72.8777)
	assert.InDelta(t, 1150, d, 50, "Delhi to Mumbai should be roughly 1150km, got %f", d)
}

func TestValidCoordinates(t *testing.T) {
	cases := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"delhi", 28.6139, 77.2090, true},
		{"equator origin", 0, 0, true},
		{"lat boundary", 90, 180, true},
		{"lat too high", 91, 0, false},
		{"lng too high", 0, 181, false},
		{"lat too low", -90.01, 0, false},
		{"lng too low", 0, -180.5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidCoordinates(tc.lat, tc.lng))
		})
	}
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 12.35, RoundKm(12.3456))
	assert.Equal(t, 0.0, RoundKm(0.001))
}
