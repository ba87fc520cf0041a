package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineSymmetry(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"short hop", 45.5, -73.6, 45.51, -73.6},
		{"antipodal-ish", 10, 20, -10, -160},
		{"same point", 1, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			rev := Haversine(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
			assert.InDelta(t, fwd, rev, 1e-9)
		})
	}
}

func TestHaversineSamePointIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(45.5, -73.6, 45.5, -73.6))
}

func TestBearingDiffWraps(t *testing.T) {
	assert.InDelta(t, 10.0, BearingDiff(5, 355), 1e-9)
	assert.InDelta(t, 0.0, BearingDiff(350, 350), 1e-9)
	assert.InDelta(t, 180.0, BearingDiff(0, 180), 1e-9)
}

func TestEnvelopeAroundContainsCenter(t *testing.T) {
	p := Point{Lon: -73.6, Lat: 45.5}
	env := EnvelopeAround(p, 500)
	assert.True(t, env.Contains(p))
	assert.False(t, math.IsNaN(env.MinLon))
}

func TestEnvelopeOfPoints(t *testing.T) {
	pts := []Point{{0, 0}, {1, 2}, {-1, -2}}
	env := EnvelopeOfPoints(pts)
	assert.Equal(t, Envelope{MinLon: -1, MinLat: -2, MaxLon: 1, MaxLat: 2}, env)
}
