package gridlayer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

func square(minLon, minLat, maxLon, maxLat float64) [][2]float64 {
	return [][2]float64{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}
}

func TestFindNearestZoneContainment(t *testing.T) {
	zones := []optmodel.Zone{
		{ID: 1, Polygon: square(0, 0, 1, 1)},
		{ID: 2, Polygon: square(1, 1, 2, 2)},
	}
	g := New(zones, nil)

	id, ok := g.FindNearestZone(0.5, 0.5)
	assert.True(t, ok)
	assert.Equal(t, optmodel.ZoneID(1), id)

	_, ok = g.FindNearestZone(5, 5)
	assert.False(t, ok)
}

func TestFindNearestZoneNaNIsAbsent(t *testing.T) {
	g := New([]optmodel.Zone{{ID: 1, Polygon: square(0, 0, 1, 1)}}, nil)
	_, ok := g.FindNearestZone(math.NaN(), 0.5)
	assert.False(t, ok)
}

func TestFindNearestZoneEmptyIndex(t *testing.T) {
	g := New(nil, nil)
	_, ok := g.FindNearestZone(0, 0)
	assert.False(t, ok)
}

func TestFindNearestZoneTieBreaksByInsertionOrder(t *testing.T) {
	// Overlapping zones; first inserted wins.
	zones := []optmodel.Zone{
		{ID: 1, Polygon: square(0, 0, 2, 2)},
		{ID: 2, Polygon: square(0, 0, 2, 2)},
	}
	g := New(zones, nil)
	id, ok := g.FindNearestZone(1, 1)
	assert.True(t, ok)
	assert.Equal(t, optmodel.ZoneID(1), id)
}

func TestDemandDirectionalAndDefaultsToZero(t *testing.T) {
	zones := []optmodel.Zone{{ID: 1, Polygon: square(0, 0, 1, 1)}, {ID: 2, Polygon: square(2, 2, 3, 3)}}
	links := []optmodel.DemandLink{{OriginZoneID: 1, DestZoneID: 2, Weight: 100}}
	g := New(zones, links)

	assert.Equal(t, 100.0, g.Demand(1, 2))
	assert.Equal(t, 0.0, g.Demand(2, 1))
}

func TestDemandLinkDanglingEndpointDropped(t *testing.T) {
	zones := []optmodel.Zone{{ID: 1, Polygon: square(0, 0, 1, 1)}}
	links := []optmodel.DemandLink{{OriginZoneID: 1, DestZoneID: 99, Weight: 5}}
	g := New(zones, links)
	assert.Equal(t, 0.0, g.Demand(1, 99))
	_, ok := g.LinkBetweenZones(1, 99)
	assert.False(t, ok)
}

func TestDemandBetweenCoords(t *testing.T) {
	zones := []optmodel.Zone{{ID: 1, Polygon: square(0, 0, 1, 1)}, {ID: 2, Polygon: square(2, 2, 3, 3)}}
	links := []optmodel.DemandLink{{OriginZoneID: 1, DestZoneID: 2, Weight: 42}}
	g := New(zones, links)
	assert.Equal(t, 42.0, g.DemandBetweenCoords(0.5, 0.5, 2.5, 2.5))
	assert.Equal(t, 0.0, g.DemandBetweenCoords(0.5, 0.5, 50, 50))
}
