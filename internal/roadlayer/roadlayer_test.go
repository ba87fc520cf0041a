package roadlayer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// A tiny straight-line road: nodes 1-2-3 at (0,0), (0.01,0), (0.02,0).
func straightLine() *RoadLayer {
	nodes := []optmodel.RoadNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 0.01, Lat: 0},
		{ID: 3, Lon: 0.02, Lat: 0},
	}
	edges := []optmodel.RoadEdge{
		{ID: 10, SourceID: 1, TargetID: 2, Geometry: [][2]float64{{0, 0}, {0.01, 0}}},
		{ID: 11, SourceID: 2, TargetID: 3, Geometry: [][2]float64{{0.01, 0}, {0.02, 0}}},
		{ID: 12, SourceID: 2, TargetID: 1, Geometry: [][2]float64{{0.01, 0}, {0, 0}}},
		{ID: 13, SourceID: 3, TargetID: 2, Geometry: [][2]float64{{0.02, 0}, {0.01, 0}}},
	}
	rl, err := New(nodes, edges)
	if err != nil {
		panic(err)
	}
	return rl
}

func TestNewRejectsEmptyNetwork(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}

func TestNearestNode(t *testing.T) {
	rl := straightLine()
	id := rl.NearestNode(0, 0.011)
	assert.Equal(t, optmodel.RoadNodeID(2), id)
}

func TestRoadDistanceSameNode(t *testing.T) {
	rl := straightLine()
	dist, path := rl.RoadDistance(0, 0, 0, 0.0001)
	assert.Equal(t, 0.0, dist)
	assert.Equal(t, []optmodel.RoadNodeID{1}, path)
}

func TestRoadDistanceShortestPath(t *testing.T) {
	rl := straightLine()
	dist, path := rl.RoadDistance(0, 0, 0, 0.02)
	assert.Greater(t, dist, 0.0)
	assert.Equal(t, []optmodel.RoadNodeID{1, 2, 3}, path)
}

func TestRoadDistanceNoPath(t *testing.T) {
	nodes := []optmodel.RoadNode{{ID: 1, Lon: 0, Lat: 0}, {ID: 2, Lon: 1, Lat: 1}}
	rl, err := New(nodes, nil)
	require.NoError(t, err)
	dist, path := rl.RoadDistance(0, 0, 1, 1)
	assert.True(t, math.IsInf(dist, 1))
	assert.Nil(t, path)
}

func TestDanglingEdgeEndpointDropped(t *testing.T) {
	nodes := []optmodel.RoadNode{{ID: 1, Lon: 0, Lat: 0}}
	edges := []optmodel.RoadEdge{{ID: 1, SourceID: 1, TargetID: 99, Geometry: [][2]float64{{0, 0}, {1, 1}}}}
	rl, err := New(nodes, edges)
	require.NoError(t, err)
	_, ok := rl.GetNode(99)
	assert.False(t, ok)
}
