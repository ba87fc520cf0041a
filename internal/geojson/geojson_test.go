package geojson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transit-works/route-optimizer/internal/optmodel"
	"github.com/transit-works/route-optimizer/internal/transitlayer"
)

func TestCollectionBuildsRouteAndStopFeatures(t *testing.T) {
	catalogue := map[string]optmodel.TransitStop{
		"A": {ID: "A", Lon: 0, Lat: 0, Name: "Stop A"},
		"B": {ID: "B", Lon: 0.01, Lat: 0, Name: "Stop B"},
	}
	routes := []optmodel.TransitRoute{
		{ID: "r1", Type: optmodel.RouteBus, Outbound: []string{"A", "B"}, Inbound: []string{"B", "A"}, ShortName: "1"},
	}
	layer := transitlayer.New(routes, catalogue)

	fc := Collection(layer, []string{"r1"})
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 3) // 1 route + 2 stops

	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Equal(t, "r1", fc.Features[0].Properties["route_id"])
	assert.Equal(t, "1", fc.Features[0].Properties["route_short_name"])

	assert.Equal(t, "Point", fc.Features[1].Geometry.Type)
	assert.Equal(t, "A", fc.Features[1].Properties["stop_id"])
}

func TestCollectionSkipsUnknownRoutes(t *testing.T) {
	layer := transitlayer.New(nil, map[string]optmodel.TransitStop{})
	fc := Collection(layer, []string{"missing"})
	assert.Empty(t, fc.Features)
}

func TestCollectionDeduplicatesSharedStops(t *testing.T) {
	catalogue := map[string]optmodel.TransitStop{
		"A": {ID: "A", Lon: 0, Lat: 0},
		"B": {ID: "B", Lon: 0.01, Lat: 0},
	}
	routes := []optmodel.TransitRoute{
		{ID: "r1", Type: optmodel.RouteBus, Outbound: []string{"A", "B"}, Inbound: []string{"B", "A"}},
		{ID: "r2", Type: optmodel.RouteBus, Outbound: []string{"B", "A"}, Inbound: []string{"A", "B"}},
	}
	layer := transitlayer.New(routes, catalogue)

	fc := Collection(layer, []string{"r1", "r2"})
	// 2 route lines + 2 distinct stops (not 4, since A and B are shared)
	assert.Len(t, fc.Features, 4)
}
