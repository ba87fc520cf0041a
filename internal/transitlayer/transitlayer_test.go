package transitlayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transit-works/route-optimizer/internal/geo"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

func catalogue() map[string]optmodel.TransitStop {
	return map[string]optmodel.TransitStop{
		"A": {ID: "A", Lon: 0, Lat: 0},
		"B": {ID: "B", Lon: 0.01, Lat: 0},
		"C": {ID: "C", Lon: 0.02, Lat: 0},
	}
}

func TestNewIndexesOnlyReferencedStops(t *testing.T) {
	routes := []optmodel.TransitRoute{{ID: "R1", Outbound: []string{"A", "B"}}}
	tl := New(routes, catalogue())
	_, ok := tl.StopByID("C")
	assert.False(t, ok)
	_, ok = tl.StopByID("A")
	assert.True(t, ok)
}

func TestRemoveStopEvictsWhenUnreferenced(t *testing.T) {
	routes := []optmodel.TransitRoute{{ID: "R1", Outbound: []string{"A", "B"}}}
	tl := New(routes, catalogue())
	tl.RemoveStop("B", "R1")
	_, ok := tl.StopByID("B")
	assert.False(t, ok)
	r, _ := tl.GetRoute("R1")
	assert.Equal(t, []string{"A"}, r.Outbound)
}

func TestRemoveStopKeepsIndexedIfReferencedElsewhere(t *testing.T) {
	routes := []optmodel.TransitRoute{
		{ID: "R1", Outbound: []string{"A", "B"}},
		{ID: "R2", Outbound: []string{"B", "C"}},
	}
	tl := New(routes, catalogue())
	tl.RemoveStop("B", "R1")
	_, ok := tl.StopByID("B")
	assert.True(t, ok)
}

func TestAddStopAppendsAndIndexesNewStop(t *testing.T) {
	routes := []optmodel.TransitRoute{{ID: "R1", Outbound: []string{"A"}}}
	tl := New(routes, catalogue())
	tl.AddStop(optmodel.TransitStop{ID: "B", Lon: 0.01, Lat: 0}, "R1")
	r, _ := tl.GetRoute("R1")
	assert.Equal(t, []string{"A", "B"}, r.Outbound)
	_, ok := tl.StopByID("B")
	assert.True(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	routes := []optmodel.TransitRoute{{ID: "R1", Outbound: []string{"A", "B"}}}
	tl := New(routes, catalogue())
	clone := tl.Clone()
	clone.RemoveStop("B", "R1")

	orig, _ := tl.GetRoute("R1")
	assert.Equal(t, []string{"A", "B"}, orig.Outbound)
	cloned, _ := clone.GetRoute("R1")
	assert.Equal(t, []string{"A"}, cloned.Outbound)
}

func TestStopsInEnvelopeNearestFirst(t *testing.T) {
	routes := []optmodel.TransitRoute{{ID: "R1", Outbound: []string{"A", "B", "C"}}}
	tl := New(routes, catalogue())
	env := geo.EnvelopeAround(geo.Point{Lon: 0.018, Lat: 0}, 5000)
	stops := tl.StopsInEnvelope(env)
	if assert.GreaterOrEqual(t, len(stops), 2) {
		assert.Equal(t, "C", stops[0].ID)
	}
}

func TestNonBusRouteUntouchedByClone(t *testing.T) {
	routes := []optmodel.TransitRoute{{ID: "R1", Type: optmodel.RouteRail, Outbound: []string{"A", "B"}, Inbound: []string{"B", "A"}}}
	tl := New(routes, catalogue())
	before, _ := tl.GetRoute("R1")
	clone := tl.Clone()
	after, _ := clone.GetRoute("R1")
	assert.Equal(t, before, after)
}
