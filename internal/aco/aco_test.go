package aco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/gridlayer"
	"github.com/transit-works/route-optimizer/internal/optmodel"
	"github.com/transit-works/route-optimizer/internal/roadlayer"
	"github.com/transit-works/route-optimizer/internal/transitlayer"
)

// tinyDeterministicCity builds the S1 scenario: two zones with a demand
// link, three stops on a straight road, A/B/C evenly spaced.
func tinyDeterministicCity(t *testing.T) *city.City {
	t.Helper()
	zones := []optmodel.Zone{
		{ID: 1, Polygon: [][2]float64{{-0.005, -0.005}, {0.005, -0.005}, {0.005, 0.005}, {-0.005, 0.005}, {-0.005, -0.005}}},
		{ID: 2, Polygon: [][2]float64{{0.015, -0.005}, {0.025, -0.005}, {0.025, 0.005}, {0.015, 0.005}, {0.015, -0.005}}},
	}
	links := []optmodel.DemandLink{{OriginZoneID: 1, DestZoneID: 2, Weight: 100}}
	grid := gridlayer.New(zones, links)

	nodes := []optmodel.RoadNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 0.01, Lat: 0},
		{ID: 3, Lon: 0.02, Lat: 0},
	}
	edges := []optmodel.RoadEdge{
		{ID: 1, SourceID: 1, TargetID: 2, Geometry: [][2]float64{{0, 0}, {0.01, 0}}},
		{ID: 2, SourceID: 2, TargetID: 3, Geometry: [][2]float64{{0.01, 0}, {0.02, 0}}},
		{ID: 3, SourceID: 2, TargetID: 1, Geometry: [][2]float64{{0.01, 0}, {0, 0}}},
		{ID: 4, SourceID: 3, TargetID: 2, Geometry: [][2]float64{{0.02, 0}, {0.01, 0}}},
	}
	road, err := roadlayer.New(nodes, edges)
	require.NoError(t, err)

	catalogue := map[string]optmodel.TransitStop{
		"A": {ID: "A", Lon: 0, Lat: 0},
		"B": {ID: "B", Lon: 0.01, Lat: 0},
		"C": {ID: "C", Lon: 0.02, Lat: 0},
	}
	routes := []optmodel.TransitRoute{
		{ID: "route1", Type: optmodel.RouteBus, Outbound: []string{"A", "B", "C"}, Inbound: []string{"C", "B", "A"}},
	}
	transit := transitlayer.New(routes, catalogue)

	return &city.City{Name: "tiny", Grid: grid, Road: road, Transit: transit}
}

func TestS1AlreadyOptimalReturnsNoImprovement(t *testing.T) {
	c := tinyDeterministicCity(t)
	route, _ := c.Transit.GetRoute("route1")
	params := optmodel.DefaultACOParams()

	_, improved := Run(params, route, c, 0)
	assert.False(t, improved)
}

func TestRunIgnoresNonBusRoutes(t *testing.T) {
	c := tinyDeterministicCity(t)
	route, _ := c.Transit.GetRoute("route1")
	route.Type = optmodel.RouteRail
	params := optmodel.DefaultACOParams()

	_, improved := Run(params, route, c, 0)
	assert.False(t, improved)
}

func TestAnchorPreservationOnImprovement(t *testing.T) {
	c := tinyDeterministicCity(t)
	// add a detour stop D far off the straight line between A and C
	c.Transit.AddStop(optmodel.TransitStop{ID: "D", Lon: 0.01, Lat: 0.02}, "route1")
	route, _ := c.Transit.GetRoute("route1")
	route.Outbound = []string{"A", "D", "C"}
	c.Transit.ReplaceRoute(route)
	route, _ = c.Transit.GetRoute("route1")

	params := optmodel.DefaultACOParams()
	res, improved := Run(params, route, c, 1)
	if improved {
		assert.Equal(t, "A", res.Route.Outbound[0])
		assert.Equal(t, "C", res.Route.Outbound[len(res.Route.Outbound)-1])
		assert.Equal(t, route.Inbound, res.Route.Inbound)
	}
}

func TestEvaluateScoreNonNegativeAndPunishmentClamped(t *testing.T) {
	c := tinyDeterministicCity(t)
	eval := Evaluate(optmodel.DefaultACOParams(), []string{"A", "B", "C"}, c)
	assert.GreaterOrEqual(t, eval.Score, 0.0)
	assert.LessOrEqual(t, eval.Punishment, 1.0)
}

func TestHeuristicMemoizedValueIsStable(t *testing.T) {
	c := tinyDeterministicCity(t)
	a, _ := c.Transit.StopByID("A")
	b, _ := c.Transit.StopByID("B")
	params := optmodel.DefaultACOParams()
	hc := NewHeuristicCache()
	h1 := Heuristic(a, b, c, hc)
	h2 := Heuristic(a, b, c, hc) // memoized, must be stable
	assert.Equal(t, h1, h2)
	_ = params
}

func TestPheromoneClampingAndEvaporation(t *testing.T) {
	params := optmodel.DefaultACOParams()
	ph := NewPheromoneMap(params)
	ph.Deposit("A", "B", 1000)
	assert.LessOrEqual(t, ph.Get("A", "B"), params.PheromoneMax)

	before := ph.Get("A", "B")
	ph.Decay()
	after := ph.Get("A", "B")
	assert.Less(t, after, before)
}

func TestPheromoneUnrecordedPairReadsInitialValue(t *testing.T) {
	params := optmodel.DefaultACOParams()
	ph := NewPheromoneMap(params)
	assert.Equal(t, params.InitPheromone, ph.Get("X", "Y"))
}
