package aco

import (
	"math"

	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/geo"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

const (
	punishmentNonlinearity = 0.3
	punishmentRouteLen     = 0.3
	punishmentStopDist     = 0.4
)

// Evaluate scores a candidate route against the city it belongs to:
// nonlinearity penalizes detours against the road network, demand captured
// rewards connecting high-O-D zones, and a set of punishment flags (each
// applied at most once, clamped to a total of 1.0) discount the raw score.
func Evaluate(params optmodel.ACOParams, outbound []string, c *city.City) optmodel.RouteEvaluation {
	stops := resolveStops(outbound, c)
	if len(stops) < 2 {
		return optmodel.RouteEvaluation{Score: 0, Punishment: 0}
	}

	roadDist := 0.0
	encountered := make(map[optmodel.RoadNodeID]bool)
	duplicateNodes := 0
	for i := 0; i+1 < len(stops); i++ {
		d, path := c.Road.RoadDistance(stops[i].Lat, stops[i].Lon, stops[i+1].Lat, stops[i+1].Lon)
		roadDist += d
		for _, nodeID := range path {
			if encountered[nodeID] {
				duplicateNodes++
			}
			encountered[nodeID] = true
		}
	}
	_ = duplicateNodes // counted only; neither scored nor reported

	first, last := stops[0], stops[len(stops)-1]
	straight := geo.Haversine(first.Lat, first.Lon, last.Lat, last.Lon)

	var nonlinearity float64
	if straight == 0 {
		nonlinearity = math.Inf(1)
	} else {
		nonlinearity = roadDist / straight
	}

	demand := demandCaptured(stops, c)

	var score float64
	if roadDist > 0 && !math.IsInf(nonlinearity, 1) && nonlinearity != 0 {
		score = demand / ((roadDist / 1000.0) * nonlinearity)
	}

	punishment := 0.0
	if nonlinearity > params.MaxNonlinearity {
		punishment += punishmentNonlinearity
	}
	if len(stops) < params.MinRouteLen {
		punishment += punishmentRouteLen
	}
	if len(stops) > params.MaxRouteLen {
		punishment += punishmentRouteLen
	}
	for i := 0; i+1 < len(stops); i++ {
		d := geo.Haversine(stops[i].Lat, stops[i].Lon, stops[i+1].Lat, stops[i+1].Lon)
		if d < params.MinStopDist || d > params.MaxStopDist {
			punishment += punishmentStopDist
			break
		}
	}
	if punishment > 1.0 {
		punishment = 1.0
	}

	return optmodel.RouteEvaluation{Score: score * (1 - punishment), Punishment: punishment}
}

func resolveStops(outbound []string, c *city.City) []optmodel.TransitStop {
	stops := make([]optmodel.TransitStop, 0, len(outbound))
	for _, id := range outbound {
		if s, ok := c.Transit.StopByID(id); ok {
			stops = append(stops, s)
		}
	}
	return stops
}

// demandCaptured builds the ordered, deduplicated list of zones touched by
// stops (in visit order) and sums demand(z_i, z_j) + demand(z_j, z_i) over
// every i < j.
func demandCaptured(stops []optmodel.TransitStop, c *city.City) float64 {
	var zones []optmodel.ZoneID
	seen := make(map[optmodel.ZoneID]bool)
	for _, s := range stops {
		z, ok := c.Grid.FindNearestZone(s.Lat, s.Lon)
		if !ok || seen[z] {
			continue
		}
		seen[z] = true
		zones = append(zones, z)
	}

	total := 0.0
	for i := 0; i < len(zones); i++ {
		for j := i + 1; j < len(zones); j++ {
			total += c.Grid.Demand(zones[i], zones[j]) + c.Grid.Demand(zones[j], zones[i])
		}
	}
	return total
}

// Heuristic returns the memoized directional attractiveness of traveling
// from -> to:
// (demand(from,to) + demand(to,from) + 0.1) / (2 * road_distance(from,to)).
func Heuristic(from, to optmodel.TransitStop, c *city.City, cache *HeuristicCache) float64 {
	return cache.getOrCompute(from.ID, to.ID, func() float64 {
		roadDist, _ := c.Road.RoadDistance(from.Lat, from.Lon, to.Lat, to.Lon)
		if roadDist == 0 {
			roadDist = 1e-6
		}
		demandFwd := c.Grid.DemandBetweenCoords(from.Lat, from.Lon, to.Lat, to.Lon)
		demandRev := c.Grid.DemandBetweenCoords(to.Lat, to.Lon, from.Lat, from.Lon)
		return (demandFwd + demandRev + 0.1) / (2 * roadDist)
	})
}
