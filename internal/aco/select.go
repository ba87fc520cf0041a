package aco

import (
	"math"
	"math/rand"

	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/geo"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

const (
	bearingToleranceDegrees = 110.0
	radiusStepMeters        = 250.0
	radiusGiveUpMeters      = 1000.0
)

// candidateStops forces closure onto last once curr is close enough,
// otherwise proposes stops within radius of curr that make progress
// toward last.
func candidateStops(params optmodel.ACOParams, curr, last optmodel.TransitStop, c *city.City, radius float64) []optmodel.TransitStop {
	if d, _ := c.Road.RoadDistance(curr.Lat, curr.Lon, last.Lat, last.Lon); d < params.AvgStopDist {
		return []optmodel.TransitStop{last}
	}

	env := geo.EnvelopeAround(geo.Point{Lon: curr.Lon, Lat: curr.Lat}, radius)
	candidates := c.Transit.StopsInEnvelope(env)

	out := make([]optmodel.TransitStop, 0, len(candidates))
	for _, s := range candidates {
		if geo.Haversine(curr.Lat, curr.Lon, s.Lat, s.Lon) < params.MinStopDist {
			continue
		}
		bearingToCandidate := geo.Bearing(curr.Lat, curr.Lon, s.Lat, s.Lon)
		bearingCandidateToLast := geo.Bearing(s.Lat, s.Lon, last.Lat, last.Lon)
		if geo.BearingDiff(bearingToCandidate, bearingCandidateToLast) < bearingToleranceDegrees {
			out = append(out, s)
		}
	}
	return out
}

// selectNextStop samples one unvisited candidate with probability
// proportional to heuristic(curr, c)^alpha * pheromone(curr, c)^beta.
func selectNextStop(params optmodel.ACOParams, curr optmodel.TransitStop, candidates []optmodel.TransitStop, visited map[string]bool, c *city.City, ph *PheromoneMap, hc *HeuristicCache, rng *rand.Rand) (optmodel.TransitStop, bool) {
	type weighted struct {
		stop   optmodel.TransitStop
		weight float64
	}
	var choices []weighted
	total := 0.0
	for _, cand := range candidates {
		if visited[cand.ID] {
			continue
		}
		h := Heuristic(curr, cand, c, hc)
		p := ph.Get(curr.ID, cand.ID)
		w := math.Pow(h, params.Alpha) * math.Pow(p, params.Beta)
		if w <= 0 || math.IsNaN(w) {
			continue
		}
		choices = append(choices, weighted{cand, w})
		total += w
	}
	if len(choices) == 0 || total <= 0 {
		return optmodel.TransitStop{}, false
	}
	r := rng.Float64() * total
	acc := 0.0
	for _, ch := range choices {
		acc += ch.weight
		if r <= acc {
			return ch.stop, true
		}
	}
	return choices[len(choices)-1].stop, true
}

// rebuildState names the states of the per-ant route-rebuild state machine.
type rebuildState int

const (
	stateExtending rebuildState = iota
	stateWidenRadius
	stateClosed
	stateFailed
)

// rebuildRoute attempts one ant's rebuild of seed's outbound sequence,
// preserving the first/last anchors and seed's inbound sequence unchanged.
// Returns (route, true) only on a Closed rebuild.
func rebuildRoute(params optmodel.ACOParams, seed optmodel.TransitRoute, c *city.City, ph *PheromoneMap, hc *HeuristicCache, rng *rand.Rand) (optmodel.TransitRoute, bool) {
	if len(seed.Outbound) < 2 {
		return optmodel.TransitRoute{}, false
	}
	firstID, lastID := seed.Outbound[0], seed.Outbound[len(seed.Outbound)-1]
	first, ok := c.Transit.StopByID(firstID)
	if !ok {
		return optmodel.TransitRoute{}, false
	}
	last, ok := c.Transit.StopByID(lastID)
	if !ok {
		return optmodel.TransitRoute{}, false
	}

	newStops := []string{first.ID}
	visited := map[string]bool{first.ID: true}
	radius := params.MaxStopDist
	curr := first
	state := stateExtending

	for {
		if len(newStops) >= params.MaxRouteLen {
			state = stateFailed
			break
		}
		candidates := candidateStops(params, curr, last, c, radius)
		next, found := selectNextStop(params, curr, candidates, visited, c, ph, hc, rng)
		if found {
			newStops = append(newStops, next.ID)
			visited[next.ID] = true
			curr = next
			radius = params.MaxStopDist
			state = stateExtending
			if next.ID == last.ID {
				state = stateClosed
				break
			}
			continue
		}

		state = stateWidenRadius
		if radius > radiusGiveUpMeters {
			state = stateFailed
			break
		}
		radius += radiusStepMeters
	}

	if state != stateClosed {
		return optmodel.TransitRoute{}, false
	}
	if newStops[len(newStops)-1] != last.ID {
		return optmodel.TransitRoute{}, false
	}

	return optmodel.TransitRoute{
		ID:       seed.ID,
		Type:     seed.Type,
		Outbound: newStops,
		Inbound:  append([]string(nil), seed.Inbound...),
	}, true
}
