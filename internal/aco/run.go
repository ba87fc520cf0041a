// Package aco implements the per-route ant colony optimization engine: the
// evaluate/heuristic scoring, candidate stop selection and per-ant rebuild
// state machine, and the generation loop that decays/deposits pheromone
// and adopts improving rebuilds.
package aco

import (
	"math/rand"

	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// Result is what Run returns on an improving run.
type Result struct {
	Route optmodel.TransitRoute
	Eval  optmodel.RouteEvaluation
}

// Run executes one full ACO optimization of seed against c. It returns
// (result, true) only if the best route found strictly improves on seed's
// initial score; otherwise it returns (Result{}, false) — this is a
// "converged, no improvement" signal, not an error.
//
// seed must be a Bus route; any other route type returns immediately with
// no improvement.
func Run(params optmodel.ACOParams, seed optmodel.TransitRoute, c *city.City, seed64 int64) (Result, bool) {
	if seed.Type != optmodel.RouteBus {
		return Result{}, false
	}

	rng := rand.New(rand.NewSource(seed64))
	ph := NewPheromoneMap(params)
	hc := NewHeuristicCache()

	initialEval := Evaluate(params, seed.Outbound, c)

	genBestRoute := optmodel.CloneRoute(seed)
	genBestEval := initialEval
	overallBestRoute := genBestRoute
	overallBestEval := genBestEval

	for gen := 0; gen < params.MaxGen; gen++ {
		ph.Decay()
		ph.DepositRoute(genBestRoute.Outbound, genBestEval.Score)

		genSeed := genBestRoute
		currBestRoute := genBestRoute
		currBestEval := genBestEval

		for ant := 0; ant < params.NumAnt; ant++ {
			candidate, ok := rebuildRoute(params, genSeed, c, ph, hc, rng)
			if !ok {
				continue
			}
			eval := Evaluate(params, candidate.Outbound, c)
			if eval.Score > currBestEval.Score {
				currBestRoute = candidate
				currBestEval = eval
			}
		}

		if currBestEval.Score > genBestEval.Score {
			genBestRoute = currBestRoute
			genBestEval = currBestEval
		}
		if genBestEval.Score > overallBestEval.Score {
			overallBestRoute = genBestRoute
			overallBestEval = genBestEval
		}
	}

	if overallBestEval.Score > initialEval.Score {
		return Result{Route: overallBestRoute, Eval: overallBestEval}, true
	}
	return Result{}, false
}
