// Package ga implements the outer hyperparameter tuner: a genetic algorithm
// over ACOParams chromosomes, whose fitness is the score a full ACO run
// achieves with those parameters.
package ga

import (
	"math/rand"

	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// Chromosome wraps an ACOParams candidate with its cached fitness.
// Fitness is invalidated (set to nil) by mutation and crossover; an
// unchanged chromosome reuses its cached value.
type Chromosome struct {
	Params  optmodel.ACOParams
	Fitness *float64
}

func (c Chromosome) fitnessValue() float64 {
	if c.Fitness == nil {
		return 0
	}
	return *c.Fitness
}

// Config holds the GA's tunables.
type Config struct {
	PopulationSize int
	MaxGenerations int
	MutationRate   float64
	CrossoverRate  float64
	ElitismCount   int
	TournamentSize int
}

func DefaultConfig() Config {
	return Config{
		PopulationSize: 20,
		MaxGenerations: 30,
		MutationRate:   0.1,
		CrossoverRate:  0.7,
		ElitismCount:   2,
		TournamentSize: 3,
	}
}

// randomRange returns a uniform float64 in [lo, hi).
func randomRange(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func randomIntRange(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo)
}

// randomParams draws a chromosome uniformly from fixed initialization
// ranges, separate from the clamp bounds enforced during mutation. Each
// gene is drawn independently, so cross-gene invariants (for example
// InitPheromone <= PheromoneMax) are not guaranteed here.
func randomParams(rng *rand.Rand) optmodel.ACOParams {
	return optmodel.ACOParams{
		Alpha:           randomRange(rng, 1.0, 5.0),
		Beta:            randomRange(rng, 1.0, 5.0),
		Rho:             randomRange(rng, 0.05, 0.5),
		Q0:              randomRange(rng, 0.5, 1.0),
		NumAnt:          randomIntRange(rng, 5, 20),
		MaxGen:          randomIntRange(rng, 10, 50),
		PheromoneMax:    randomRange(rng, 20.0, 50.0),
		PheromoneMin:    randomRange(rng, 1.0, 10.0),
		InitPheromone:   randomRange(rng, 10.0, 30.0),
		BusCapacity:     randomIntRange(rng, 30, 70),
		MinRouteLen:     randomIntRange(rng, 3, 10),
		MaxRouteLen:     randomIntRange(rng, 50, 100),
		MinStopDist:     randomRange(rng, 50.0, 150.0),
		MaxStopDist:     randomRange(rng, 300.0, 700.0),
		MaxNonlinearity: randomRange(rng, 1.5, 3.5),
		AvgStopDist:     randomRange(rng, 150.0, 300.0),
	}
}
