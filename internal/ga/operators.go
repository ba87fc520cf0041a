package ga

import (
	"math/rand"

	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// tournamentSelect picks the fittest of tournamentSize individuals drawn
// uniformly at random, ties going to the earliest-sampled candidate.
func tournamentSelect(pop []Chromosome, size int, rng *rand.Rand) Chromosome {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		challenger := pop[rng.Intn(len(pop))]
		if challenger.fitnessValue() > best.fitnessValue() {
			best = challenger
		}
	}
	return best
}

// crossover performs uniform per-gene crossover: each of the 16 genes is
// taken from parent1 or parent2 with equal probability. The child's
// fitness is invalidated.
func crossover(p1, p2 Chromosome, rng *rand.Rand) Chromosome {
	pick := func(a, b float64) float64 {
		if rng.Float64() < 0.5 {
			return a
		}
		return b
	}
	pickInt := func(a, b int) int {
		if rng.Float64() < 0.5 {
			return a
		}
		return b
	}
	a, b := p1.Params, p2.Params
	child := optmodel.ACOParams{
		Alpha:           pick(a.Alpha, b.Alpha),
		Beta:            pick(a.Beta, b.Beta),
		Rho:             pick(a.Rho, b.Rho),
		Q0:              pick(a.Q0, b.Q0),
		NumAnt:          pickInt(a.NumAnt, b.NumAnt),
		MaxGen:          pickInt(a.MaxGen, b.MaxGen),
		PheromoneMax:    pick(a.PheromoneMax, b.PheromoneMax),
		PheromoneMin:    pick(a.PheromoneMin, b.PheromoneMin),
		InitPheromone:   pick(a.InitPheromone, b.InitPheromone),
		BusCapacity:     pickInt(a.BusCapacity, b.BusCapacity),
		MinRouteLen:     pickInt(a.MinRouteLen, b.MinRouteLen),
		MaxRouteLen:     pickInt(a.MaxRouteLen, b.MaxRouteLen),
		MinStopDist:     pick(a.MinStopDist, b.MinStopDist),
		MaxStopDist:     pick(a.MaxStopDist, b.MaxStopDist),
		MaxNonlinearity: pick(a.MaxNonlinearity, b.MaxNonlinearity),
		AvgStopDist:     pick(a.AvgStopDist, b.AvgStopDist),
	}
	return Chromosome{Params: child, Fitness: nil}
}

func mutateFloat(rng *rand.Rand, v, delta, lo, hi float64) float64 {
	v += randomRange(rng, -delta, delta)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mutateInt(rng *rand.Rand, v, delta, lo, hi int) int {
	change := randomIntRange(rng, 0, delta+1)
	if rng.Intn(2) == 0 {
		v += change
	} else {
		v -= change
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mutate perturbs each gene independently with probability
// cfg.MutationRate, then re-establishes the cross-gene invariants by
// clamping dependent bounds against each other. Fitness is invalidated
// when any gene ends up changed; a chromosome that comes out identical
// keeps its cached fitness.
func mutate(c Chromosome, cfg Config, rng *rand.Rand) Chromosome {
	p := c.Params
	roll := func() bool { return rng.Float64() < cfg.MutationRate }

	if roll() {
		p.Alpha = mutateFloat(rng, p.Alpha, 0.5, 0.1, 10.0)
	}
	if roll() {
		p.Beta = mutateFloat(rng, p.Beta, 0.5, 0.1, 10.0)
	}
	if roll() {
		p.Rho = mutateFloat(rng, p.Rho, 0.05, 0.01, 0.99)
	}
	if roll() {
		p.Q0 = mutateFloat(rng, p.Q0, 0.1, 0.1, 1.0)
	}
	if roll() {
		p.NumAnt = mutateInt(rng, p.NumAnt, 5, 5, 100)
	}
	if roll() {
		p.MaxGen = mutateInt(rng, p.MaxGen, 10, 20, 500)
	}
	if roll() {
		p.PheromoneMax = mutateFloat(rng, p.PheromoneMax, 5, p.PheromoneMin+1.0, 100.0)
	}
	if roll() {
		p.PheromoneMin = mutateFloat(rng, p.PheromoneMin, 2, 0.1, p.PheromoneMax-1.0)
	}
	if roll() {
		p.InitPheromone = mutateFloat(rng, p.InitPheromone, 3, p.PheromoneMin, p.PheromoneMax)
	}
	if roll() {
		p.BusCapacity = mutateInt(rng, p.BusCapacity, 5, 10, 100)
	}
	if roll() {
		p.MinRouteLen = mutateInt(rng, p.MinRouteLen, 2, 2, p.MaxRouteLen-1)
	}
	if roll() {
		p.MaxRouteLen = mutateInt(rng, p.MaxRouteLen, 5, p.MinRouteLen+1, 200)
	}
	if roll() {
		p.MinStopDist = mutateFloat(rng, p.MinStopDist, 20, 50.0, p.MaxStopDist-50.0)
	}
	if roll() {
		p.MaxStopDist = mutateFloat(rng, p.MaxStopDist, 50, p.MinStopDist+50.0, 1000.0)
	}
	if roll() {
		p.MaxNonlinearity = mutateFloat(rng, p.MaxNonlinearity, 0.3, 1.1, 5.0)
	}
	if roll() {
		p.AvgStopDist = mutateFloat(rng, p.AvgStopDist, 20, 100.0, 500.0)
	}

	// Re-establish cross-gene invariants even for genes that weren't
	// individually rolled, so independent mutations can't leave the
	// chromosome in an inconsistent state.
	if p.InitPheromone < p.PheromoneMin {
		p.InitPheromone = p.PheromoneMin
	}
	if p.InitPheromone > p.PheromoneMax {
		p.InitPheromone = p.PheromoneMax
	}
	if p.MinStopDist+50 > p.MaxStopDist {
		p.MaxStopDist = p.MinStopDist + 50
	}
	if p.MinRouteLen >= p.MaxRouteLen {
		p.MaxRouteLen = p.MinRouteLen + 1
	}

	if p == c.Params {
		return Chromosome{Params: p, Fitness: c.Fitness}
	}
	return Chromosome{Params: p, Fitness: nil}
}
