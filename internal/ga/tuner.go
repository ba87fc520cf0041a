package ga

import (
	"math/rand"
	"sort"

	"github.com/transit-works/route-optimizer/internal/aco"
	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// noopFitness is the fitness assigned when a candidate's ACO run reports
// no improvement ("converged" is not a failure, but it must still be
// rankable).
const noopFitness = 0.01

// Result is the best ACOParams found, with its fitness.
type Result struct {
	Params  optmodel.ACOParams
	Fitness float64
}

// Tune searches for ACOParams maximizing run_aco's returned score for
// route, within the given city. seed64 makes the search reproducible.
func Tune(cfg Config, route optmodel.TransitRoute, c *city.City, seed64 int64) Result {
	rng := rand.New(rand.NewSource(seed64))

	population := make([]Chromosome, cfg.PopulationSize)
	for i := range population {
		population[i] = Chromosome{Params: randomParams(rng)}
	}
	evaluateAll(population, route, c, seed64, rng)
	sortByFitnessDesc(population)

	best := population[0]

	for gen := 0; gen < cfg.MaxGenerations; gen++ {
		next := make([]Chromosome, 0, cfg.PopulationSize)
		for i := 0; i < cfg.ElitismCount && i < len(population); i++ {
			next = append(next, population[i])
		}
		for len(next) < cfg.PopulationSize {
			parent1 := tournamentSelect(population, cfg.TournamentSize, rng)
			parent2 := tournamentSelect(population, cfg.TournamentSize, rng)

			var child Chromosome
			if rng.Float64() < cfg.CrossoverRate {
				child = crossover(parent1, parent2, rng)
			} else {
				child = parent1
			}
			child = mutate(child, cfg, rng)
			next = append(next, child)
		}
		population = next
		evaluateAll(population, route, c, seed64, rng)
		sortByFitnessDesc(population)

		if population[0].fitnessValue() > best.fitnessValue() {
			best = population[0]
		}
	}

	return Result{Params: best.Params, Fitness: best.fitnessValue()}
}

// evaluateAll re-evaluates only chromosomes whose cached fitness is nil,
// reusing fitness for unchanged individuals (elites, tournament copies
// that survived untouched).
func evaluateAll(pop []Chromosome, route optmodel.TransitRoute, c *city.City, seed64 int64, rng *rand.Rand) {
	for i := range pop {
		if pop[i].Fitness != nil {
			continue
		}
		fitness := noopFitness
		if res, ok := aco.Run(pop[i].Params, route, c, rng.Int63()); ok {
			fitness = res.Eval.Score
		}
		f := fitness
		pop[i].Fitness = &f
	}
}

func sortByFitnessDesc(pop []Chromosome) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].fitnessValue() > pop[j].fitnessValue()
	})
}
