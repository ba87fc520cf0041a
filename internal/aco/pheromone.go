package aco

import (
	"sync"

	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// PheromoneMap holds (from, to) -> pheromone level for the lifetime of a
// single ACO run. Unrecorded pairs read as the shared initial value, which
// itself decays alongside recorded entries (see Decay).
type PheromoneMap struct {
	mu            sync.RWMutex
	values        map[edgeKey]float64
	initPheromone float64
	min, max      float64
	rho           float64
}

type edgeKey struct {
	from, to string
}

func NewPheromoneMap(params optmodel.ACOParams) *PheromoneMap {
	return &PheromoneMap{
		values:        make(map[edgeKey]float64),
		initPheromone: params.InitPheromone,
		min:           params.PheromoneMin,
		max:           params.PheromoneMax,
		rho:           params.Rho,
	}
}

func (p *PheromoneMap) clamp(v float64) float64 {
	if v < p.min {
		return p.min
	}
	if v > p.max {
		return p.max
	}
	return v
}

// Get returns the recorded pheromone level for (from, to), or the shared
// initial value if unrecorded.
func (p *PheromoneMap) Get(from, to string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[edgeKey{from, to}]; ok {
		return v
	}
	return p.initPheromone
}

// Deposit adds delta to the recorded pheromone level for (from, to),
// creating it from the shared initial value if unrecorded, then clamps.
func (p *PheromoneMap) Deposit(from, to string, delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := edgeKey{from, to}
	cur, ok := p.values[k]
	if !ok {
		cur = p.initPheromone
	}
	p.values[k] = p.clamp(cur + delta)
}

// Decay multiplies every recorded value, and the shared initial value
// itself, by (1 - rho), then clamps. Called once per generation, before
// deposit.
func (p *PheromoneMap) Decay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	factor := 1 - p.rho
	for k, v := range p.values {
		p.values[k] = p.clamp(v * factor)
	}
	p.initPheromone = p.clamp(p.initPheromone * factor)
}

// DepositRoute deposits score along every adjacent outbound stop pair of
// route.
func (p *PheromoneMap) DepositRoute(outbound []string, score float64) {
	for i := 0; i+1 < len(outbound); i++ {
		p.Deposit(outbound[i], outbound[i+1], score)
	}
}

// HeuristicCache memoizes (from, to) -> heuristic score for one ACO run.
type HeuristicCache struct {
	mu     sync.Mutex
	values map[edgeKey]float64
}

func NewHeuristicCache() *HeuristicCache {
	return &HeuristicCache{values: make(map[edgeKey]float64)}
}

func (h *HeuristicCache) getOrCompute(from, to string, compute func() float64) float64 {
	k := edgeKey{from, to}
	h.mu.Lock()
	if v, ok := h.values[k]; ok {
		h.mu.Unlock()
		return v
	}
	h.mu.Unlock()

	v := compute()

	h.mu.Lock()
	h.values[k] = v
	h.mu.Unlock()
	return v
}
