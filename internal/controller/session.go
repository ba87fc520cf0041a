// Package controller drives per-route optimization rounds over a WebSocket
// connection: a round-robin scheduler across a session's routes, ACO calls
// per round, convergence tracking, and streaming progress events.
package controller

import (
	"fmt"
	"math/rand"

	"github.com/transit-works/route-optimizer/internal/aco"
	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/geojson"
	"github.com/transit-works/route-optimizer/internal/ga"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// ProgressEvent is the JSON shape emitted once per round.
type ProgressEvent struct {
	Message            string              `json:"message"`
	Iteration          int                 `json:"iteration"`
	TotalIterations    int                 `json:"total_iterations"`
	CurrentRoute       string              `json:"current_route,omitempty"`
	CurrentRouteIndex  int                 `json:"current_route_index"`
	RoutesCount        int                 `json:"routes_count"`
	AllRouteIDs        []string            `json:"all_route_ids"`
	RouteIteration     int                 `json:"route_iteration,omitempty"`
	IterationsPerRoute int                 `json:"iterations_per_route"`
	ConvergedRoutes    []bool              `json:"converged_routes"`
	OptimizeAttempts   []int               `json:"optimize_attempts"`

	GeoJSON    *geojson.FeatureCollection `json:"geojson,omitempty"`
	Evaluation []RouteScore               `json:"evaluation,omitempty"`

	Converged        bool   `json:"converged,omitempty"`
	ConvergedRoute   string `json:"converged_route,omitempty"`
	ConvergedRouteIx int    `json:"converged_route_index,omitempty"`
	Warning          string `json:"warning,omitempty"`
	NoopRouteIDs     []string `json:"noop_route_ids,omitempty"`

	AllConverged     bool `json:"all_converged,omitempty"`
	EarlyCompletion  bool `json:"early_completion,omitempty"`

	Error string `json:"error,omitempty"`
}

// RouteScore pairs a route id with the score it was just evaluated at,
// serialized as a JSON [id, score] tuple.
type RouteScore struct {
	RouteID string
	Score   float64
}

// MarshalJSON renders RouteScore as a 2-element array to match the
// [[route_id, score], ...] evaluation shape.
func (r RouteScore) MarshalJSON() ([]byte, error) {
	return marshalPair(r.RouteID, r.Score)
}

// Session owns one optimization run over a fixed set of routes, holding a
// private mutable copy of the transit network so concurrent sessions never
// race over route state.
type Session struct {
	base *city.City

	routeIDs           []string
	iterationsPerRoute int
	totalIterations    int
	iterationsDone     int

	converged        []bool
	attempts         []int
	routeIterations  []int
	noopRouteIDs     []string
	dirtyRouteIDs    []string
	dirtySet         map[string]bool

	params   optmodel.ACOParams
	useGA    bool
	gaConfig ga.Config

	rng *rand.Rand
}

// NewSession builds a Session over routeIDs, evaluated against base with a
// fixed ACOParams. seed makes ant/gene randomness reproducible.
//
// base's grid and road layers are read-only and shared across every session
// built from the same city. Its transit layer is cloned into a private
// working copy so that this session's route mutations never race with, or
// leak into, any other session's view of the network.
func NewSession(base *city.City, routeIDs []string, params optmodel.ACOParams, iterationsPerRoute int, seed int64) *Session {
	private := &city.City{
		Name:    base.Name,
		Grid:    base.Grid,
		Road:    base.Road,
		Transit: base.Transit.Clone(),
	}
	return &Session{
		base:               private,
		routeIDs:           append([]string(nil), routeIDs...),
		iterationsPerRoute: iterationsPerRoute,
		totalIterations:    iterationsPerRoute * len(routeIDs),
		converged:          make([]bool, len(routeIDs)),
		attempts:           make([]int, len(routeIDs)),
		routeIterations:    make([]int, len(routeIDs)),
		params:             params,
		dirtySet:           make(map[string]bool),
		rng:                rand.New(rand.NewSource(seed)),
	}
}

// UseGA switches the session to tune ACOParams per route via the GA before
// each ACO call, instead of reusing a single fixed ACOParams.
func (s *Session) UseGA(cfg ga.Config) {
	s.useGA = true
	s.gaConfig = cfg
}

// Done reports whether the session has nothing further to run: either
// every route has converged, or the iteration budget is exhausted.
func (s *Session) Done() bool {
	if s.iterationsDone >= s.totalIterations {
		return true
	}
	for _, c := range s.converged {
		if !c {
			return false
		}
	}
	return true
}

// nextNonConverged finds the next unconverged route index at or after
// start, wrapping once. Returns (-1, false) if none remain.
func (s *Session) nextNonConverged(start int) (int, bool) {
	for i := start; i < len(s.routeIDs); i++ {
		if !s.converged[i] {
			return i, true
		}
	}
	for i := 0; i < start; i++ {
		if !s.converged[i] {
			return i, true
		}
	}
	return -1, false
}

// Step runs exactly one round: selects the next route, calls ACO (or GA+ACO),
// and returns the progress event for that round. ok is false once the
// session has terminated (caller must stop calling Step).
func (s *Session) Step() (ProgressEvent, bool) {
	if s.Done() {
		return s.terminalEvent(), false
	}

	i := s.iterationsDone % len(s.routeIDs)
	if s.converged[i] {
		next, found := s.nextNonConverged(i)
		if !found {
			return s.terminalEvent(), false
		}
		i = next
	}

	routeID := s.routeIDs[i]
	route, ok := s.base.Transit.GetRoute(routeID)
	if !ok {
		s.converged[i] = true
		s.iterationsDone++
		return s.notFoundEvent(routeID, i), true
	}

	s.attempts[i]++
	s.routeIterations[i]++
	params := s.params
	if s.useGA {
		result := ga.Tune(s.gaConfig, route, s.base, s.rng.Int63())
		params = result.Params
	}

	result, improved := aco.Run(params, route, s.base, s.rng.Int63())
	event := s.applyResult(i, routeID, result, improved)
	s.iterationsDone++
	return event, true
}

func (s *Session) applyResult(i int, routeID string, result aco.Result, improved bool) ProgressEvent {
	if !improved {
		if s.routeIterations[i] == 1 {
			s.noopRouteIDs = append(s.noopRouteIDs, routeID)
		}
		s.converged[i] = true
		return ProgressEvent{
			Message:            convergedMessage(routeID),
			Warning:            convergedWarning(routeID),
			Iteration:          s.iterationsDone + 1,
			TotalIterations:    s.totalIterations,
			CurrentRoute:       routeID,
			CurrentRouteIndex:  i,
			RoutesCount:        len(s.routeIDs),
			AllRouteIDs:        s.routeIDs,
			RouteIteration:     s.routeIterations[i],
			IterationsPerRoute: s.iterationsPerRoute,
			ConvergedRoutes:    append([]bool(nil), s.converged...),
			OptimizeAttempts:   append([]int(nil), s.attempts...),
			Converged:          true,
			ConvergedRoute:     routeID,
			ConvergedRouteIx:   i,
			NoopRouteIDs:       append([]string(nil), s.noopRouteIDs...),
		}
	}

	s.base.Transit.ReplaceRoute(result.Route)
	if !s.dirtySet[routeID] {
		s.dirtySet[routeID] = true
		s.dirtyRouteIDs = append(s.dirtyRouteIDs, routeID)
	}

	fc := geojson.Collection(s.base.Transit, s.dirtyRouteIDs)
	return ProgressEvent{
		Message:            optimizedMessage(routeID, i, len(s.routeIDs), s.routeIterations[i], s.iterationsPerRoute),
		Iteration:          s.iterationsDone + 1,
		TotalIterations:    s.totalIterations,
		CurrentRoute:       routeID,
		CurrentRouteIndex:  i,
		RoutesCount:        len(s.routeIDs),
		AllRouteIDs:        s.routeIDs,
		RouteIteration:     s.routeIterations[i],
		IterationsPerRoute: s.iterationsPerRoute,
		ConvergedRoutes:    append([]bool(nil), s.converged...),
		OptimizeAttempts:   append([]int(nil), s.attempts...),
		GeoJSON:            &fc,
		Evaluation:         []RouteScore{{RouteID: routeID, Score: result.Eval.Score}},
	}
}

func (s *Session) notFoundEvent(routeID string, i int) ProgressEvent {
	return ProgressEvent{
		Message:           "route not found",
		Iteration:         s.iterationsDone + 1,
		TotalIterations:   s.totalIterations,
		CurrentRoute:      routeID,
		CurrentRouteIndex: i,
		RoutesCount:       len(s.routeIDs),
		AllRouteIDs:       s.routeIDs,
		ConvergedRoutes:   append([]bool(nil), s.converged...),
		OptimizeAttempts:  append([]int(nil), s.attempts...),
	}
}

func (s *Session) terminalEvent() ProgressEvent {
	allConverged := true
	for _, c := range s.converged {
		if !c {
			allConverged = false
			break
		}
	}
	return ProgressEvent{
		Message:            "All routes have converged to optimal solutions",
		Iteration:          s.totalIterations,
		TotalIterations:    s.totalIterations,
		RoutesCount:        len(s.routeIDs),
		AllRouteIDs:        s.routeIDs,
		IterationsPerRoute: s.iterationsPerRoute,
		ConvergedRoutes:    append([]bool(nil), s.converged...),
		OptimizeAttempts:   append([]int(nil), s.attempts...),
		AllConverged:       allConverged,
		EarlyCompletion:    allConverged && s.iterationsDone < s.totalIterations,
		NoopRouteIDs:       append([]string(nil), s.noopRouteIDs...),
	}
}

func convergedMessage(routeID string) string {
	return "Route " + routeID + " has converged to optimal solution"
}

func convergedWarning(routeID string) string {
	return "Route " + routeID + " reached optimal solution"
}

func optimizedMessage(routeID string, idx, count, routeIteration, iterationsPerRoute int) string {
	return fmt.Sprintf("Optimized route %s (route %d/%d, iteration %d/%d)",
		routeID, idx+1, count, routeIteration, iterationsPerRoute)
}
