// Package transitlayer holds the bus/rail/etc. route network: stops shared
// across routes with reference-counted spatial indexing (a stop is indexed
// only while at least one route references it).
package transitlayer

import (
	"sort"

	"github.com/transit-works/route-optimizer/internal/geo"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// TransitLayer holds the full set of routes plus a spatial index over
// every stop referenced by at least one route. It is mutable: sessions
// hold a private copy (via Clone) that they rewrite round by round.
type TransitLayer struct {
	routes   map[string]optmodel.TransitRoute
	routeIDs []string // insertion order

	stops    map[string]optmodel.TransitStop
	refCount map[string]int
}

// New builds a TransitLayer from routes and the full stop catalogue.
// Stops not referenced by any route's outbound or inbound sequence are
// not indexed.
func New(routes []optmodel.TransitRoute, stopCatalogue map[string]optmodel.TransitStop) *TransitLayer {
	t := &TransitLayer{
		routes:   make(map[string]optmodel.TransitRoute, len(routes)),
		stops:    make(map[string]optmodel.TransitStop),
		refCount: make(map[string]int),
	}
	for _, r := range routes {
		t.routes[r.ID] = r
		t.routeIDs = append(t.routeIDs, r.ID)
		for _, stopID := range append(append([]string(nil), r.Outbound...), r.Inbound...) {
			t.refStop(stopID, stopCatalogue)
		}
	}
	return t
}

func (t *TransitLayer) refStop(stopID string, catalogue map[string]optmodel.TransitStop) {
	if t.refCount[stopID] == 0 {
		if s, ok := catalogue[stopID]; ok {
			t.stops[stopID] = s
		}
	}
	t.refCount[stopID]++
}

// Clone returns a deep, independent copy suitable for a session's mutable
// working set.
func (t *TransitLayer) Clone() *TransitLayer {
	out := &TransitLayer{
		routes:   make(map[string]optmodel.TransitRoute, len(t.routes)),
		routeIDs: append([]string(nil), t.routeIDs...),
		stops:    make(map[string]optmodel.TransitStop, len(t.stops)),
		refCount: make(map[string]int, len(t.refCount)),
	}
	for id, r := range t.routes {
		out.routes[id] = optmodel.CloneRoute(r)
	}
	for id, s := range t.stops {
		out.stops[id] = s
	}
	for id, c := range t.refCount {
		out.refCount[id] = c
	}
	return out
}

// Routes returns every route, in insertion order.
func (t *TransitLayer) Routes() []optmodel.TransitRoute {
	out := make([]optmodel.TransitRoute, 0, len(t.routeIDs))
	for _, id := range t.routeIDs {
		out = append(out, t.routes[id])
	}
	return out
}

// GetRoute returns the route with the given id, if present.
func (t *TransitLayer) GetRoute(id string) (optmodel.TransitRoute, bool) {
	r, ok := t.routes[id]
	return r, ok
}

// ReplaceRoute overwrites the stored route (same id), evicting from the
// stop index any stop no longer referenced by any route. Stops the new
// route still references stay indexed. ReplaceRoute has no stop catalogue,
// so a stop id that is not already indexed is reference-counted but not
// added to the index.
func (t *TransitLayer) ReplaceRoute(r optmodel.TransitRoute) {
	old, existed := t.routes[r.ID]
	if !existed {
		t.routeIDs = append(t.routeIDs, r.ID)
	}
	t.routes[r.ID] = r
	for _, stopID := range append(append([]string(nil), r.Outbound...), r.Inbound...) {
		t.refCount[stopID]++
	}
	if existed {
		for _, stopID := range append(append([]string(nil), old.Outbound...), old.Inbound...) {
			t.unrefStop(stopID)
		}
	}
}

// Stops returns every indexed stop.
func (t *TransitLayer) Stops() []optmodel.TransitStop {
	out := make([]optmodel.TransitStop, 0, len(t.stops))
	for _, s := range t.stops {
		out = append(out, s)
	}
	return out
}

// StopByID returns the indexed stop with the given id, if referenced by
// any route.
func (t *TransitLayer) StopByID(id string) (optmodel.TransitStop, bool) {
	s, ok := t.stops[id]
	return s, ok
}

// AddStop appends stop to route's outbound sequence, inserting it into the
// spatial index only if it was not already referenced anywhere.
func (t *TransitLayer) AddStop(stop optmodel.TransitStop, routeID string) {
	r, ok := t.routes[routeID]
	if !ok {
		return
	}
	r.Outbound = append(r.Outbound, stop.ID)
	t.routes[routeID] = r
	if t.refCount[stop.ID] == 0 {
		t.stops[stop.ID] = stop
	}
	t.refCount[stop.ID]++
}

// RemoveStop removes all occurrences of stop from route's outbound
// sequence, then evicts the stop from the spatial index if no route
// anywhere still references it.
func (t *TransitLayer) RemoveStop(stopID string, routeID string) {
	r, ok := t.routes[routeID]
	if !ok {
		return
	}
	removed := 0
	filtered := r.Outbound[:0:0]
	for _, id := range r.Outbound {
		if id == stopID {
			removed++
			continue
		}
		filtered = append(filtered, id)
	}
	r.Outbound = filtered
	t.routes[routeID] = r
	for i := 0; i < removed; i++ {
		t.unrefStop(stopID)
	}
}

func (t *TransitLayer) unrefStop(stopID string) {
	if t.refCount[stopID] <= 0 {
		return
	}
	t.refCount[stopID]--
	if t.refCount[stopID] == 0 {
		delete(t.stops, stopID)
		delete(t.refCount, stopID)
	}
}

// StopsInEnvelope returns every indexed stop within env, nearest-first
// relative to env's centroid.
func (t *TransitLayer) StopsInEnvelope(env geo.Envelope) []optmodel.TransitStop {
	center := geo.Point{Lon: (env.MinLon + env.MaxLon) / 2, Lat: (env.MinLat + env.MaxLat) / 2}
	var candidates []optmodel.TransitStop
	for _, s := range t.stops {
		if env.Contains(geo.Point{Lon: s.Lon, Lat: s.Lat}) {
			candidates = append(candidates, s)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		di := geo.Haversine(center.Lat, center.Lon, candidates[i].Lat, candidates[i].Lon)
		dj := geo.Haversine(center.Lat, center.Lon, candidates[j].Lat, candidates[j].Lon)
		return di < dj
	})
	return candidates
}
