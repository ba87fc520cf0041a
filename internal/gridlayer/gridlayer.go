// Package gridlayer implements the O-D demand grid: a set of zones plus a
// directed demand graph between them, queried by nearest-zone lookup. The
// layer is built once and read concurrently under an RWMutex.
package gridlayer

import (
	"math"
	"sync"

	"github.com/transit-works/route-optimizer/internal/geo"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// GridLayer holds zones and the directed demand graph between them. It is
// built once and safe for concurrent read-only use thereafter.
type GridLayer struct {
	mu sync.RWMutex

	zones map[optmodel.ZoneID]optmodel.Zone
	// links maps (origin, dest) -> weight, matching "at most one per
	// ordered pair" and "0 if no link" read semantics.
	links map[linkKey]float64
	// order is the iteration order zones were inserted in, used to break
	// find_nearest_zone ties deterministically ("first in spatial-index
	// iteration order").
	order []optmodel.ZoneID
}

type linkKey struct {
	origin optmodel.ZoneID
	dest   optmodel.ZoneID
}

// New builds a GridLayer from zones and demand links. Link endpoints that
// reference an unknown zone are dropped (callers needing strict validation
// should check Zones() coverage before calling New).
func New(zones []optmodel.Zone, links []optmodel.DemandLink) *GridLayer {
	g := &GridLayer{
		zones: make(map[optmodel.ZoneID]optmodel.Zone, len(zones)),
		links: make(map[linkKey]float64, len(links)),
	}
	for _, z := range zones {
		if _, exists := g.zones[z.ID]; !exists {
			g.order = append(g.order, z.ID)
		}
		g.zones[z.ID] = z
	}
	for _, l := range links {
		if _, ok := g.zones[l.OriginZoneID]; !ok {
			continue
		}
		if _, ok := g.zones[l.DestZoneID]; !ok {
			continue
		}
		g.links[linkKey{l.OriginZoneID, l.DestZoneID}] = l.Weight
	}
	return g
}

// Zones returns every zone in insertion order.
func (g *GridLayer) Zones() []optmodel.Zone {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]optmodel.Zone, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.zones[id])
	}
	return out
}

// GetZone returns the zone with the given id, if present.
func (g *GridLayer) GetZone(id optmodel.ZoneID) (optmodel.Zone, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	z, ok := g.zones[id]
	return z, ok
}

// FindNearestZone returns the zone whose polygon envelope contains
// (lat, lon), or false if none does (including when the index is empty).
// NaN coordinates never match. Ties are broken by insertion order.
func (g *GridLayer) FindNearestZone(lat, lon float64) (optmodel.ZoneID, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return 0, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	p := geo.Point{Lon: lon, Lat: lat}
	for _, id := range g.order {
		z := g.zones[id]
		if envelopeOf(z).Contains(p) {
			return id, true
		}
	}
	return 0, false
}

func envelopeOf(z optmodel.Zone) geo.Envelope {
	pts := make([]geo.Point, 0, len(z.Polygon))
	for _, c := range z.Polygon {
		pts = append(pts, geo.Point{Lon: c[0], Lat: c[1]})
	}
	if len(pts) == 0 {
		return geo.Envelope{}
	}
	return geo.EnvelopeOfPoints(pts)
}

// Demand returns the directed demand weight a->b, or 0 if no link exists.
func (g *GridLayer) Demand(a, b optmodel.ZoneID) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.links[linkKey{a, b}]
}

// DemandBetweenCoords composes FindNearestZone with Demand for two raw
// coordinate pairs; returns 0 if either point has no enclosing zone.
func (g *GridLayer) DemandBetweenCoords(lat1, lon1, lat2, lon2 float64) float64 {
	a, ok := g.FindNearestZone(lat1, lon1)
	if !ok {
		return 0
	}
	b, ok := g.FindNearestZone(lat2, lon2)
	if !ok {
		return 0
	}
	return g.Demand(a, b)
}

// LinkBetweenZones returns the raw DemandLink for the ordered pair, if one
// was recorded.
func (g *GridLayer) LinkBetweenZones(a, b optmodel.ZoneID) (optmodel.DemandLink, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	w, ok := g.links[linkKey{a, b}]
	if !ok {
		return optmodel.DemandLink{}, false
	}
	return optmodel.DemandLink{OriginZoneID: a, DestZoneID: b, Weight: w}, true
}

// Links returns every demand link, in no particular order. Used to persist
// and rebuild a GridLayer without re-reading the source database.
func (g *GridLayer) Links() []optmodel.DemandLink {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]optmodel.DemandLink, 0, len(g.links))
	for k, w := range g.links {
		out = append(out, optmodel.DemandLink{OriginZoneID: k.origin, DestZoneID: k.dest, Weight: w})
	}
	return out
}
