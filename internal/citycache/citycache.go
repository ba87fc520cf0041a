// Package citycache persists a fully loaded city bundle (grid, road, and
// transit layers) to disk as a single gob-encoded file, keyed by city name,
// so a process restart can skip re-reading the source database and GTFS
// feed. Cache files are invalidated by deleting them; there is no
// versioning beyond that.
package citycache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/gridlayer"
	"github.com/transit-works/route-optimizer/internal/opterr"
	"github.com/transit-works/route-optimizer/internal/optmodel"
	"github.com/transit-works/route-optimizer/internal/roadlayer"
	"github.com/transit-works/route-optimizer/internal/transitlayer"
)

// bundle is the on-disk shape: the flattened construction inputs for each
// layer, not the layers themselves (GridLayer/RoadLayer/TransitLayer hold
// unexported indexes that are rebuilt from these on load).
type bundle struct {
	Name string

	Zones []optmodel.Zone
	Links []optmodel.DemandLink

	Nodes []optmodel.RoadNode
	Edges []optmodel.RoadEdge

	Routes []optmodel.TransitRoute
	Stops  map[string]optmodel.TransitStop
}

// Dir is the on-disk location cache files are read from and written to.
type Dir string

// Path returns the cache file path for the named city within dir.
func (d Dir) Path(name string) string {
	return filepath.Join(string(d), fmt.Sprintf("%s.cached", name))
}

// Load reads and reconstructs a City from dir's cache file for name. Returns
// an opterr.KindCacheNotFound error if no cache file exists.
func Load(dir Dir, name string) (*city.City, error) {
	path := dir.Path(name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, opterr.New(opterr.KindCacheNotFound, fmt.Sprintf("no cache for city %q", name))
		}
		return nil, opterr.Wrap(opterr.KindIO, "open city cache", err)
	}
	defer f.Close()

	var b bundle
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, opterr.Wrap(opterr.KindSerde, "decode city cache", err)
	}
	return rebuild(b)
}

// Save writes c's layers to dir's cache file, creating dir if needed.
func Save(dir Dir, c *city.City) error {
	if err := os.MkdirAll(string(dir), 0o755); err != nil {
		return opterr.Wrap(opterr.KindIO, "create city cache dir", err)
	}
	path := dir.Path(c.Name)
	f, err := os.Create(path)
	if err != nil {
		return opterr.Wrap(opterr.KindIO, "create city cache file", err)
	}
	defer f.Close()

	b := bundle{
		Name:   c.Name,
		Zones:  c.Grid.Zones(),
		Links:  c.Grid.Links(),
		Nodes:  c.Road.Nodes(),
		Edges:  c.Road.Edges(),
		Routes: c.Transit.Routes(),
		Stops:  stopCatalogue(c.Transit),
	}
	if err := gob.NewEncoder(f).Encode(b); err != nil {
		return opterr.Wrap(opterr.KindSerde, "encode city cache", err)
	}
	return nil
}

// Invalidate deletes the cache file for name, if present. Missing files are
// not an error.
func Invalidate(dir Dir, name string) error {
	err := os.Remove(dir.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return opterr.Wrap(opterr.KindIO, "invalidate city cache", err)
	}
	return nil
}

func stopCatalogue(t *transitlayer.TransitLayer) map[string]optmodel.TransitStop {
	out := make(map[string]optmodel.TransitStop)
	for _, s := range t.Stops() {
		out[s.ID] = s
	}
	return out
}

func rebuild(b bundle) (*city.City, error) {
	grid := gridlayer.New(b.Zones, b.Links)
	road, err := roadlayer.New(b.Nodes, b.Edges)
	if err != nil {
		return nil, err
	}
	transit := transitlayer.New(b.Routes, b.Stops)
	return &city.City{Name: b.Name, Grid: grid, Road: road, Transit: transit}, nil
}
