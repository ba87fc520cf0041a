// Package city bundles the three read-mostly spatial layers built once per
// process and shared read-only across optimizer sessions.
package city

import (
	"github.com/transit-works/route-optimizer/internal/gridlayer"
	"github.com/transit-works/route-optimizer/internal/roadlayer"
	"github.com/transit-works/route-optimizer/internal/transitlayer"
)

// City is the immutable bundle every session reads from. Transit is the
// baseline network; sessions clone it before mutating.
type City struct {
	Name    string
	Grid    *gridlayer.GridLayer
	Road    *roadlayer.RoadLayer
	Transit *transitlayer.TransitLayer
}
