// Package optmodel holds the data types shared by every layer and by the
// optimizer: zones, demand links, road graph primitives, transit stops and
// routes, and the tunable ACO parameter set.
package optmodel

// ZoneID identifies a Zone within a GridNetwork.
type ZoneID int64

// Zone is an immutable demand-analysis polygon with a derived bounding box.
type Zone struct {
	ID      ZoneID
	Polygon [][2]float64 // (lon, lat) ring, exterior only
}

// DemandLink is a directed, possibly-zero, origin->destination demand
// weight. At most one link exists per ordered (origin, dest) pair.
type DemandLink struct {
	OriginZoneID ZoneID
	DestZoneID   ZoneID
	Weight       float64
}

// RoadNodeID identifies a RoadNode within a RoadNetwork.
type RoadNodeID int64

// RoadNode is a single intersection/point in the road graph.
type RoadNode struct {
	ID  RoadNodeID
	Lon float64
	Lat float64
}

// RoadEdge is a directed street segment between two RoadNodes.
type RoadEdge struct {
	ID       int64
	SourceID RoadNodeID
	TargetID RoadNodeID
	// Geometry is the polyline, including both endpoints, used to derive
	// the edge's geometric length.
	Geometry [][2]float64
}

// RouteType enumerates every GTFS-derived route type the transit layer may
// hold; only Bus routes are ever rewritten by the optimizer.
type RouteType int

const (
	RouteTram RouteType = iota
	RouteSubway
	RouteRail
	RouteBus
	RouteFerry
	RouteCableTram
	RouteAerialLift
	RouteFunicular
	RouteTrolleybus
	RouteMonorail
)

func (t RouteType) String() string {
	switch t {
	case RouteTram:
		return "tram"
	case RouteSubway:
		return "subway"
	case RouteRail:
		return "rail"
	case RouteBus:
		return "bus"
	case RouteFerry:
		return "ferry"
	case RouteCableTram:
		return "cable_tram"
	case RouteAerialLift:
		return "aerial_lift"
	case RouteFunicular:
		return "funicular"
	case RouteTrolleybus:
		return "trolleybus"
	case RouteMonorail:
		return "monorail"
	default:
		return "unknown"
	}
}

// RouteTypeFromGTFS maps a GTFS route_type code (including the GTFS
// extended list) to a RouteType, defaulting to Bus when unrecognized.
func RouteTypeFromGTFS(code int) RouteType {
	switch code {
	case 0:
		return RouteTram
	case 1:
		return RouteSubway
	case 2:
		return RouteRail
	case 3:
		return RouteBus
	case 4:
		return RouteFerry
	case 5:
		return RouteCableTram
	case 6:
		return RouteAerialLift
	case 7:
		return RouteFunicular
	case 11:
		return RouteTrolleybus
	case 12:
		return RouteMonorail
	default:
		return RouteBus
	}
}

// TransitStop is a stop shared across routes; equality/identity is by ID.
// The metadata fields beyond ID/Lon/Lat carry no optimization meaning; they
// exist only to round-trip into the GeoJSON stop property set.
type TransitStop struct {
	ID  string
	Lon float64
	Lat float64

	Code               string
	Name               string
	Desc               string
	LocationType       int
	ParentStation      string
	ZoneID             string
	URL                string
	WheelchairBoarding int
	Transfers          int
}

// TransitRoute is a single route's outbound/inbound stop sequences. Only
// Outbound is ever rewritten by the optimizer; Inbound is preserved as-is.
// ShortName/LongName/Desc/URL carry no optimization meaning; they exist
// only to round-trip into the GeoJSON route property set.
type TransitRoute struct {
	ID        string
	Type      RouteType
	Outbound  []string // stop IDs, in order; first/last are anchors
	Inbound   []string // stop IDs, in order; never rebuilt

	ShortName string
	LongName  string
	Desc      string
	URL       string
}

// CloneRoute returns a deep copy of r so a rebuild attempt can mutate
// Outbound without aliasing the seed route's slice.
func CloneRoute(r TransitRoute) TransitRoute {
	out := TransitRoute{
		ID: r.ID, Type: r.Type,
		ShortName: r.ShortName, LongName: r.LongName, Desc: r.Desc, URL: r.URL,
	}
	out.Outbound = append([]string(nil), r.Outbound...)
	out.Inbound = append([]string(nil), r.Inbound...)
	return out
}

// ACOParams is the tunable hyperparameter set for one ACO run; also the
// chromosome representation used by the GA tuner (16 genes).
type ACOParams struct {
	Alpha float64 // [0.1, 10]
	Beta  float64 // [0.1, 10]
	Rho   float64 // (0, 1)
	Q0    float64 // (0, 1], reserved

	NumAnt int
	MaxGen int

	PheromoneMax    float64 // > PheromoneMin > 0
	PheromoneMin    float64
	InitPheromone   float64 // [PheromoneMin, PheromoneMax]

	BusCapacity int

	MinRouteLen int // < MaxRouteLen
	MaxRouteLen int

	MinStopDist float64 // meters, < MaxStopDist
	MaxStopDist float64 // meters

	MaxNonlinearity float64 // >= 1
	AvgStopDist     float64 // meters
}

// DefaultACOParams returns the baseline tuning constants used when no
// GA-tuned parameters are available.
func DefaultACOParams() ACOParams {
	return ACOParams{
		Alpha:           2.0,
		Beta:            3.0,
		Rho:             0.1,
		Q0:              1.0,
		NumAnt:          20,
		MaxGen:          10,
		PheromoneMax:    30.0,
		PheromoneMin:    5.0,
		InitPheromone:   20.0,
		BusCapacity:     50,
		MinRouteLen:     5,
		MaxRouteLen:     100,
		MinStopDist:     100.0,
		MaxStopDist:     500.0,
		MaxNonlinearity: 1.5,
		AvgStopDist:     200.0,
	}
}

// RouteEvaluation is the outcome of evaluating one candidate route.
type RouteEvaluation struct {
	Score      float64 // non-negative
	Punishment float64 // in [0, 1]
}
