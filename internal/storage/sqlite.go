// Package storage loads GridLayer and RoadLayer seed data out of a SQLite
// city database: zones/demand for the grid, nodes/edges for the road graph,
// with geometry columns stored as WKT text.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/transit-works/route-optimizer/internal/opterr"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

// Open opens the SQLite database at path. Callers are responsible for
// closing the returned handle.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, opterr.Wrap(opterr.KindDatabase, "open city database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, opterr.Wrap(opterr.KindDatabase, "ping city database", err)
	}
	return db, nil
}

// LoadZones reads the zones table (zoneid, geom) into Zone polygons.
func LoadZones(db *sql.DB) ([]optmodel.Zone, error) {
	rows, err := db.Query("SELECT zoneid, geom FROM zones")
	if err != nil {
		return nil, opterr.Wrap(opterr.KindDatabase, "query zones", err)
	}
	defer rows.Close()

	var zones []optmodel.Zone
	for rows.Next() {
		var id int64
		var geomText string
		if err := rows.Scan(&id, &geomText); err != nil {
			return nil, opterr.Wrap(opterr.KindDatabase, "scan zone row", err)
		}
		ring, err := polygonExteriorRing(geomText)
		if err != nil {
			return nil, opterr.Wrap(opterr.KindSerde, fmt.Sprintf("parse geom for zone %d", id), err)
		}
		zones = append(zones, optmodel.Zone{ID: optmodel.ZoneID(id), Polygon: ring})
	}
	return zones, rows.Err()
}

// LoadDemand reads the demand table (origid, destid, volume) into
// directed DemandLinks.
func LoadDemand(db *sql.DB) ([]optmodel.DemandLink, error) {
	rows, err := db.Query("SELECT origid, destid, volume FROM demand")
	if err != nil {
		return nil, opterr.Wrap(opterr.KindDatabase, "query demand", err)
	}
	defer rows.Close()

	var links []optmodel.DemandLink
	for rows.Next() {
		var orig, dest int64
		var volume float64
		if err := rows.Scan(&orig, &dest, &volume); err != nil {
			return nil, opterr.Wrap(opterr.KindDatabase, "scan demand row", err)
		}
		links = append(links, optmodel.DemandLink{
			OriginZoneID: optmodel.ZoneID(orig),
			DestZoneID:   optmodel.ZoneID(dest),
			Weight:       volume,
		})
	}
	return links, rows.Err()
}

// LoadNodes reads the nodes table (id, geom) into RoadNode points.
func LoadNodes(db *sql.DB) ([]optmodel.RoadNode, error) {
	rows, err := db.Query("SELECT id, geom FROM nodes")
	if err != nil {
		return nil, opterr.Wrap(opterr.KindDatabase, "query nodes", err)
	}
	defer rows.Close()

	var nodes []optmodel.RoadNode
	for rows.Next() {
		var id int64
		var geomText string
		if err := rows.Scan(&id, &geomText); err != nil {
			return nil, opterr.Wrap(opterr.KindDatabase, "scan node row", err)
		}
		lon, lat, err := pointCoords(geomText)
		if err != nil {
			return nil, opterr.Wrap(opterr.KindSerde, fmt.Sprintf("parse geom for node %d", id), err)
		}
		nodes = append(nodes, optmodel.RoadNode{ID: optmodel.RoadNodeID(id), Lon: lon, Lat: lat})
	}
	return nodes, rows.Err()
}

// LoadEdges reads the edges table (id, geom, source, target) into RoadEdges.
func LoadEdges(db *sql.DB) ([]optmodel.RoadEdge, error) {
	rows, err := db.Query("SELECT id, geom, source, target FROM edges")
	if err != nil {
		return nil, opterr.Wrap(opterr.KindDatabase, "query edges", err)
	}
	defer rows.Close()

	var edges []optmodel.RoadEdge
	for rows.Next() {
		var id, source, target int64
		var geomText string
		if err := rows.Scan(&id, &geomText, &source, &target); err != nil {
			return nil, opterr.Wrap(opterr.KindDatabase, "scan edge row", err)
		}
		line, err := lineStringCoords(geomText)
		if err != nil {
			return nil, opterr.Wrap(opterr.KindSerde, fmt.Sprintf("parse geom for edge %d", id), err)
		}
		edges = append(edges, optmodel.RoadEdge{
			ID:       id,
			SourceID: optmodel.RoadNodeID(source),
			TargetID: optmodel.RoadNodeID(target),
			Geometry: line,
		})
	}
	return edges, rows.Err()
}

func polygonExteriorRing(wktText string) ([][2]float64, error) {
	g, err := wkt.Unmarshal(wktText)
	if err != nil {
		return nil, err
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("expected POLYGON, got %T", g)
	}
	flat := poly.FlatCoords()
	stride := poly.Layout().Stride()
	ends := poly.Ends()
	exteriorEnd := ends[0]

	ring := make([][2]float64, 0, exteriorEnd/stride)
	for i := 0; i < exteriorEnd; i += stride {
		ring = append(ring, [2]float64{flat[i], flat[i+1]})
	}
	return ring, nil
}

func pointCoords(wktText string) (lon, lat float64, err error) {
	g, err := wkt.Unmarshal(wktText)
	if err != nil {
		return 0, 0, err
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, fmt.Errorf("expected POINT, got %T", g)
	}
	flat := pt.FlatCoords()
	return flat[0], flat[1], nil
}

func lineStringCoords(wktText string) ([][2]float64, error) {
	g, err := wkt.Unmarshal(wktText)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("expected LINESTRING, got %T", g)
	}
	flat := ls.FlatCoords()
	stride := ls.Layout().Stride()

	coords := make([][2]float64, 0, len(flat)/stride)
	for i := 0; i < len(flat); i += stride {
		coords = append(coords, [2]float64{flat[i], flat[i+1]})
	}
	return coords, nil
}
