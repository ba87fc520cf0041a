// Command citybuild builds a city's grid, road, and transit layers from a
// SQLite database and a GTFS directory, then writes the result to the city
// cache directory so cmd/server can start from a hot cache.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/transit-works/route-optimizer/internal/applog"
	"github.com/transit-works/route-optimizer/internal/citycache"
	"github.com/transit-works/route-optimizer/internal/config"
	"github.com/transit-works/route-optimizer/internal/gridlayer"
	"github.com/transit-works/route-optimizer/internal/gtfsimport"
	"github.com/transit-works/route-optimizer/internal/roadlayer"
	"github.com/transit-works/route-optimizer/internal/storage"
	"github.com/transit-works/route-optimizer/internal/transitlayer"

	"github.com/transit-works/route-optimizer/internal/city"
)

func main() {
	name := flag.String("name", "", "city name (cache key)")
	dbPath := flag.String("db", "", "path to the city's SQLite database")
	gtfsDir := flag.String("gtfs", "", "path to the city's GTFS directory")
	cacheDir := flag.String("cache-dir", "", "override CITY_CACHE_DIR")
	invalidate := flag.Bool("invalidate", false, "delete any existing cache before building")
	flag.Parse()

	cfg := config.FromEnv()
	log := applog.New(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *name == "" || *dbPath == "" || *gtfsDir == "" {
		log.Error("missing required flags", "usage", "citybuild -name CITY -db PATH -gtfs DIR")
		os.Exit(2)
	}

	dir := citycache.Dir(cfg.CityCacheDir)
	if *cacheDir != "" {
		dir = citycache.Dir(*cacheDir)
	}

	if *invalidate {
		if err := citycache.Invalidate(dir, *name); err != nil {
			log.Error("failed to invalidate existing cache", "error", err)
			os.Exit(1)
		}
	}

	c, err := build(*name, *dbPath, *gtfsDir, log)
	if err != nil {
		log.Error("failed to build city", "error", err)
		os.Exit(1)
	}

	if err := citycache.Save(dir, c); err != nil {
		log.Error("failed to save city cache", "error", err)
		os.Exit(1)
	}

	log.Info("city built and cached",
		"city", c.Name,
		"zones", len(c.Grid.Zones()),
		"routes", len(c.Transit.Routes()),
		"stops", len(c.Transit.Stops()),
		"cache_dir", string(dir),
	)
}

func build(name, dbPath, gtfsDir string, log *slog.Logger) (*city.City, error) {
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	zones, err := storage.LoadZones(db)
	if err != nil {
		return nil, err
	}
	links, err := storage.LoadDemand(db)
	if err != nil {
		return nil, err
	}
	grid := gridlayer.New(zones, links)

	nodes, err := storage.LoadNodes(db)
	if err != nil {
		return nil, err
	}
	edges, err := storage.LoadEdges(db)
	if err != nil {
		return nil, err
	}
	road, err := roadlayer.New(nodes, edges)
	if err != nil {
		return nil, err
	}

	feed, err := gtfsimport.ParseDirectory(gtfsDir, log)
	if err != nil {
		return nil, err
	}
	routes, stops := gtfsimport.BuildTransit(feed)
	transit := transitlayer.New(routes, stops)

	return &city.City{Name: name, Grid: grid, Road: road, Transit: transit}, nil
}
