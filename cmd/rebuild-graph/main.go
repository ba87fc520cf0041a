// Command rebuild-graph forces a city cache rebuild under a distributed
// advisory lock, so that concurrent rebuild-graph invocations across
// processes don't race to rebuild the same city twice. Callers that lose
// the lock wait for the winner instead of rebuilding redundantly.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/transit-works/route-optimizer/internal/applog"
	"github.com/transit-works/route-optimizer/internal/cache"
	"github.com/transit-works/route-optimizer/internal/citycache"
	"github.com/transit-works/route-optimizer/internal/config"
	"github.com/transit-works/route-optimizer/internal/gridlayer"
	"github.com/transit-works/route-optimizer/internal/gtfsimport"
	"github.com/transit-works/route-optimizer/internal/roadlayer"
	"github.com/transit-works/route-optimizer/internal/storage"
	"github.com/transit-works/route-optimizer/internal/transitlayer"

	"github.com/transit-works/route-optimizer/internal/city"
)

const lockTTL = 5 * time.Minute

func main() {
	name := flag.String("name", "", "city name (cache key)")
	dbPath := flag.String("db", "", "path to the city's SQLite database")
	gtfsDir := flag.String("gtfs", "", "path to the city's GTFS directory")
	waitFor := flag.Duration("wait", 30*time.Second, "max time to wait for another process's rebuild before giving up")
	flag.Parse()

	cfg := config.FromEnv()
	log := applog.New(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *name == "" || *dbPath == "" || *gtfsDir == "" {
		log.Error("missing required flags", "usage", "rebuild-graph -name CITY -db PATH -gtfs DIR")
		os.Exit(2)
	}

	ctx := context.Background()
	acquired, err := cache.AcquireBuildLock(ctx, *name, lockTTL)
	if err != nil {
		log.Error("failed to acquire build lock", "error", err)
		os.Exit(1)
	}
	if !acquired {
		log.Info("another process is already rebuilding this city, waiting", "city", *name)
		if err := cache.WaitForBuild(ctx, *name, *waitFor); err != nil {
			log.Error("gave up waiting for rebuild", "error", err)
			os.Exit(1)
		}
		log.Info("rebuild completed by another process", "city", *name)
		return
	}
	defer cache.ReleaseBuildLock(ctx, *name)

	dir := citycache.Dir(cfg.CityCacheDir)
	if err := citycache.Invalidate(dir, *name); err != nil {
		log.Error("failed to invalidate existing cache", "error", err)
		os.Exit(1)
	}

	c, err := build(*name, *dbPath, *gtfsDir, log)
	if err != nil {
		log.Error("failed to rebuild city", "error", err)
		os.Exit(1)
	}
	if err := citycache.Save(dir, c); err != nil {
		log.Error("failed to save city cache", "error", err)
		os.Exit(1)
	}
	if err := cache.SetLastBuilt(ctx, *name, time.Now()); err != nil {
		log.Warn("failed to record last-built timestamp", "error", err)
	}

	log.Info("city cache rebuilt",
		"city", c.Name,
		"zones", len(c.Grid.Zones()),
		"routes", len(c.Transit.Routes()),
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
