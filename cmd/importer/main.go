// Command importer stages a GTFS feed into Postgres staging tables
// (gtfs_stops, gtfs_routes, gtfs_trips, gtfs_stop_times). Nothing in this
// module reads those tables back: citybuild and server load GTFS from a
// directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transit-works/route-optimizer/internal/applog"
	"github.com/transit-works/route-optimizer/internal/config"
	"github.com/transit-works/route-optimizer/internal/db"
	"github.com/transit-works/route-optimizer/internal/gtfsimport"
)

const schema = `
CREATE TABLE IF NOT EXISTS gtfs_stops (
	feed_id TEXT NOT NULL,
	stop_id TEXT NOT NULL,
	stop_name TEXT,
	stop_lat DOUBLE PRECISION,
	stop_lon DOUBLE PRECISION,
	PRIMARY KEY (feed_id, stop_id)
);
CREATE TABLE IF NOT EXISTS gtfs_routes (
	feed_id TEXT NOT NULL,
	route_id TEXT NOT NULL,
	route_short_name TEXT,
	route_long_name TEXT,
	route_type INT,
	PRIMARY KEY (feed_id, route_id)
);
CREATE TABLE IF NOT EXISTS gtfs_trips (
	feed_id TEXT NOT NULL,
	trip_id TEXT NOT NULL,
	route_id TEXT NOT NULL,
	direction_id INT,
	PRIMARY KEY (feed_id, trip_id)
);
CREATE TABLE IF NOT EXISTS gtfs_stop_times (
	feed_id TEXT NOT NULL,
	trip_id TEXT NOT NULL,
	stop_id TEXT NOT NULL,
	stop_sequence INT NOT NULL,
	PRIMARY KEY (feed_id, trip_id, stop_id, stop_sequence)
);
`

func main() {
	feedID := flag.String("feed-id", "", "identifier this feed is staged under (required)")
	gtfsDir := flag.String("gtfs", "", "path to an unpacked GTFS directory (required)")
	flag.Parse()

	cfg := config.FromEnv()
	log := applog.New(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *feedID == "" || *gtfsDir == "" {
		log.Error("missing required flags", "usage", "importer -feed-id ID -gtfs DIR")
		os.Exit(2)
	}

	pool, err := db.GetDB()
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := stage(ctx, pool, *feedID, *gtfsDir, log); err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import completed", "feed_id", *feedID)
}

func stage(ctx context.Context, pool *pgxpool.Pool, feedID, gtfsDir string, log *slog.Logger) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create staging tables: %w", err)
	}

	feed, err := gtfsimport.ParseDirectory(gtfsDir, log)
	if err != nil {
		return fmt.Errorf("parse gtfs directory: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM gtfs_stops WHERE feed_id = $1", feedID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM gtfs_routes WHERE feed_id = $1", feedID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM gtfs_trips WHERE feed_id = $1", feedID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM gtfs_stop_times WHERE feed_id = $1", feedID); err != nil {
		return err
	}

	for _, s := range feed.Stops {
		if _, err := tx.Exec(ctx,
			`INSERT INTO gtfs_stops (feed_id, stop_id, stop_name, stop_lat, stop_lon) VALUES ($1, $2, $3, $4, $5)`,
			feedID, s.ID, s.Name, s.Lat, s.Lon); err != nil {
			return fmt.Errorf("insert stop %s: %w", s.ID, err)
		}
	}
	for _, r := range feed.Routes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO gtfs_routes (feed_id, route_id, route_short_name, route_long_name, route_type) VALUES ($1, $2, $3, $4, $5)`,
			feedID, r.ID, r.ShortName, r.LongName, r.Type); err != nil {
			return fmt.Errorf("insert route %s: %w", r.ID, err)
		}
	}
	for _, t := range feed.Trips {
		if _, err := tx.Exec(ctx,
			`INSERT INTO gtfs_trips (feed_id, trip_id, route_id, direction_id) VALUES ($1, $2, $3, $4)`,
			feedID, t.ID, t.RouteID, t.Direction); err != nil {
			return fmt.Errorf("insert trip %s: %w", t.ID, err)
		}
	}
	for _, st := range feed.StopTimes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO gtfs_stop_times (feed_id, trip_id, stop_id, stop_sequence) VALUES ($1, $2, $3, $4)`,
			feedID, st.TripID, st.StopID, st.Sequence); err != nil {
			return fmt.Errorf("insert stop_time %s/%s: %w", st.TripID, st.StopID, err)
		}
	}

	return tx.Commit(ctx)
}
