// Command server hosts the optimizer's HTTP health surface and the
// WebSocket optimization endpoint over a single city loaded once at
// startup (from cache if present, otherwise rebuilt from the source
// database and GTFS feed and then cached).
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/transit-works/route-optimizer/internal/applog"
	"github.com/transit-works/route-optimizer/internal/city"
	"github.com/transit-works/route-optimizer/internal/citycache"
	"github.com/transit-works/route-optimizer/internal/config"
	"github.com/transit-works/route-optimizer/internal/controller"
	"github.com/transit-works/route-optimizer/internal/gridlayer"
	"github.com/transit-works/route-optimizer/internal/gtfsimport"
	"github.com/transit-works/route-optimizer/internal/opterr"
	"github.com/transit-works/route-optimizer/internal/optmodel"
	"github.com/transit-works/route-optimizer/internal/roadlayer"
	"github.com/transit-works/route-optimizer/internal/storage"
	"github.com/transit-works/route-optimizer/internal/transitlayer"
)

func main() {
	cfg := config.FromEnv()
	log := applog.New(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	cityName := getEnv("CITY_NAME", "default")
	c, err := loadCity(cfg, cityName, log)
	if err != nil {
		log.Error("failed to load city", "error", err, "city", cityName)
		os.Exit(1)
	}
	log.Info("city loaded", "city", c.Name, "routes", len(c.Transit.Routes()), "zones", len(c.Grid.Zones()))

	app := fiber.New(fiber.Config{
		AppName:      "route-optimizer",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok", "city": c.Name})
	})

	app.Use("/ws/optimize", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/optimize", websocket.New(func(conn *websocket.Conn) {
		serveOptimizeSession(conn, c, cfg, log)
	}))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error("error during shutdown", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("listening", "addr", addr)
	if err := app.Listen(addr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// serveOptimizeSession parses the session's query parameters, builds a
// Session over the shared city (NewSession clones its transit layer into a
// private working copy), and drives it to completion over the WebSocket
// connection.
func serveOptimizeSession(conn *websocket.Conn, c *city.City, cfg config.Config, log *slog.Logger) {
	routeIDs := strings.Split(conn.Query("route_ids"), ",")
	filtered := routeIDs[:0]
	for _, id := range routeIDs {
		if id = strings.TrimSpace(id); id != "" {
			filtered = append(filtered, id)
		}
	}
	routeIDs = filtered
	if len(routeIDs) == 0 {
		conn.WriteJSON(map[string]string{"error": "route_ids query parameter is required"})
		conn.Close()
		return
	}

	iterationsPerRoute := cfg.IterationsPerRoute
	if v := conn.Query("iterations_per_route"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			iterationsPerRoute = n
		}
	}

	sessionID := uuid.New()
	log.Info("optimization session starting", "session_id", sessionID, "routes", routeIDs)

	sess := controller.NewSession(c, routeIDs, optmodel.DefaultACOParams(), iterationsPerRoute, int64(sessionID.ID()))
	controller.Serve(conn, sess, controller.WSConfig{
		RoundDelay:        cfg.RoundDelay,
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.SessionTimeout,
	}, log)

	log.Info("optimization session ended", "session_id", sessionID)
}

// loadCity loads cityName from the on-disk cache, rebuilding it from the
// source SQLite database and GTFS feed on a cache miss.
func loadCity(cfg config.Config, cityName string, log *slog.Logger) (*city.City, error) {
	dir := citycache.Dir(cfg.CityCacheDir)

	c, err := citycache.Load(dir, cityName)
	if err == nil {
		return c, nil
	}
	if opterr.KindOf(err) != opterr.KindCacheNotFound {
		return nil, err
	}
	log.Info("no cached city found, building from source", "city", cityName)

	dbPath := getEnv("CITY_DB_PATH", cityName+".sqlite3")
	gtfsDir := getEnv("GTFS_DIR", "gtfs")

	c, err = buildCity(cityName, dbPath, gtfsDir, log)
	if err != nil {
		return nil, err
	}
	if err := citycache.Save(dir, c); err != nil {
		log.Warn("failed to write city cache", "error", err)
	}
	return c, nil
}

func buildCity(name, dbPath, gtfsDir string, log *slog.Logger) (*city.City, error) {
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

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
