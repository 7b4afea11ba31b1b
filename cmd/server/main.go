package main

import (
	"flag"
	"log"
	"os"
	"time"

	"transit_router/pkg/access"
	"transit_router/pkg/api"
	"transit_router/pkg/config"
	"transit_router/pkg/metrics"
	"transit_router/pkg/planner"
	"transit_router/pkg/timetable"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yml (optional)")
	timetablePath := flag.String("timetable", "", "Path to compiled timetable binary (overrides config)")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (overrides config)")
	flag.Parse()

	config.InitLogging()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *timetablePath != "" {
		cfg.Data.Timetable = *timetablePath
	}
	if *corsOrigin != "" {
		cfg.Server.CORSOrigin = *corsOrigin
	}

	start := time.Now()

	// Load timetable.
	log.Printf("Loading timetable from %s...", cfg.Data.Timetable)
	tt, err := timetable.ReadBinary(cfg.Data.Timetable)
	if err != nil {
		log.Fatalf("Failed to load timetable: %v", err)
	}
	log.Printf("Loaded %s: %d stops, %d patterns, %d trips, %d transfers",
		tt.ServiceDate, len(tt.Stops), len(tt.Patterns), len(tt.Trips), len(tt.Transfers))

	ix, err := tt.TransferIndex()
	if err != nil {
		log.Fatalf("Failed to index transfers: %v", err)
	}

	// Build planner.
	m := metrics.NewCollector()
	m.SetTimetable(len(tt.Stops), len(tt.Patterns), len(tt.Trips))
	p, err := planner.New[*timetable.Trip](tt, ix,
		planner.WithStopPriorities[*timetable.Trip](tt),
		planner.WithObserver[*timetable.Trip](m),
	)
	if err != nil {
		log.Fatalf("Failed to build planner: %v", err)
	}

	log.Println("Building R-tree stop index...")
	locator := access.NewLocator(tt.Locations(), cfg.Access)

	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

	// Setup HTTP server.
	handlers := api.NewHandlers(p, tt, locator, cfg)
	srv := api.NewServer(api.ConfigFrom(cfg), handlers, m)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
