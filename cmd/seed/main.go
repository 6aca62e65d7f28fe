package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"DemandLoop/internal/di"
	"DemandLoop/internal/usecase"
	"DemandLoop/pkg/config"
	applogger "DemandLoop/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	csvPath := flag.String("file", "seed/places.csv", "places CSV")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		log.Fatalf("seed needs storage.driver=postgres, got %q", cfg.Storage.Driver)
	}
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	pool, err := di.ProvidePostgresPool(cfg, l)
	if err != nil {
		l.Error("postgres init failed", applogger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()
	stores, err := di.ProvideStores(cfg, pool, l)
	if err != nil {
		l.Error("stores init failed", applogger.Error(err))
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		l.Error("open csv failed", applogger.Error(err))
		os.Exit(1)
	}
	defer f.Close()

	res, err := usecase.NewSeedUseCase(stores.Venues, stores.Predictions, usecase.WithLogger(l)).SeedVenues(context.Background(), f)
	if err != nil {
		l.Error("seed failed", applogger.Error(err))
		os.Exit(1)
	}
	fmt.Printf("seeded %d/%d rows (%d skipped, %d default predictions)\n",
		res.Upserted, res.Rows, res.Skipped, res.DefaultPredictions)
}
