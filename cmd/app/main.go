package main

import (
	"context"
	"flag"
	"log"
	"os"

	"DemandLoop/internal/di"
	"DemandLoop/pkg/config"
	applogger "DemandLoop/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	l.Info("starting",
		applogger.String("env", cfg.Environment),
		applogger.String("storage", cfg.Storage.Driver),
		applogger.Bool("kafka", cfg.Kafka.Enabled),
		applogger.Bool("clickhouse", cfg.ClickHouse.Enabled),
		applogger.Bool("redis", cfg.Redis.Enabled),
	)

	app, err := di.InitializeApp(cfg, l)
	if err != nil {
		l.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	// Run blocks until SIGINT/SIGTERM.
	if err := app.Run(context.Background()); err != nil {
		l.Error("app error", applogger.Error(err))
		os.Exit(1)
	}
}
