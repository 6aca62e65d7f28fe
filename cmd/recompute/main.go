package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DemandLoop/internal/di"
	"DemandLoop/pkg/config"
	applogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/util"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	ids := flag.String("ids", "", "comma-separated venue ids (default: every active venue)")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum duration of the pass")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	job, err := di.InitializeRecomputeJob(cfg, l)
	if err != nil {
		l.Error("recompute initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, *timeout)

	n, runErr := job.Recomputer.RecomputePredictions(ctx, util.SplitList(*ids))
	cancel()
	stop()
	if err := job.Close(); err != nil {
		l.Warn("close error", applogger.Error(err))
	}
	if runErr != nil {
		l.Error("recompute failed", applogger.Int("recomputed", n), applogger.Error(runErr))
		os.Exit(1)
	}
	fmt.Printf("recomputed %d venues\n", n)
}
