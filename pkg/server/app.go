package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	domservice "DemandLoop/internal/domain/service"
	mid "DemandLoop/internal/middleware"
	"DemandLoop/internal/service/live"
	"DemandLoop/internal/service/ratelimit"
	"DemandLoop/pkg/config"
	xhttp "DemandLoop/pkg/http"
	pkgkafka "DemandLoop/pkg/kafka"
	applogger "DemandLoop/pkg/logger"
)

type periodic struct {
	interval time.Duration
	fn       func(context.Context)
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	pipeline   *mid.RecomputePipeline
	recomputer domservice.Recomputer
	hub        *live.Hub
	limiter    *ratelimit.Limiter
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	periodic   []periodic
	closers    []closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	pipeline *mid.RecomputePipeline,
	recomputer domservice.Recomputer,
	hub *live.Hub,
	limiter *ratelimit.Limiter,
) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		pipeline:   pipeline,
		recomputer: recomputer,
		hub:        hub,
		limiter:    limiter,
	}
}

// SetConsumer attaches the Kafka consumer and the handler it should run.
func (a *App) SetConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = h
}

// Every runs fn on each interval tick while the app is running.
func (a *App) Every(interval time.Duration, fn func(context.Context)) {
	if interval > 0 && fn != nil {
		a.periodic = append(a.periodic, periodic{interval: interval, fn: fn})
	}
}

// AddCloser registers a resource released after everything else has stopped, in reverse order.
func (a *App) AddCloser(name string, fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, closer{name: name, fn: fn})
	}
}

// Run starts the application and blocks until interrupted or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l := a.l

	if a.consumer != nil && a.kh != nil {
		if err := a.consumer.RegisterHandler(a.kh); err != nil {
			return err
		}
		if err := a.consumer.Start(ctx); err != nil {
			l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	var wg sync.WaitGroup
	if a.hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.hub.Run(ctx)
		}()
	}

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		l.Info("recompute pipeline started", applogger.Duration("venue_throttle", a.cfg.Recompute.VenueThrottle))
	}

	if a.limiter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.limiter.RunEviction(ctx, a.cfg.RateLimit.EvictInterval, func(err error) {
				l.Warn("rate limit eviction failed", applogger.Error(err))
			})
		}()
	}

	for _, p := range a.periodic {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.NewTicker(p.interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					p.fn(ctx)
				}
			}
		}()
	}

	if a.recomputer != nil && !a.cfg.Recompute.DisableScheduler && a.cfg.Recompute.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runScheduler(ctx, a.cfg.Recompute.Interval)
		}()
	}

	errCh := a.httpServer.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case <-ctx.Done():
		l.Info("context cancelled")
	case err := <-errCh:
		if err != nil {
			l.Error("http server error", applogger.Error(err))
			runErr = err
		}
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	cancel()
	wg.Wait()
	a.close()
	l.Info("shutdown complete")
	return runErr
}

// runScheduler recomputes every active venue on each tick.
func (a *App) runScheduler(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	a.l.Info("recompute scheduler started", applogger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.recomputer.RecomputePredictions(ctx, nil)
			if err != nil {
				a.l.Warn("scheduled recompute incomplete", applogger.Int("recomputed", n), applogger.Error(err))
				continue
			}
			a.l.Info("scheduled recompute done", applogger.Int("recomputed", n))
		}
	}
}

// shutdown stops the inbound surfaces first, then the background workers.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
		a.l.Info("recompute pipeline stopped")
	}
	return firstErr
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}
}
