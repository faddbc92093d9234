package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gavelhq/gavel/internal/adapters/http/api"
	"github.com/gavelhq/gavel/internal/adapters/http/site"
	"github.com/gavelhq/gavel/internal/adapters/http/swagger"
	"github.com/gavelhq/gavel/internal/adapters/pubsub"
	app "github.com/gavelhq/gavel/internal/app"
	"github.com/gavelhq/gavel/internal/config"
	"github.com/gavelhq/gavel/pkg/logger"
	"github.com/gavelhq/gavel/pkg/metrics"

	"github.com/rs/cors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since the logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Assemble the service from configuration.
	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithBoardCacheSize(cfg.BoardCacheSize),
		app.WithDraft(cfg.DraftID, cfg.TotalBudget, cfg.TotalSlots),
		app.WithTierCutoffs(cfg.EliteCutoff, cfg.MidCutoff),
		app.WithMultiplierBounds(cfg.MinMultiplier, cfg.MaxMultiplier),
		app.WithWarnInterval(time.Duration(cfg.WarnIntervalMS) * time.Millisecond),
	}

	// Snapshot export is optional: a draft room works fine without a
	// broker, so a failed connection downgrades to a warning.
	if cfg.NATSURL != "" {
		upstream, upErr := pubsub.NewNATSUpstream(cfg.NATSURL,
			pubsub.WithSubjectPrefix(cfg.NATSSubjectPrefix),
		)
		if upErr != nil {
			log.Warn(ctx, "snapshot export disabled",
				logger.String("nats_url", cfg.NATSURL), logger.Error(upErr))
		} else {
			defer upstream.Close()
			opts = append(opts, app.WithUpstream(upstream))
			log.Info(ctx, "snapshot export enabled",
				logger.String("nats_url", cfg.NATSURL),
				logger.String("subject_prefix", cfg.NATSSubjectPrefix))
		}
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Sample runtime gauges in the background; draft gauges update at
	// their sources as state changes.
	metrics.StartSystemCollector(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Landing page at / and docs under /docs.
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	// Business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, cfg.MaxBoardLimit)
	apiServer.Register(ctx, mux)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		// No WriteTimeout: snapshot streams hold the response open and a
		// server-wide write deadline would sever them.

		// Request contexts inherit the shutdown signal so open streams
		// end as soon as it fires, letting Shutdown return promptly.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
