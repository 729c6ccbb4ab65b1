package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/statwatch/internal/adapters/display"
	"github.com/okian/statwatch/internal/adapters/http/api"
	"github.com/okian/statwatch/internal/adapters/notify"
	"github.com/okian/statwatch/internal/adapters/provider"
	"github.com/okian/statwatch/internal/adapters/repository"
	app "github.com/okian/statwatch/internal/app"
	"github.com/okian/statwatch/internal/config"
	"github.com/okian/statwatch/internal/reconciler"
	"github.com/okian/statwatch/internal/tracker"
	"github.com/okian/statwatch/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

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
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// The store failing to open is the only fatal startup condition.
	store, err := repository.Open(cfg.DBPath)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to open store", logger.String("db_path", cfg.DBPath), logger.Error(err))
		return
	}
	defer func() {
		_ = store.Close()
	}()

	prov := provider.NewClient(cfg.ProviderBaseURL,
		provider.WithTimeout(time.Duration(cfg.ProviderTimeoutMS)*time.Millisecond),
	)

	var sink notify.Sink
	if cfg.NotifyWebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.NotifyWebhookURL,
			notify.WithWebhookTimeout(time.Duration(cfg.NotifyTimeoutMS)*time.Millisecond),
		)
	} else {
		loggerInstance.Warn(ctx, "no webhook configured; notifications are logged only")
		sink = notify.NewLogSink()
	}

	// Create and start the service with configuration options
	svc := app.New(store, prov, sink,
		app.WithLogger(loggerInstance),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithTopSkillChanges(cfg.TopSkillChanges),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Fatal(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// The polling scheduler feeds the service's check queue.
	poller := tracker.New(store, prov, svc,
		tracker.WithInterval(time.Duration(cfg.PollIntervalMinutes)*time.Minute),
	)
	go poller.Run(ctx)

	// The reconciler needs a display API; without one it stays off.
	if cfg.DisplayBaseURL != "" {
		displayClient := display.NewClient(cfg.DisplayBaseURL,
			display.WithTimeout(time.Duration(cfg.DisplayTimeoutMS)*time.Millisecond),
		)
		rec := reconciler.New(store, prov, displayClient,
			reconciler.WithInterval(time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute),
			reconciler.WithCategoryName(cfg.DisplayCategory),
		)
		go rec.Run(ctx)
	} else {
		loggerInstance.Info(ctx, "no display API configured; aggregate reconciler disabled")
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}
