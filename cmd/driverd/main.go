package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/med-dispatch/internal/alert"
	"github.com/example/med-dispatch/internal/backend"
	"github.com/example/med-dispatch/internal/config"
	"github.com/example/med-dispatch/internal/engine"
	"github.com/example/med-dispatch/internal/httpapi"
	"github.com/example/med-dispatch/internal/ingest"
	"github.com/example/med-dispatch/internal/journal"
	"github.com/example/med-dispatch/internal/logging"
	"github.com/example/med-dispatch/internal/proximity"
	"github.com/example/med-dispatch/internal/routing"
	"github.com/example/med-dispatch/internal/snapshot"
)

func main() {
	cfg, err := config.LoadDriverdConfig()
	if err != nil {
		logging.NewLogger("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	dispatch := backend.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.DriverID, cfg.RequestTimeout)

	var routeClient routing.Client
	if cfg.RoutingEndpoint != "" {
		routeClient = routing.NewOSRMClient(cfg.RoutingEndpoint)
	} else {
		logger.Warn("OSRM_ENDPOINT not set, route polylines disabled")
	}
	routes := routing.NewSynchronizer(routeClient, cfg.RouteThrottle, logging.NewComponentLogger(logger, "routing"))

	var snaps snapshot.Store
	if cfg.RedisAddr != "" {
		snaps = snapshot.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisSnapshotKey)
	} else {
		snaps = snapshot.NewMemoryStore()
	}

	var tlog journal.TransportLog
	if cfg.PGDSN != "" {
		if pl, err := journal.NewPostgresLog(cfg.PGDSN); err == nil {
			tlog = pl
		} else {
			logger.Warn("transport journal unavailable, falling back to memory", "error", err)
		}
	}
	if tlog == nil {
		tlog = journal.NewMemoryLog()
	}

	var telemetry engine.Telemetry
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.DriverID)
		defer kp.Close()
		telemetry = kp
	}

	wsreg := alert.NewWSRegistry(logging.NewComponentLogger(logger, "ws"))
	sinks := []alert.Sink{wsreg}
	if cfg.AlertWebhookURL != "" {
		sinks = append(sinks, alert.NewWebhookSink(cfg.AlertWebhookURL))
	}
	notifier := alert.NewDispatcher(logging.NewComponentLogger(logger, "alert"), sinks...)

	eng := engine.New(engine.Deps{
		Log:       logging.NewComponentLogger(logger, "engine"),
		Backend:   dispatch,
		Proximity: proximity.NewMonitor(cfg.ArrivalRadiusM),
		Routes:    routes,
		Snapshots: snaps,
		Journal:   tlog,
		Telemetry: telemetry,
		Notifier:  notifier,
	})
	poller := engine.NewPoller(logging.NewComponentLogger(logger, "poller"), dispatch, eng,
		cfg.PollInterval, cfg.PollBackoffBase, cfg.PollMaxRetries)
	eng.SetPoll(poller)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eng.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(eng, wsreg, logging.NewComponentLogger(logger, "http")),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("driverd listening", "addr", cfg.HTTPAddr, "driver", cfg.DriverID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped", "error", err)
		os.Exit(1)
	}
}
