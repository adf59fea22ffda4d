package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuebridge/cuebridge/internal/api"
	"github.com/cuebridge/cuebridge/internal/audit"
	"github.com/cuebridge/cuebridge/internal/backend"
	"github.com/cuebridge/cuebridge/internal/config"
	"github.com/cuebridge/cuebridge/internal/dispatch"
	"github.com/cuebridge/cuebridge/internal/session"
	"github.com/cuebridge/cuebridge/internal/snapshot"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	// Logger
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Audit log
	history, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	// Control backend
	var control backend.Control
	switch cfg.Backend {
	case "memory":
		control = backend.NewMemoryBackend()
	default:
		devices := make([]backend.DeviceConfig, 0, len(cfg.Devices))
		for _, d := range cfg.Devices {
			devices = append(devices, backend.DeviceConfig{
				ID:   d.ID,
				Name: d.Name,
				Host: d.Host,
				Port: d.Port,
			})
		}
		qlab := backend.NewQLabBackend(devices, cfg.BackendTimeout, logger)
		defer qlab.Close()
		control = qlab
	}

	// Snapshot provider
	var snapshots backend.SnapshotProvider
	if cfg.Backend == "memory" {
		snapshots = &snapshot.StaticProvider{Image: placeholderPNG}
	} else {
		snapshots = snapshot.NewCommandProvider(cfg.SnapshotCommand)
	}

	// Session + dispatch
	sessions := session.NewStore(control, snapshots)
	dispatcher := dispatch.NewDispatcher(control, sessions, history, logger)

	// Seed the device list so a client can select a device before the
	// first explicit /devices call.
	if _, err := sessions.RefreshDevices(context.Background()); err != nil {
		logger.Warn("initial device enumeration failed, will retry on demand", "error", err)
	}

	// Router
	router := api.NewRouter(api.RouterConfig{
		Control:         control,
		Sessions:        sessions,
		Dispatcher:      dispatcher,
		History:         history,
		HistoryLimit:    cfg.AuditHistoryLimit,
		PollMinInterval: cfg.PollMinInterval,
		Logger:          logger,
	})

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("cuebridge starting", "addr", addr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
