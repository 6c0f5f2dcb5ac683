package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/api"
	"github.com/lalith-99/streams/internal/config"
	"github.com/lalith-99/streams/internal/db"
	"github.com/lalith-99/streams/internal/observ"
	"github.com/lalith-99/streams/internal/persist"
	"github.com/lalith-99/streams/internal/repository"
	"github.com/lalith-99/streams/internal/repository/memory"
	"github.com/lalith-99/streams/internal/repository/postgres"
	"github.com/lalith-99/streams/internal/service"
	"github.com/lalith-99/streams/internal/stats"
	"github.com/lalith-99/streams/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel, cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	checks := map[string]api.HealthCheck{}

	// ---------------------------------------------------------------
	// 3. Pick the snapshot backend
	// ---------------------------------------------------------------
	var snapshots repository.SnapshotStore
	switch cfg.SnapshotBackend {
	case config.BackendFile:
		snapshots = persist.NewFileStore(cfg.SnapshotPath)
	case config.BackendPostgres:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		snapshots = postgres.NewSnapshotStore(database.Pool())
		checks["postgres"] = database.Health
	case config.BackendNone:
		logger.Warn("snapshots disabled, state is lost on restart")
	}

	// ---------------------------------------------------------------
	// 4. Optional Redis stats mirror
	// ---------------------------------------------------------------
	hub := ws.NewHub(logger)
	opts := []service.Option{service.WithNotifier(hub)}
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		opts = append(opts, service.WithStatsMirror(stats.NewRedisSink(rdb, "streams:stats:")))
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// ---------------------------------------------------------------
	// 5. Build the service and restore the last snapshot
	// ---------------------------------------------------------------
	svc := service.New(memory.New(), service.Options{
		JWTSecret:              cfg.JWTSecret,
		TokenTTL:               cfg.TokenTTL,
		BaseURL:                cfg.BaseURL,
		PinDeniedAsAccess:      cfg.PinDeniedAsAccess,
		RevalidateDeferredSend: cfg.RevalidateDeferredSend,
	}, logger, opts...)

	var loop *persist.Loop
	if snapshots != nil {
		loop = persist.NewLoop(svc, snapshots, cfg.SnapshotInterval, logger)
		if _, err := loop.Restore(ctx); err != nil {
			return err
		}
	}

	// ---------------------------------------------------------------
	// 6. Start the HTTP server and the snapshot loop
	// ---------------------------------------------------------------
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(svc, hub, logger, checks),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting streams",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("snapshot_backend", cfg.SnapshotBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	loopDone := make(chan error, 1)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	if loop != nil {
		go func() { loopDone <- loop.Run(loopCtx) }()
	} else {
		loopDone <- nil
	}

	// ---------------------------------------------------------------
	// 7. Wait for a signal, then drain requests before the final save
	// ---------------------------------------------------------------
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	stopLoop()
	return <-loopDone
}
