package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"moodiary/backend/internal/auth"
	"moodiary/backend/internal/config"
	"moodiary/backend/internal/database"
	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/handler"
	"moodiary/backend/internal/hub"
	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/observability"
	"moodiary/backend/internal/relations"
	"moodiary/backend/internal/router"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd)
		},
	}
}

func serveRun(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		SampleRatio: cfg.OtelSampleRatio,
		Environment: cfg.LogMode,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}

	if err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, log); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	engine := buildEngine(cfg, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server is running", "addr", srv.Addr, "swagger", "http://localhost:"+cfg.Port+"/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
		if sqlDB, err := database.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return nil
	})
	return g.Wait()
}

func buildEngine(cfg *config.Config, log *logger.Logger) *gin.Engine {
	db := database.DB
	dir := directory.New(db)
	events := hub.NewHub(log)

	var metrics *observability.Metrics
	engineMetrics := relations.NewMetrics(nil)
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
		engineMetrics = relations.NewMetrics(metrics.Registry)
	}

	svc := relations.NewService(db, dir, dir, relations.Options{
		Logger:   log,
		Metrics:  engineMetrics,
		Notifier: events,
		Timeout:  cfg.OperationTimeout,
	})

	return router.New(router.Deps{
		Handler:        handler.New(db, svc, dir, events, cfg.JWTSecret, log),
		Auth:           auth.NewAuthenticator(cfg.JWTSecret, dir, log),
		Metrics:        metrics,
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins(),
		Tracing:        cfg.OtelEnabled,
	})
}
