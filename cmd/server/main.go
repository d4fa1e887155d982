package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/bootstrap"
	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/handler"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/middleware"
	"github.com/ProstoyVadila/ml-service/internal/repository/postgres"
	"github.com/ProstoyVadila/ml-service/internal/router"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	if cfg.App.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres only backs the readiness probe.
	var db handler.Pinger
	if cfg.Postgres.Enabled {
		conn, err := postgres.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer conn.Close()
		db = conn
	}

	pipeline, err := bootstrap.New(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			l.Warn("pipeline close failed", zap.Error(err))
		}
	}()

	healthH := handler.NewHealthHandler(cfg.App.Name, db)
	extractH := handler.NewExtractionHandler(pipeline.Service, cfg.Server.MaxUploadBytes, l)

	r := router.Setup(router.Options{
		Logger:         l,
		Throttler:      middleware.NewThrottler(cfg.Throttling.RateLimitPerMinute),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, healthH, extractH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", zap.String("addr", srv.Addr), zap.String("version", cfg.App.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
