// Command extract-batch runs OCR and field extraction over a directory or S3
// prefix of receipt images and writes a CSV or XLSX report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/bootstrap"
	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/port"
	"github.com/ProstoyVadila/ml-service/internal/report"
	"github.com/ProstoyVadila/ml-service/internal/service"
	"github.com/ProstoyVadila/ml-service/internal/storage/local"
	s3storage "github.com/ProstoyVadila/ml-service/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir := flag.String("dir", "", "local directory with receipt images")
	prefix := flag.String("s3-prefix", "", "S3 key prefix with receipt images (bucket from ML_S3_BUCKET)")
	out := flag.String("out", "receipts.xlsx", "report path (.csv or .xlsx)")
	workers := flag.Int("workers", 0, "concurrent images (0 uses app.workers)")
	itemTimeout := flag.Duration("item-timeout", 2*time.Minute, "per-image timeout")
	flag.Parse()

	if (*dir == "") == (*prefix == "") {
		return errors.New("exactly one of -dir or -s3-prefix is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := imageSource(ctx, cfg, *dir, *prefix)
	if err != nil {
		return err
	}

	pipeline, err := bootstrap.New(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() { _ = pipeline.Close() }()

	keys, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	if len(keys) == 0 {
		l.Warn("no images found")
		return nil
	}

	n := *workers
	if n <= 0 {
		n = cfg.App.Workers
	}
	runner := service.NewBatchRunner(pipeline.Service, service.BatchConfig{Workers: n, ItemTimeout: *itemTimeout}, l)

	start := time.Now()
	results := runner.Run(ctx, src, keys)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	if err := report.WriteFile(*out, report.FromBatch(results)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	l.Info("batch complete",
		zap.Int("images", len(results)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("report", *out),
	)
	return nil
}

func imageSource(ctx context.Context, cfg *config.Config, dir, prefix string) (port.ImageSource, error) {
	if dir != "" {
		return local.NewImageSource(dir), nil
	}
	if cfg.S3.Bucket == "" {
		return nil, errors.New("ML_S3_BUCKET is required with -s3-prefix")
	}
	client, err := s3storage.NewClient(ctx, &cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	return s3storage.NewImageSource(client, cfg.S3.Bucket, prefix), nil
}
