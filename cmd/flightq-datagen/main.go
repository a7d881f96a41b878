package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/demo/bookings"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/observability"
	s3store "github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage/s3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", slog.Any("error", err))
	}

	svcCfg, err := config.LoadFromEnv("flightq-datagen")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(svcCfg, os.Stdout)

	cfg, err := bookings.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		logger.Error("failed to load datagen config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator := bookings.NewGenerator(cfg.Seed, cfg.Airlines, cfg.StartDate)
	airlines := generator.Airlines()
	paths, err := bookings.WriteDataset(cfg.OutputDir, cfg.Format, airlines, generator.Bookings(cfg.Bookings))
	if err != nil {
		logger.Error("failed to write dataset", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dataset written",
		slog.String("output_dir", cfg.OutputDir),
		slog.String("format", cfg.Format),
		slog.Int("airlines", len(airlines)),
		slog.Int("bookings", cfg.Bookings),
		slog.Int64("seed", cfg.Seed),
	)

	if !cfg.Upload {
		return
	}
	store, err := s3store.New(ctx, s3store.FromSettings(svcCfg.ObjectStore))
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}
	keys, err := bookings.Upload(ctx, store, cfg.ObjectPrefix, paths)
	if err != nil {
		logger.Error("failed to upload dataset", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dataset uploaded", slog.String("bucket", svcCfg.ObjectStore.Bucket), slog.Any("keys", keys))
}
