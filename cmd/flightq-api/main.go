package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/answer"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/api"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/api/uistatic"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/nl2sql"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/observability"
	duckdbengine "github.com/Nyyxoyy/flight-booking-data-analysis/internal/query/duckdb"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog"
	querylogpostgres "github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog/postgres"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
	s3store "github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage/s3"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/warehouse"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("flightq-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	var objectStore storage.ObjectStore
	if cfg.Data.Source == config.SourceS3 {
		store, err := s3store.New(context.Background(), s3store.FromSettings(cfg.ObjectStore))
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		objectStore = store
	}

	registry, err := warehouse.NewRegistry(warehouse.ConfigFromSettings(cfg.Data), objectStore, logger)
	if err != nil {
		logger.Error("failed to initialize warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = registry.Close() }()
	go func() {
		if _, err := registry.Initialize(context.Background()); err != nil {
			logger.Warn("warehouse warm-up failed; readiness will retry", slog.Any("error", err))
		}
	}()

	completer, err := nl2sql.NewCompleter(cfg.AI)
	if err != nil {
		logger.Error("failed to initialize model client", slog.Any("error", err))
		os.Exit(1)
	}

	var recorder querylog.Recorder = querylog.Nop{}
	readiness := []api.ReadinessCheck{registry.Ready}
	if cfg.AnswerLog.Enabled() {
		var answerLogDB *sql.DB
		answerLogDB, err = querylogpostgres.Open(context.Background(), querylogpostgres.DBConfigFromSettings(cfg.AnswerLog))
		if err != nil {
			logger.Error("failed to open answer log db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = answerLogDB.Close() }()
		pgRecorder := querylogpostgres.NewRecorder(answerLogDB)
		recorder = pgRecorder
		readiness = append(readiness, pgRecorder.HealthCheck)
	}

	service, err := answer.NewService(answer.Config{
		Schemas:   registry,
		Completer: completer,
		Engine:    duckdbengine.NewEngine(registry),
		Recorder:  recorder,
		Logger:    logger,
		ModelName: cfg.AI.Model,
	})
	if err != nil {
		logger.Error("failed to initialize answer service", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
		Answerer:          service,
		Warehouse:         registry,
		History:           recorder,
	}
	if cfg.HTTP.ServeUI {
		deps.UI = uistatic.Handler()
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("data_source", cfg.Data.Source),
			slog.String("ai_provider", cfg.AI.Provider),
			slog.String("ai_model", cfg.AI.Model),
			slog.Bool("answer_log", cfg.AnswerLog.Enabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
