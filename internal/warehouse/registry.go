// Package warehouse owns the in-memory DuckDB database that holds the airlines and bookings tables.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/observability"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/schema"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
)

var (
	ErrNotInitialized    = errors.New("warehouse is not initialized")
	ErrSourceUnavailable = errors.New("source data is unavailable")
)

var timestampColumns = []string{"departure_dt", "arrival_dt"}

type Config struct {
	Source          string
	Dir             string
	AirlinesFile    string
	BookingsFile    string
	ObjectPrefix    string
	TimestampFormat string
	LoadTimeout     time.Duration
}

func ConfigFromSettings(cfg config.DataConfig) Config {
	return Config{
		Source:          cfg.Source,
		Dir:             cfg.Dir,
		AirlinesFile:    cfg.AirlinesFile,
		BookingsFile:    cfg.BookingsFile,
		ObjectPrefix:    cfg.ObjectPrefix,
		TimestampFormat: cfg.TimestampFormat,
		LoadTimeout:     cfg.LoadTimeout,
	}
}

// Registry loads the source tables once and hands out connections to the shared database.
type Registry struct {
	cfg    Config
	store  storage.ObjectStore
	logger *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	db      *sql.DB
	info    schema.Info
	lastErr error
}

func NewRegistry(cfg Config, store storage.ObjectStore, logger *slog.Logger) (*Registry, error) {
	if cfg.Source == "" {
		cfg.Source = config.SourceLocal
	}
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = "%d-%m-%Y %H:%M"
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 2 * time.Minute
	}
	if cfg.AirlinesFile == "" || cfg.BookingsFile == "" {
		return nil, fmt.Errorf("airlines and bookings files are required")
	}
	switch cfg.Source {
	case config.SourceLocal:
	case config.SourceS3:
		if store == nil {
			return nil, fmt.Errorf("object store is required for s3 sources")
		}
	default:
		return nil, fmt.Errorf("unsupported source %q", cfg.Source)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{cfg: cfg, store: store, logger: logger}, nil
}

// Initialize loads both tables on first use. Concurrent callers share one load, and a failed
// load leaves the registry empty so the next call retries.
func (r *Registry) Initialize(ctx context.Context) (schema.Info, error) {
	if info, ok := r.loaded(); ok {
		return info, nil
	}
	value, err, _ := r.group.Do("load", func() (any, error) {
		if info, ok := r.loaded(); ok {
			return info, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.LoadTimeout)
		defer cancel()

		start := time.Now()
		db, info, err := r.load(loadCtx)
		observability.ObserveSchemaLoad(err == nil)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.lastErr = err
			r.logger.Error("warehouse load failed", slog.String("source", r.cfg.Source), slog.Any("error", err))
			return schema.Info{}, err
		}
		r.db, r.info, r.lastErr = db, info, nil
		r.logger.Info("warehouse loaded",
			slog.String("source", r.cfg.Source),
			slog.Int("airlines_columns", len(info.Columns(schema.AirlinesTable))),
			slog.Int("bookings_columns", len(info.Columns(schema.BookingsTable))),
			slog.Duration("duration", time.Since(start)),
		)
		return info, nil
	})
	if err != nil {
		return schema.Info{}, err
	}
	return value.(schema.Info), nil
}

func (r *Registry) loaded() (schema.Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info, r.db != nil
}

// Schema returns the loaded schema without triggering a load.
func (r *Registry) Schema() (schema.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db != nil {
		return r.info, nil
	}
	if errors.Is(r.lastErr, ErrSourceUnavailable) {
		return schema.Info{}, r.lastErr
	}
	return schema.Info{}, ErrNotInitialized
}

// Conn returns a dedicated connection; the caller must close it.
func (r *Registry) Conn(ctx context.Context) (*sql.Conn, error) {
	r.mu.RLock()
	db := r.db
	r.mu.RUnlock()
	if db == nil {
		return nil, ErrNotInitialized
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire warehouse connection: %w", err)
	}
	return conn, nil
}

// Ready starts the load when nothing is loaded yet and waits for it until ctx ends.
// A load that outlives ctx keeps running and a later call picks up its result.
func (r *Registry) Ready(ctx context.Context) error {
	loaded := make(chan error, 1)
	go func() {
		_, err := r.Initialize(ctx)
		loaded <- err
	}()
	select {
	case err := <-loaded:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: load still running", ErrNotInitialized)
	}

	r.mu.RLock()
	db := r.db
	r.mu.RUnlock()
	if db == nil {
		return ErrNotInitialized
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping warehouse: %w", err)
	}
	return nil
}

// Reset drops the loaded database so the next Initialize reloads the sources.
func (r *Registry) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	db := r.db
	r.db, r.info, r.lastErr = nil, schema.Info{}, nil
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close warehouse: %w", err)
	}
	return nil
}

func (r *Registry) Close() error {
	return r.Reset()
}

func (r *Registry) load(ctx context.Context) (*sql.DB, schema.Info, error) {
	paths, cleanup, err := r.resolveSources(ctx)
	if err != nil {
		return nil, schema.Info{}, err
	}
	defer cleanup()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, schema.Info{}, fmt.Errorf("open duckdb: %w", err)
	}

	info, err := r.populate(ctx, db, paths)
	if err != nil {
		_ = db.Close()
		return nil, schema.Info{}, err
	}
	return db, info, nil
}

func (r *Registry) populate(ctx context.Context, db *sql.DB, paths sourcePaths) (schema.Info, error) {
	tables := []struct {
		name string
		path string
	}{
		{schema.AirlinesTable, paths.airlines},
		{schema.BookingsTable, paths.bookings},
	}
	for _, table := range tables {
		stmt := fmt.Sprintf(`CREATE TABLE %s AS SELECT * FROM %s`, quoteIdent(table.name), readerFor(table.path))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return schema.Info{}, fmt.Errorf("load table %q: %w", table.name, err)
		}
	}

	for _, column := range timestampColumns {
		if err := r.convertTimestamp(ctx, db, schema.BookingsTable, column); err != nil {
			return schema.Info{}, err
		}
	}

	info := schema.Info{}
	for _, table := range tables {
		columns, err := tableColumns(ctx, db, table.name)
		if err != nil {
			return schema.Info{}, err
		}
		info.Tables = append(info.Tables, schema.Table{Name: table.name, Columns: columns})
	}
	return info, nil
}

// convertTimestamp turns a text column into TIMESTAMP using the configured format.
// Columns the CSV sniffer already typed are left alone.
func (r *Registry) convertTimestamp(ctx context.Context, db *sql.DB, table, column string) error {
	var dataType string
	err := db.QueryRowContext(ctx,
		`SELECT data_type FROM information_schema.columns WHERE table_name = ? AND column_name = ?`,
		table, column,
	).Scan(&dataType)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Warn("timestamp column missing", slog.String("table", table), slog.String("column", column))
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect column %s.%s: %w", table, column, err)
	}
	if !strings.EqualFold(dataType, "VARCHAR") {
		return nil
	}
	stmt := fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s TYPE TIMESTAMP USING STRPTIME(%s, %s)`,
		quoteIdent(table), quoteIdent(column), quoteIdent(column), quoteLiteral(r.cfg.TimestampFormat))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("convert %s.%s to timestamp: %w", table, column, err)
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %q: %w", table, err)
	}
	return columns, nil
}

func readerFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return "read_parquet(" + quoteLiteral(path) + ")"
	}
	return "read_csv_auto(" + quoteLiteral(path) + ")"
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
