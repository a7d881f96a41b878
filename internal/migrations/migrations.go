// Package migrations owns the answer log schema. Scripts are embedded from sql/ and named
// NNNNNN_description.up.sql / .down.sql.
package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const (
	migrationTable = "flightq_schema_migrations"
	// advisoryLockKey serializes flightq-migrate runs against one database.
	advisoryLockKey int64 = 0x666c6967687471
)

var (
	migrationNamePattern = regexp.MustCompile(`^([0-9]+)_(.+)\.(up|down)\.sql$`)

	ErrChecksumMismatch = errors.New("applied migration differs from embedded script")
)

// Runner applies the embedded answer log migrations in version order.
type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

// Status describes one known migration. Drifted is set when the applied checksum no longer
// matches the embedded up script.
type Status struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
	Drifted   bool
}

type migration struct {
	Version  int64
	Name     string
	UpSQL    string
	DownSQL  string
	Checksum string
}

type appliedMigration struct {
	Version   int64
	Checksum  string
	AppliedAt time.Time
}

// session is a migration run holding the advisory lock on a single connection.
type session struct {
	conn       *sql.Conn
	migrations []migration
	applied    []appliedMigration
}

// Up applies pending migrations in ascending order. steps <= 0 applies all of them.
// A drifted applied migration stops the run before anything executes.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	var runCount int
	err := r.withSession(ctx, db, func(s *session) error {
		applied := make(map[int64]appliedMigration, len(s.applied))
		for _, row := range s.applied {
			applied[row.Version] = row
		}
		for _, item := range s.migrations {
			if row, ok := applied[item.Version]; ok && row.Checksum != "" && row.Checksum != item.Checksum {
				return fmt.Errorf("%w: version %d (%s)", ErrChecksumMismatch, item.Version, item.Name)
			}
		}
		for _, item := range s.migrations {
			if _, ok := applied[item.Version]; ok {
				continue
			}
			if steps > 0 && runCount >= steps {
				break
			}
			if err := s.apply(ctx, item); err != nil {
				return err
			}
			runCount++
		}
		return nil
	})
	return runCount, err
}

// Down rolls back the newest applied migrations. steps <= 0 rolls back one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	var runCount int
	err := r.withSession(ctx, db, func(s *session) error {
		known := make(map[int64]migration, len(s.migrations))
		for _, item := range s.migrations {
			known[item.Version] = item
		}
		for i := len(s.applied) - 1; i >= 0 && runCount < steps; i-- {
			version := s.applied[i].Version
			item, ok := known[version]
			if !ok {
				return fmt.Errorf("applied migration %d is missing from source", version)
			}
			if err := s.rollback(ctx, item); err != nil {
				return err
			}
			runCount++
		}
		return nil
	})
	return runCount, err
}

// Status reports every known migration and whether it has been applied.
func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	var out []Status
	err := r.withSession(ctx, db, func(s *session) error {
		applied := make(map[int64]appliedMigration, len(s.applied))
		for _, row := range s.applied {
			applied[row.Version] = row
		}
		out = make([]Status, 0, len(s.migrations))
		for _, item := range s.migrations {
			status := Status{Version: item.Version, Name: item.Name}
			if row, ok := applied[item.Version]; ok {
				status.Applied = true
				status.AppliedAt = row.AppliedAt
				status.Drifted = row.Checksum != "" && row.Checksum != item.Checksum
			}
			out = append(out, status)
		}
		return nil
	})
	return out, err
}

func (r *Runner) withSession(ctx context.Context, db *sql.DB, fn func(*session) error) error {
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, advisoryLockKey)
	}()

	s := &session{conn: conn, migrations: migrations}
	if err := s.ensureTable(ctx); err != nil {
		return err
	}
	if s.applied, err = s.listApplied(ctx); err != nil {
		return err
	}
	return fn(s)
}

func (s *session) ensureTable(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	checksum TEXT NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func (s *session) listApplied(ctx context.Context) ([]appliedMigration, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT version, checksum, applied_at FROM `+migrationTable+` ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var applied []appliedMigration
	for rows.Next() {
		var row appliedMigration
		if err := rows.Scan(&row.Version, &row.Checksum, &row.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

func (s *session) apply(ctx context.Context, item migration) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, item.UpSQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", item.Version, item.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+migrationTable+` (version, name, checksum) VALUES ($1, $2, $3)`,
			item.Version, item.Name, item.Checksum,
		); err != nil {
			return fmt.Errorf("mark migration %d: %w", item.Version, err)
		}
		return nil
	})
}

func (s *session) rollback(ctx context.Context, item migration) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, item.DownSQL); err != nil {
			return fmt.Errorf("rollback migration %d (%s): %w", item.Version, item.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+migrationTable+` WHERE version = $1`, item.Version); err != nil {
			return fmt.Errorf("unmark migration %d: %w", item.Version, err)
		}
		return nil
	})
}

func (s *session) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	byVersion := map[int64]*migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationNamePattern.FindStringSubmatch(path.Base(entry.Name()))
		if matches == nil {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", entry.Name(), err)
		}
		script, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		item, ok := byVersion[version]
		if !ok {
			item = &migration{Version: version, Name: matches[2]}
			byVersion[version] = item
		} else if item.Name != matches[2] {
			return nil, fmt.Errorf("migration %d has mismatched names %q and %q", version, item.Name, matches[2])
		}
		if matches[3] == "up" {
			item.UpSQL = string(script)
		} else {
			item.DownSQL = string(script)
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, item := range byVersion {
		if strings.TrimSpace(item.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", item.Version)
		}
		if strings.TrimSpace(item.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", item.Version)
		}
		sum := sha256.Sum256([]byte(item.UpSQL))
		item.Checksum = hex.EncodeToString(sum[:])
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
