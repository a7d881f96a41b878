package migrations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var twoMigrations = fstest.MapFS{
	"sql/000001_one.up.sql":   {Data: []byte("CREATE TABLE one (id INT);")},
	"sql/000001_one.down.sql": {Data: []byte("DROP TABLE one;")},
	"sql/000002_two.up.sql":   {Data: []byte("CREATE TABLE two (id INT);")},
	"sql/000002_two.down.sql": {Data: []byte("DROP TABLE two;")},
}

func TestLoadMigrationsSortsAndPairsUpDown(t *testing.T) {
	items, err := loadMigrations(twoMigrations)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 || items[0].Name != "one" || items[1].Name != "two" {
		t.Fatalf("unexpected migration order: %+v", items)
	}
	if items[0].Checksum != checksumOf("CREATE TABLE one (id INT);") {
		t.Fatalf("checksum = %q", items[0].Checksum)
	}
}

func TestLoadMigrationsErrorsWhenDownMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_one.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := loadMigrations(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "missing down SQL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsRejectsMismatchedNames(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_one.up.sql":     {Data: []byte("SELECT 1;")},
		"sql/000001_other.down.sql": {Data: []byte("SELECT -1;")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for mismatched migration names")
	}
}

func TestUpAppliesPendingMigrations(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	expectSessionStart(mock, sqlmock.NewRows([]string{"version", "checksum", "applied_at"}).
		AddRow(int64(1), checksumOf("CREATE TABLE one (id INT);"), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE two`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO flightq_schema_migrations`).
		WithArgs(int64(2), "two", checksumOf("CREATE TABLE two (id INT);")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))

	runner := &Runner{fsys: twoMigrations}
	applied, err := runner.Up(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if applied != 1 {
		t.Fatalf("Up() applied = %d, want 1", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestUpRefusesDriftedMigration(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	expectSessionStart(mock, sqlmock.NewRows([]string{"version", "checksum", "applied_at"}).
		AddRow(int64(1), "stale", time.Now()))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))

	runner := &Runner{fsys: twoMigrations}
	applied, err := runner.Up(context.Background(), db, 0)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Up() error = %v, want ErrChecksumMismatch", err)
	}
	if applied != 0 {
		t.Fatalf("Up() applied = %d, want 0", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestDownRollsBackNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	expectSessionStart(mock, sqlmock.NewRows([]string{"version", "checksum", "applied_at"}).
		AddRow(int64(1), "", time.Now()).
		AddRow(int64(2), "", time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE two`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM flightq_schema_migrations`).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))

	runner := &Runner{fsys: twoMigrations}
	rolledBack, err := runner.Down(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if rolledBack != 1 {
		t.Fatalf("Down() rolled back = %d, want 1", rolledBack)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestStatusReportsAppliedVersions(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	appliedAt := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	expectSessionStart(mock, sqlmock.NewRows([]string{"version", "checksum", "applied_at"}).
		AddRow(int64(1), "edited", appliedAt))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(sqlmock.NewResult(0, 0))

	statuses, err := (&Runner{fsys: twoMigrations}).Status(context.Background(), db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("Status() = %+v", statuses)
	}
	first, second := statuses[0], statuses[1]
	if !first.Applied || !first.AppliedAt.Equal(appliedAt) || !first.Drifted || first.Name != "one" {
		t.Fatalf("Status()[0] = %+v", first)
	}
	if second.Applied || second.Drifted {
		t.Fatalf("Status()[1] = %+v", second)
	}
}

func expectSessionStart(mock sqlmock.Sqlmock, applied *sqlmock.Rows) {
	mock.ExpectExec(`SELECT pg_advisory_lock`).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS flightq_schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, checksum, applied_at FROM flightq_schema_migrations`).WillReturnRows(applied)
}

func checksumOf(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}
