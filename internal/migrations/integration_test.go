//go:build integration

package migrations_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/migrations"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog"
	querylogpostgres "github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog/postgres"
)

func TestAnswerLogSchemaSupportsRecorder(t *testing.T) {
	adminDSN := strings.TrimSpace(os.Getenv("FLIGHTQ_TEST_ANSWER_LOG_DSN"))
	if adminDSN == "" {
		t.Skip("FLIGHTQ_TEST_ANSWER_LOG_DSN is not set")
	}
	db := openScratchDatabase(t, adminDSN)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runner := migrations.NewRunner()
	if _, err := runner.Up(ctx, db, 0); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	// Up is idempotent once everything is applied.
	if applied, err := runner.Up(ctx, db, 0); err != nil || applied != 0 {
		t.Fatalf("second Up() = %d, %v", applied, err)
	}

	statuses, err := runner.Status(ctx, db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	for _, status := range statuses {
		if !status.Applied || status.Drifted || status.AppliedAt.IsZero() {
			t.Fatalf("status after Up() = %+v", status)
		}
	}

	recorder := querylogpostgres.NewRecorder(db)
	entry := querylog.Entry{
		Question:   "How many bookings per class?",
		Statement:  "SELECT class, COUNT(*) FROM bookings GROUP BY class",
		Outcome:    "table",
		Stage:      "done",
		RowCount:   3,
		DurationMs: 42,
	}
	if err := recorder.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	recent, err := recorder.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].Question != entry.Question || recent[0].RowCount != 3 {
		t.Fatalf("Recent() = %+v", recent)
	}

	bad := entry
	bad.Outcome = "maybe"
	if err := recorder.Record(ctx, bad); err == nil {
		t.Fatal("expected outcome check constraint to reject unknown outcome")
	}

	if rolledBack, err := runner.Down(ctx, db, 1); err != nil || rolledBack != 1 {
		t.Fatalf("Down() = %d, %v", rolledBack, err)
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = 'answer_log'`).Scan(&count); err != nil {
		t.Fatalf("query pg_tables: %v", err)
	}
	if count != 0 {
		t.Fatal("answer_log still exists after Down()")
	}
}

// openScratchDatabase creates a throwaway database next to the one in adminDSN and drops it on cleanup.
func openScratchDatabase(t *testing.T, adminDSN string) *sql.DB {
	t.Helper()

	parsed, err := url.Parse(adminDSN)
	if err != nil {
		t.Fatalf("parse admin DSN: %v", err)
	}
	adminDB, err := sql.Open("pgx", adminDSN)
	if err != nil {
		t.Fatalf("open admin db: %v", err)
	}
	t.Cleanup(func() { _ = adminDB.Close() })

	name := fmt.Sprintf("flightq_it_%d", time.Now().UnixNano())
	if _, err := adminDB.Exec(`CREATE DATABASE ` + name); err != nil {
		t.Fatalf("CREATE DATABASE %s: %v", name, err)
	}

	scratch := *parsed
	scratch.Path = "/" + name
	db, err := sql.Open("pgx", scratch.String())
	if err != nil {
		t.Fatalf("open scratch db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		_, _ = adminDB.Exec(`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, name)
		if _, err := adminDB.Exec(`DROP DATABASE ` + name); err != nil {
			t.Errorf("DROP DATABASE %s: %v", name, err)
		}
	})
	return db
}
