package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/migrations"
	querylogpostgres "github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog/postgres"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down|status")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv("flightq-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if !cfg.AnswerLog.Enabled() {
		fmt.Fprintln(os.Stderr, "FLIGHTQ_ANSWER_LOG_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := querylogpostgres.Open(ctx, querylogpostgres.DBConfigFromSettings(cfg.AnswerLog))
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runner := migrations.NewRunner()
	switch *direction {
	case "up":
		applied, err := runner.Up(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration up failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("applied %d migration(s)\n", applied)
	case "down":
		applied, err := runner.Down(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d migration(s)\n", applied)
	case "status":
		statuses, err := runner.Status(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration status failed: %v\n", err)
			os.Exit(1)
		}
		drifted := false
		for _, status := range statuses {
			switch {
			case status.Drifted:
				drifted = true
				fmt.Printf("%06d %-20s drifted  applied %s\n", status.Version, status.Name, status.AppliedAt.UTC().Format(time.RFC3339))
			case status.Applied:
				fmt.Printf("%06d %-20s applied  %s\n", status.Version, status.Name, status.AppliedAt.UTC().Format(time.RFC3339))
			default:
				fmt.Printf("%06d %-20s pending\n", status.Version, status.Name)
			}
		}
		if drifted {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(1)
	}
}
