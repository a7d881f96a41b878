// Package warehousetest builds small, deterministic warehouses for tests.
package warehousetest

import (
	"context"
	"testing"
	"time"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/demo/bookings"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/warehouse"
)

const (
	Seed         = 20230101
	AirlineCount = 4
	BookingCount = 300
)

type Fixture struct {
	Dir      string
	Airlines []bookings.Airline
	Bookings []bookings.Booking
}

// ClassCounts returns how many bookings each travel class has.
func (f Fixture) ClassCounts() map[string]int64 {
	counts := map[string]int64{}
	for _, b := range f.Bookings {
		counts[b.Class]++
	}
	return counts
}

// WriteSources writes the airline and booking CSV files into a fresh temp dir.
func WriteSources(tb testing.TB) Fixture {
	tb.Helper()
	dir := tb.TempDir()
	g := bookings.NewGenerator(Seed, AirlineCount, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC))
	fixture := Fixture{Dir: dir, Airlines: g.Airlines(), Bookings: g.Bookings(BookingCount)}
	if _, err := bookings.WriteDataset(dir, bookings.FormatCSV, fixture.Airlines, fixture.Bookings); err != nil {
		tb.Fatalf("write fixture dataset: %v", err)
	}
	return fixture
}

func LocalConfig(dir string) warehouse.Config {
	airlines, bookingsFile, _ := bookings.FileNames(bookings.FormatCSV)
	return warehouse.Config{
		Source:          config.SourceLocal,
		Dir:             dir,
		AirlinesFile:    airlines,
		BookingsFile:    bookingsFile,
		TimestampFormat: "%d-%m-%Y %H:%M",
		LoadTimeout:     time.Minute,
	}
}

// Open writes the fixture sources and returns an initialized registry that is reset on cleanup.
func Open(tb testing.TB) (*warehouse.Registry, Fixture) {
	tb.Helper()
	fixture := WriteSources(tb)
	registry, err := warehouse.NewRegistry(LocalConfig(fixture.Dir), nil, nil)
	if err != nil {
		tb.Fatalf("NewRegistry() error = %v", err)
	}
	tb.Cleanup(func() { _ = registry.Reset() })
	if _, err := registry.Initialize(context.Background()); err != nil {
		tb.Fatalf("Initialize() error = %v", err)
	}
	return registry, fixture
}
