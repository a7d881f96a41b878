package warehouse_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/demo/bookings"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/schema"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage/storagetest"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/warehouse"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/warehouse/warehousetest"
)

func TestInitializeLoadsTablesAndSchema(t *testing.T) {
	registry, fixture := warehousetest.Open(t)

	info, err := registry.Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	airlineCols := info.Columns(schema.AirlinesTable)
	if len(airlineCols) != 2 || airlineCols[0] != "airlie_id" || airlineCols[1] != "airline_name" {
		t.Fatalf("airlines columns = %v", airlineCols)
	}
	bookingCols := info.Columns(schema.BookingsTable)
	if len(bookingCols) != len(bookings.BookingColumns) {
		t.Fatalf("bookings columns = %v", bookingCols)
	}
	for i, name := range bookings.BookingColumns {
		if bookingCols[i] != name {
			t.Fatalf("bookings column %d = %q, want %q", i, bookingCols[i], name)
		}
	}

	conn, err := registry.Conn(context.Background())
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	var count int64
	if err := conn.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM bookings`).Scan(&count); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != int64(len(fixture.Bookings)) {
		t.Fatalf("bookings count = %d, want %d", count, len(fixture.Bookings))
	}

	var dataType string
	if err := conn.QueryRowContext(context.Background(),
		`SELECT data_type FROM information_schema.columns WHERE table_name = 'bookings' AND column_name = 'departure_dt'`,
	).Scan(&dataType); err != nil {
		t.Fatalf("inspect departure_dt: %v", err)
	}
	if dataType != "TIMESTAMP" {
		t.Fatalf("departure_dt type = %q, want TIMESTAMP", dataType)
	}

	var departure time.Time
	if err := conn.QueryRowContext(context.Background(),
		`SELECT departure_dt FROM bookings WHERE booking_cd = ?`, fixture.Bookings[0].BookingCode,
	).Scan(&departure); err != nil {
		t.Fatalf("select departure_dt: %v", err)
	}
	if got := departure.Format(bookings.TimestampLayout); got != fixture.Bookings[0].DepartureAt {
		t.Fatalf("departure_dt = %q, want %q", got, fixture.Bookings[0].DepartureAt)
	}
}

func TestSchemaBeforeInitialize(t *testing.T) {
	fixture := warehousetest.WriteSources(t)
	registry, err := warehouse.NewRegistry(warehousetest.LocalConfig(fixture.Dir), nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, err := registry.Schema(); !errors.Is(err, warehouse.ErrNotInitialized) {
		t.Fatalf("Schema() error = %v, want ErrNotInitialized", err)
	}
	if _, err := registry.Conn(context.Background()); !errors.Is(err, warehouse.ErrNotInitialized) {
		t.Fatalf("Conn() error = %v, want ErrNotInitialized", err)
	}
}

func TestReadyTriggersFirstLoad(t *testing.T) {
	fixture := warehousetest.WriteSources(t)
	registry, err := warehouse.NewRegistry(warehousetest.LocalConfig(fixture.Dir), nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(func() { _ = registry.Reset() })

	if err := registry.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	info, err := registry.Schema()
	if err != nil {
		t.Fatalf("Schema() after Ready() error = %v", err)
	}
	if len(info.Columns("bookings")) == 0 {
		t.Fatalf("Schema() = %+v", info)
	}
}

func TestReadyReportsUnavailableSources(t *testing.T) {
	registry, err := warehouse.NewRegistry(warehousetest.LocalConfig(t.TempDir()), nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if err := registry.Ready(context.Background()); !errors.Is(err, warehouse.ErrSourceUnavailable) {
		t.Fatalf("Ready() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestReadyGivesUpWhenContextEnds(t *testing.T) {
	fixture := warehousetest.WriteSources(t)
	registry, err := warehouse.NewRegistry(warehousetest.LocalConfig(fixture.Dir), nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(func() { _ = registry.Reset() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = registry.Ready(ctx)
	if err != nil && !errors.Is(err, warehouse.ErrNotInitialized) {
		t.Fatalf("Ready() error = %v, want nil or ErrNotInitialized", err)
	}
	if _, err := registry.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() after cancelled Ready() error = %v", err)
	}
}

func TestInitializeMissingSourceThenRetry(t *testing.T) {
	fixture := warehousetest.WriteSources(t)
	bookingsPath := filepath.Join(fixture.Dir, "Flight Bookings.csv")
	hidden := bookingsPath + ".hidden"
	if err := os.Rename(bookingsPath, hidden); err != nil {
		t.Fatalf("rename: %v", err)
	}

	registry, err := warehouse.NewRegistry(warehousetest.LocalConfig(fixture.Dir), nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(func() { _ = registry.Reset() })

	if _, err := registry.Initialize(context.Background()); !errors.Is(err, warehouse.ErrSourceUnavailable) {
		t.Fatalf("Initialize() error = %v, want ErrSourceUnavailable", err)
	}
	if _, err := registry.Schema(); !errors.Is(err, warehouse.ErrSourceUnavailable) {
		t.Fatalf("Schema() error = %v, want ErrSourceUnavailable", err)
	}

	if err := os.Rename(hidden, bookingsPath); err != nil {
		t.Fatalf("rename back: %v", err)
	}
	if _, err := registry.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() retry error = %v", err)
	}
	if err := registry.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}

func TestConcurrentInitializeSharesOneSchema(t *testing.T) {
	fixture := warehousetest.WriteSources(t)
	registry, err := warehouse.NewRegistry(warehousetest.LocalConfig(fixture.Dir), nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(func() { _ = registry.Reset() })

	const callers = 8
	var wg sync.WaitGroup
	results := make([]schema.Info, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = registry.Initialize(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Initialize() caller %d error = %v", i, errs[i])
		}
		if len(results[i].Tables) != 2 {
			t.Fatalf("caller %d tables = %d", i, len(results[i].Tables))
		}
	}

	conn, err := registry.Conn(context.Background())
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	defer func() { _ = conn.Close() }()
	var tables int64
	if err := conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('airlines', 'bookings')`,
	).Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 2 {
		t.Fatalf("tables = %d, want a single load", tables)
	}
}

func TestResetAllowsReload(t *testing.T) {
	registry, _ := warehousetest.Open(t)

	if err := registry.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := registry.Schema(); !errors.Is(err, warehouse.ErrNotInitialized) {
		t.Fatalf("Schema() after Reset error = %v", err)
	}
	if _, err := registry.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() after Reset error = %v", err)
	}
}

func TestInitializeFromObjectStoreParquet(t *testing.T) {
	dir := t.TempDir()
	g := bookings.NewGenerator(11, 3, time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC))
	paths, err := bookings.WriteDataset(dir, bookings.FormatParquet, g.Airlines(), g.Bookings(40))
	if err != nil {
		t.Fatalf("WriteDataset() error = %v", err)
	}
	store := storagetest.NewMemory()
	if _, err := bookings.Upload(context.Background(), store, "datasets/demo", paths); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	airlinesFile, bookingsFile, _ := bookings.FileNames(bookings.FormatParquet)
	registry, err := warehouse.NewRegistry(warehouse.Config{
		Source:       config.SourceS3,
		AirlinesFile: airlinesFile,
		BookingsFile: bookingsFile,
		ObjectPrefix: "datasets/demo",
	}, store, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(func() { _ = registry.Reset() })

	info, err := registry.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if cols := info.Columns(schema.BookingsTable); len(cols) != len(bookings.BookingColumns) {
		t.Fatalf("bookings columns = %v", cols)
	}
}

func TestInitializeMissingObject(t *testing.T) {
	registry, err := warehouse.NewRegistry(warehouse.Config{
		Source:       config.SourceS3,
		AirlinesFile: "Airline ID to Name.csv",
		BookingsFile: "Flight Bookings.csv",
		ObjectPrefix: "datasets/empty",
	}, storagetest.NewMemory(), nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, err := registry.Initialize(context.Background()); !errors.Is(err, warehouse.ErrSourceUnavailable) {
		t.Fatalf("Initialize() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestNewRegistryValidatesConfig(t *testing.T) {
	if _, err := warehouse.NewRegistry(warehouse.Config{}, nil, nil); err == nil {
		t.Fatal("expected error without file names")
	}
	if _, err := warehouse.NewRegistry(warehouse.Config{Source: config.SourceS3, AirlinesFile: "a.csv", BookingsFile: "b.csv"}, nil, nil); err == nil {
		t.Fatal("expected error without object store for s3")
	}
	if _, err := warehouse.NewRegistry(warehouse.Config{Source: "ftp", AirlinesFile: "a.csv", BookingsFile: "b.csv"}, nil, nil); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
