package bookings

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

var (
	AirlineColumns = []string{"airlie_id", "airline_name"}
	BookingColumns = []string{
		"airlie_id", "flght", "departure_dt", "arrival_dt", "dep_time", "arrivl_time", "booking_cd",
		"passngr_nm", "seat_no", "class", "fare", "extras", "loyalty_pts", "status", "gate", "terminal",
		"baggage_claim", "duration_hrs", "layovers", "layover_locations", "aircraft_type", "pilot",
		"cabin_crew", "inflight_ent", "meal_option", "wifi", "window_seat", "aisle_seat",
		"emergency_exit_row", "number_of_stops", "reward_program_member",
	}
)

// FileNames returns the airline and booking file names the warehouse expects for a format.
func FileNames(format string) (string, string, error) {
	switch format {
	case FormatCSV:
		return "Airline ID to Name.csv", "Flight Bookings.csv", nil
	case FormatParquet:
		return "Airline ID to Name.parquet", "Flight Bookings.parquet", nil
	default:
		return "", "", fmt.Errorf("unsupported format %q", format)
	}
}

func WriteAirlinesCSV(w io.Writer, airlines []Airline) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AirlineColumns); err != nil {
		return fmt.Errorf("write airline header: %w", err)
	}
	for _, a := range airlines {
		if err := cw.Write([]string{strconv.FormatInt(a.ID, 10), a.Name}); err != nil {
			return fmt.Errorf("write airline %d: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteBookingsCSV(w io.Writer, rows []Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BookingColumns); err != nil {
		return fmt.Errorf("write booking header: %w", err)
	}
	for _, b := range rows {
		if err := cw.Write(bookingRecord(b)); err != nil {
			return fmt.Errorf("write booking %s: %w", b.BookingCode, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func bookingRecord(b Booking) []string {
	return []string{
		strconv.FormatInt(b.AirlineID, 10), b.Flight, b.DepartureAt, b.ArrivalAt, b.DepartureTime,
		b.ArrivalTime, b.BookingCode, b.PassengerName, b.SeatNumber, b.Class,
		strconv.FormatFloat(b.Fare, 'f', 2, 64), b.Extras, strconv.FormatInt(b.LoyaltyPoints, 10),
		b.Status, b.Gate, b.Terminal, b.BaggageClaim, strconv.FormatFloat(b.DurationHours, 'f', 1, 64),
		strconv.FormatInt(b.Layovers, 10), b.LayoverLocations, b.AircraftType, b.Pilot, b.CabinCrew,
		b.InflightEntertain, b.MealOption, strconv.FormatBool(b.WiFi), strconv.FormatBool(b.WindowSeat),
		strconv.FormatBool(b.AisleSeat), strconv.FormatBool(b.EmergencyExitRow),
		strconv.FormatInt(b.NumberOfStops, 10), strconv.FormatBool(b.RewardProgramMember),
	}
}

func WriteParquet[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteDataset writes both source files into dir and returns their paths, airlines first.
func WriteDataset(dir, format string, airlines []Airline, rows []Booking) ([]string, error) {
	airlinesName, bookingsName, err := FileNames(format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	airlinesPath := filepath.Join(dir, airlinesName)
	bookingsPath := filepath.Join(dir, bookingsName)
	switch format {
	case FormatCSV:
		if err := writeFile(airlinesPath, func(w io.Writer) error { return WriteAirlinesCSV(w, airlines) }); err != nil {
			return nil, err
		}
		if err := writeFile(bookingsPath, func(w io.Writer) error { return WriteBookingsCSV(w, rows) }); err != nil {
			return nil, err
		}
	case FormatParquet:
		if err := writeFile(airlinesPath, func(w io.Writer) error { return WriteParquet(w, airlines) }); err != nil {
			return nil, err
		}
		if err := writeFile(bookingsPath, func(w io.Writer) error { return WriteParquet(w, rows) }); err != nil {
			return nil, err
		}
	}
	return []string{airlinesPath, bookingsPath}, nil
}

// Upload copies local files into the object store under prefix and returns the object keys.
func Upload(ctx context.Context, store storage.ObjectStore, prefix string, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, localPath := range paths {
		key, err := storage.SourceObjectKey(prefix, filepath.Base(localPath))
		if err != nil {
			return nil, err
		}
		if _, err := store.Upload(ctx, key, localPath); err != nil {
			return nil, fmt.Errorf("upload %q: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	return nil
}
