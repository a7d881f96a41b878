package bookings

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	OutputDir    string
	Format       string
	Bookings     int
	Airlines     int
	Seed         int64
	StartDate    time.Time
	Upload       bool
	ObjectPrefix string
}

func DefaultConfig() Config {
	return Config{
		OutputDir:    "data",
		Format:       FormatCSV,
		Bookings:     5000,
		Airlines:     len(airlineNames),
		Seed:         time.Now().UTC().UnixNano(),
		StartDate:    time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		Upload:       false,
		ObjectPrefix: "datasets/flight-bookings",
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "FLIGHTQ_DATAGEN_OUTPUT_DIR", &cfg.OutputDir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FLIGHTQ_DATAGEN_FORMAT", &cfg.Format); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FLIGHTQ_DATAGEN_BOOKINGS", &cfg.Bookings); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FLIGHTQ_DATAGEN_AIRLINES", &cfg.Airlines); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "FLIGHTQ_DATAGEN_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if err := applyDate(lookup, "FLIGHTQ_DATAGEN_START_DATE", &cfg.StartDate); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FLIGHTQ_DATAGEN_UPLOAD", &cfg.Upload); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FLIGHTQ_DATA_OBJECT_PREFIX", &cfg.ObjectPrefix); err != nil {
		return Config{}, err
	}

	cfg.Format = strings.ToLower(cfg.Format)
	if _, _, err := FileNames(cfg.Format); err != nil {
		return Config{}, fmt.Errorf("invalid FLIGHTQ_DATAGEN_FORMAT: %w", err)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return Config{}, fmt.Errorf("FLIGHTQ_DATAGEN_OUTPUT_DIR is required")
	}
	if cfg.Bookings <= 0 {
		return Config{}, fmt.Errorf("FLIGHTQ_DATAGEN_BOOKINGS must be > 0")
	}
	if cfg.Airlines <= 0 || cfg.Airlines > len(airlineNames) {
		return Config{}, fmt.Errorf("FLIGHTQ_DATAGEN_AIRLINES must be between 1 and %d", len(airlineNames))
	}
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyDate(lookup LookupFunc, key string, dst *time.Time) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
