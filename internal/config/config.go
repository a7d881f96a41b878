package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	SourceLocal = "local"
	SourceS3    = "s3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Data          DataConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	AnswerLog     AnswerLogConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// CORSOrigins lists browser origins allowed to call the API. "*" allows any origin.
	CORSOrigins  []string
	ServeUI      bool
}

type DataConfig struct {
	Source          string
	Dir             string
	AirlinesFile    string
	BookingsFile    string
	ObjectPrefix    string
	TimestampFormat string
	LoadTimeout     time.Duration
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type AIConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type AnswerLogConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func (c AnswerLogConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("FLIGHTQ_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid FLIGHTQ_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	env := &envReader{lookup: lookup}
	// Legacy variable names are read first so FLIGHTQ_* wins.
	env.str("OLLAMA_URL", &cfg.AI.BaseURL)
	env.str("LLM_MODEL", &cfg.AI.Model)

	env.str("FLIGHTQ_SERVICE_NAME", &cfg.Service.Name)
	cfg.HTTP.load(env)
	cfg.Data.load(env)
	cfg.ObjectStore.load(env)
	cfg.AI.load(env)
	cfg.AnswerLog.load(env)
	cfg.Observability.load(env)
	if env.err != nil {
		return Config{}, env.err
	}

	cfg.Data.Source = strings.ToLower(cfg.Data.Source)
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting, not just the first.
func (c Config) Validate() error {
	var errs []error
	if c.Service.Name == "" {
		errs = append(errs, fmt.Errorf("service name is required"))
	}
	if c.HTTP.Address == "" {
		errs = append(errs, fmt.Errorf("http address is required"))
	}
	errs = append(errs, c.Data.validate(), c.AI.validate(), c.AnswerLog.validate())
	return errors.Join(errs...)
}

func (h *HTTPConfig) load(env *envReader) {
	env.str("FLIGHTQ_HTTP_ADDR", &h.Address)
	env.duration("FLIGHTQ_HTTP_READ_TIMEOUT", &h.ReadTimeout)
	env.duration("FLIGHTQ_HTTP_WRITE_TIMEOUT", &h.WriteTimeout)
	env.duration("FLIGHTQ_HTTP_IDLE_TIMEOUT", &h.IdleTimeout)
	env.list("FLIGHTQ_HTTP_CORS_ORIGINS", &h.CORSOrigins)
	env.boolean("FLIGHTQ_HTTP_SERVE_UI", &h.ServeUI)
}

func (d *DataConfig) load(env *envReader) {
	env.str("FLIGHTQ_DATA_SOURCE", &d.Source)
	env.str("FLIGHTQ_DATA_DIR", &d.Dir)
	env.str("FLIGHTQ_DATA_AIRLINES_FILE", &d.AirlinesFile)
	env.str("FLIGHTQ_DATA_BOOKINGS_FILE", &d.BookingsFile)
	env.str("FLIGHTQ_DATA_OBJECT_PREFIX", &d.ObjectPrefix)
	env.str("FLIGHTQ_DATA_TIMESTAMP_FORMAT", &d.TimestampFormat)
	env.duration("FLIGHTQ_DATA_LOAD_TIMEOUT", &d.LoadTimeout)
}

func (d DataConfig) validate() error {
	switch d.Source {
	case SourceLocal, SourceS3:
	default:
		return fmt.Errorf("invalid FLIGHTQ_DATA_SOURCE: %q", d.Source)
	}
	if d.AirlinesFile == "" || d.BookingsFile == "" {
		return fmt.Errorf("airlines and bookings source files are required")
	}
	if d.TimestampFormat == "" {
		return fmt.Errorf("FLIGHTQ_DATA_TIMESTAMP_FORMAT must not be empty")
	}
	return nil
}

func (o *ObjectStoreConfig) load(env *envReader) {
	env.str("FLIGHTQ_OBJECTSTORE_ENDPOINT", &o.Endpoint)
	env.str("FLIGHTQ_OBJECTSTORE_REGION", &o.Region)
	env.str("FLIGHTQ_OBJECTSTORE_BUCKET", &o.Bucket)
	env.str("FLIGHTQ_OBJECTSTORE_ACCESS_KEY", &o.AccessKeyID)
	env.str("FLIGHTQ_OBJECTSTORE_SECRET_KEY", &o.SecretAccessKey)
	env.boolean("FLIGHTQ_OBJECTSTORE_USE_SSL", &o.UseSSL)
	env.str("FLIGHTQ_OBJECTSTORE_PREFIX", &o.Prefix)
	env.boolean("FLIGHTQ_OBJECTSTORE_AUTO_CREATE_BUCKET", &o.AutoCreateBucket)
}

func (a *AIConfig) load(env *envReader) {
	env.str("FLIGHTQ_AI_PROVIDER", &a.Provider)
	env.str("FLIGHTQ_AI_BASE_URL", &a.BaseURL)
	env.str("FLIGHTQ_AI_API_KEY", &a.APIKey)
	env.str("FLIGHTQ_AI_MODEL", &a.Model)
	env.duration("FLIGHTQ_AI_TIMEOUT", &a.Timeout)
}

func (a AIConfig) validate() error {
	switch a.Provider {
	case ProviderOllama:
	case ProviderOpenAI:
		if a.APIKey == "" {
			return fmt.Errorf("FLIGHTQ_AI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("invalid FLIGHTQ_AI_PROVIDER: %q", a.Provider)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("FLIGHTQ_AI_TIMEOUT must be positive")
	}
	return nil
}

func (l *AnswerLogConfig) load(env *envReader) {
	env.str("FLIGHTQ_ANSWER_LOG_DSN", &l.DSN)
	env.integer("FLIGHTQ_ANSWER_LOG_MAX_OPEN_CONNS", &l.MaxOpenConns)
	env.integer("FLIGHTQ_ANSWER_LOG_MAX_IDLE_CONNS", &l.MaxIdleConns)
	env.duration("FLIGHTQ_ANSWER_LOG_CONN_MAX_IDLE_TIME", &l.ConnMaxIdleTime)
	env.duration("FLIGHTQ_ANSWER_LOG_CONN_MAX_LIFETIME", &l.ConnMaxLifetime)
}

func (l AnswerLogConfig) validate() error {
	if l.MaxOpenConns < 0 || l.MaxIdleConns < 0 {
		return fmt.Errorf("answer log pool sizes must not be negative")
	}
	return nil
}

func (o *ObservabilityConfig) load(env *envReader) {
	env.boolean("FLIGHTQ_LOG_JSON", &o.LogJSON)
	env.logLevel("FLIGHTQ_LOG_LEVEL", &o.LogLevel)
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "flightq-api"},
		HTTP: HTTPConfig{
			Address:      ":5000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  []string{"http://localhost:3000"},
			ServeUI:      true,
		},
		Data: DataConfig{
			Source:          SourceLocal,
			Dir:             "data",
			AirlinesFile:    "Airline ID to Name.csv",
			BookingsFile:    "Flight Bookings.csv",
			ObjectPrefix:    "datasets/flight-bookings",
			TimestampFormat: "%d-%m-%Y %H:%M",
			LoadTimeout:     2 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "flightq",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		AI: AIConfig{
			Provider: ProviderOllama,
			BaseURL:  "http://localhost:11434",
			Model:    "mistral",
			Timeout:  30 * time.Second,
		},
		AnswerLog: AnswerLogConfig{
			DSN:             "",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":15000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.HTTP.CORSOrigins = nil
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

// envReader applies environment overrides and keeps the first parse error.
// Once an error is recorded later reads are skipped.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) raw(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	return e.lookup(key)
}

func (e *envReader) fail(key string, err error) {
	e.err = fmt.Errorf("invalid %s: %w", key, err)
}

func (e *envReader) str(key string, dst *string) {
	if raw, ok := e.raw(key); ok {
		*dst = strings.TrimSpace(raw)
	}
}

// list splits a comma separated value. An empty value clears the list.
func (e *envReader) list(key string, dst *[]string) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	*dst = values
}

func (e *envReader) duration(key string, dst *time.Duration) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		e.fail(key, err)
		return
	}
	*dst = value
}

func (e *envReader) boolean(key string, dst *bool) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		e.fail(key, err)
		return
	}
	*dst = value
}

func (e *envReader) integer(key string, dst *int) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		e.fail(key, err)
		return
	}
	*dst = value
}

func (e *envReader) logLevel(key string, dst *slog.Level) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		e.err = fmt.Errorf("invalid %s: %q", key, raw)
	}
}
