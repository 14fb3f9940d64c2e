package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-flow/internal/artifact"
	"github.com/i474232898/weather-flow/internal/export"
	"github.com/i474232898/weather-flow/internal/secrets"
	"github.com/i474232898/weather-flow/internal/weather"
	"github.com/i474232898/weather-flow/internal/weather/providers"
)

const (
	ModeOnce  = "once"
	ModeServe = "serve"

	BackendEnv    = "env"
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
	BackendMinIO  = "minio"
)

type AppConfig struct {
	// Mode is "once" (run the flow and exit) or "serve" (scheduler + API).
	Mode string

	// Location and hourly variables requested on every run.
	Location weather.Location
	Hourly   []string

	ForecastURL    string
	GeocoderAPIKey string

	// Upstream client: response cache and retry policy.
	CachePath     string
	CacheExpiry   time.Duration
	HTTPTimeout   time.Duration
	Retries       int
	BackoffFactor float64
	MaxBackoff    time.Duration

	CSVPath string
	DBPath  string

	SecretName    string
	SecretBackend string
	SecretsFile   string

	ArtifactKey         string
	ArtifactDescription string
	ArtifactBackend     string
	MinIO               artifact.MinIOConfig

	// ScheduleInterval controls how often the flow runs in serve mode.
	ScheduleInterval time.Duration

	// Run history retention.
	RunMaxHistory int           // max number of runs kept (0 = unlimited)
	RunMaxAge     time.Duration // max age of runs (0 = unlimited)

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Mode = getenvDefault("FLOW_MODE", ModeOnce)

	loc, err := loadLocation()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc
	cfg.Hourly = splitList(getenvDefault("WEATHER_HOURLY", "temperature_2m"))

	cfg.ForecastURL = getenvDefault("FORECAST_URL", providers.DefaultForecastURL)
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.CachePath = getenvDefault("HTTP_CACHE_PATH", ".cache.sqlite")
	if cfg.CacheExpiry, err = getenvDuration("HTTP_CACHE_EXPIRY", "1h"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = getenvInt("HTTP_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.BackoffFactor, err = getenvFloat("HTTP_BACKOFF_FACTOR", 0.2); err != nil {
		return nil, err
	}
	if cfg.MaxBackoff, err = getenvDuration("HTTP_MAX_BACKOFF", "120s"); err != nil {
		return nil, err
	}

	cfg.CSVPath = getenvDefault("CSV_PATH", export.DefaultCSVPath)
	cfg.DBPath = getenvDefault("DB_PATH", "weather-flow.db")

	cfg.SecretName = getenvDefault("SECRET_NAME", secrets.DefaultName)
	cfg.SecretBackend = getenvDefault("SECRET_BACKEND", BackendEnv)
	cfg.SecretsFile = getenvDefault("SECRETS_FILE", "secrets.yaml")

	cfg.ArtifactKey = getenvDefault("ARTIFACT_KEY", artifact.DefaultKey)
	cfg.ArtifactDescription = getenvDefault("ARTIFACT_DESCRIPTION", artifact.DefaultDescription)
	cfg.ArtifactBackend = getenvDefault("ARTIFACT_BACKEND", BackendSQLite)

	useSSL, err := getenvBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, err
	}
	cfg.MinIO = artifact.MinIOConfig{
		Endpoint:  getenvDefault("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Region:    getenvDefault("MINIO_REGION", "us-east-1"),
		UseSSL:    useSSL,
		Bucket:    getenvDefault("MINIO_BUCKET_ARTIFACTS", "artifacts"),
	}

	if cfg.ScheduleInterval, err = getenvDuration("FLOW_SCHEDULE_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.RunMaxHistory, err = getenvInt("RUN_MAX_HISTORY", 100); err != nil {
		return nil, err
	}
	if cfg.RunMaxAge, err = getenvDuration("RUN_MAX_AGE", "168h"); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *AppConfig) Validate() error {
	switch c.Mode {
	case ModeOnce, ModeServe:
	default:
		return fmt.Errorf("invalid FLOW_MODE %q: want %q or %q", c.Mode, ModeOnce, ModeServe)
	}
	switch c.SecretBackend {
	case BackendEnv, BackendYAML, BackendSQLite:
	default:
		return fmt.Errorf("invalid SECRET_BACKEND %q", c.SecretBackend)
	}
	switch c.ArtifactBackend {
	case BackendSQLite:
	case BackendMinIO:
		if err := c.MinIO.Validate(); err != nil {
			return fmt.Errorf("invalid MinIO config: %w", err)
		}
	default:
		return fmt.Errorf("invalid ARTIFACT_BACKEND %q", c.ArtifactBackend)
	}
	if len(c.Hourly) == 0 {
		return fmt.Errorf("WEATHER_HOURLY must list at least one variable")
	}
	if c.Retries < 0 {
		return fmt.Errorf("HTTP_RETRIES must not be negative")
	}
	if c.CacheExpiry <= 0 {
		return fmt.Errorf("HTTP_CACHE_EXPIRY must be positive")
	}
	if c.Mode == ModeServe && c.ScheduleInterval <= 0 {
		return fmt.Errorf("FLOW_SCHEDULE_INTERVAL must be positive in serve mode")
	}
	if err := artifact.ValidateKey(c.ArtifactKey); err != nil {
		return err
	}
	return nil
}

// ClientConfig returns the upstream client settings.
func (c *AppConfig) ClientConfig() providers.ClientConfig {
	return providers.ClientConfig{
		CachePath:   c.CachePath,
		CacheExpiry: c.CacheExpiry,
		Timeout:     c.HTTPTimeout,
		Backoff: providers.BackoffConfig{
			MaxRetries:  c.Retries,
			Factor:      c.BackoffFactor,
			MaxInterval: c.MaxBackoff,
		},
	}
}

// Params builds the request parameters. The location must have coordinates.
func (c *AppConfig) Params() (weather.Params, error) {
	if c.Location.Lat == nil || c.Location.Lon == nil {
		return weather.Params{}, fmt.Errorf("location %s has no coordinates", c.Location.Key())
	}
	return weather.Params{
		Latitude:  *c.Location.Lat,
		Longitude: *c.Location.Lon,
		Hourly:    append([]string(nil), c.Hourly...),
	}, nil
}

// loadLocation defaults to Berlin (52.52, 13.41) when nothing is configured.
func loadLocation() (weather.Location, error) {
	loc := weather.Location{
		City:    os.Getenv("WEATHER_LOCATION_CITY"),
		Country: os.Getenv("WEATHER_LOCATION_COUNTRY"),
	}

	latStr, lonStr := os.Getenv("WEATHER_LATITUDE"), os.Getenv("WEATHER_LONGITUDE")
	if (latStr == "") != (lonStr == "") {
		return loc, fmt.Errorf("WEATHER_LATITUDE and WEATHER_LONGITUDE must be set together")
	}

	if latStr == "" && loc.City != "" {
		// Coordinates are resolved by the geocoder.
		return loc, nil
	}
	if latStr == "" {
		latStr, lonStr = "52.52", "13.41"
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return loc, fmt.Errorf("invalid WEATHER_LATITUDE: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return loc, fmt.Errorf("invalid WEATHER_LONGITUDE: %w", err)
	}
	loc.Lat = &lat
	loc.Lon = &lon
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
