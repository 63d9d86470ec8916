package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeather OpenWeatherConfig `yaml:"openweather"`
	Database    DatabaseConfig    `yaml:"database"`
	History     HistoryConfig     `yaml:"history"`
	Location    LocationConfig    `yaml:"location"`
	Logging     LoggingConfig     `yaml:"logging"`

	Port string `yaml:"port" validate:"required,numeric"`
}

// OpenWeatherConfig holds the provider credentials and transport settings.
type OpenWeatherConfig struct {
	APIKey      string        `yaml:"api_key" validate:"required"`
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// DatabaseConfig points at the local SQLite file holding lookup history.
type DatabaseConfig struct {
	Path        string        `yaml:"path" validate:"required"`
	WALMode     bool          `yaml:"wal_mode"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// HistoryConfig controls deduplication and retention of saved lookups.
type HistoryConfig struct {
	DedupWindow   time.Duration `yaml:"dedup_window"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"` // 0 disables the background sweep
}

// LocationConfig describes where the device is. Coordinates win over the
// address when both are set; with neither, location requests fail.
type LocationConfig struct {
	Latitude       *float64 `yaml:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `yaml:"longitude" validate:"omitempty,gte=-180,lte=180"`
	City           string   `yaml:"city"`
	Country        string   `yaml:"country"`
	GeocoderAPIKey string   `yaml:"geocoder_api_key"`
}

// HasCoordinates reports whether a static coordinate pair is configured.
func (l LocationConfig) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// HasAddress reports whether an address can be geocoded.
func (l LocationConfig) HasAddress() bool {
	return l.City != "" && l.GeocoderAPIKey != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
	Output string `yaml:"output" validate:"omitempty,oneof=stdout stderr"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and the
// environment, environment taking precedence, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		OpenWeather: OpenWeatherConfig{
			BaseURL:     "https://api.openweathermap.org/data/2.5",
			HTTPTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "./data/weather.db",
			WALMode:     true,
			BusyTimeout: 5 * time.Second,
		},
		History: HistoryConfig{
			DedupWindow:   time.Hour,
			Retention:     7 * 24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Port: "8080",
	}
}

func applyEnv(cfg *AppConfig) error {
	cfg.OpenWeather.APIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeather.APIKey)
	cfg.OpenWeather.BaseURL = getenvDefault("OPENWEATHER_BASE_URL", cfg.OpenWeather.BaseURL)
	cfg.Database.Path = getenvDefault("DB_PATH", cfg.Database.Path)
	cfg.Location.City = getenvDefault("LOCATION_ADDRESS_CITY", cfg.Location.City)
	cfg.Location.Country = getenvDefault("LOCATION_ADDRESS_COUNTRY", cfg.Location.Country)
	cfg.Location.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", cfg.Location.GeocoderAPIKey)
	cfg.Logging.Level = getenvDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getenvDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Port = getenvDefault("PORT", cfg.Port)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.OpenWeather.HTTPTimeout},
		{"DB_BUSY_TIMEOUT", &cfg.Database.BusyTimeout},
		{"HISTORY_DEDUP_WINDOW", &cfg.History.DedupWindow},
		{"HISTORY_RETENTION", &cfg.History.Retention},
		{"HISTORY_SWEEP_INTERVAL", &cfg.History.SweepInterval},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.key, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	lat, err := getenvFloat("LOCATION_LAT")
	if err != nil {
		return err
	}
	if lat != nil {
		cfg.Location.Latitude = lat
	}
	lon, err := getenvFloat("LOCATION_LON")
	if err != nil {
		return err
	}
	if lon != nil {
		cfg.Location.Longitude = lon
	}

	return nil
}

// Validate checks struct constraints and the cross-field rules the tags
// cannot express.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.OpenWeather.HTTPTimeout <= 0 {
		return fmt.Errorf("openweather.http_timeout must be positive")
	}
	if c.History.DedupWindow < 0 {
		return fmt.Errorf("history.dedup_window must not be negative")
	}
	if c.History.Retention <= 0 {
		return fmt.Errorf("history.retention must be positive")
	}
	if c.History.SweepInterval < 0 {
		return fmt.Errorf("history.sweep_interval must not be negative")
	}
	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return fmt.Errorf("location latitude and longitude must be set together")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}
