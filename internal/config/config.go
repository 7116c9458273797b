package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// ConfigFileEnv names the optional TOML file read before environment variables
const ConfigFileEnv = "TRIPPLANNER_CONFIG"

// Config holds application configuration
type Config struct {
	StoreDriver string `toml:"store_driver" validate:"oneof=memory file bolt sqlite postgres redis"`
	StoreDSN    string `toml:"store_dsn"`

	ServerPort      string `toml:"server_port" validate:"required,numeric"`
	FrontendURL     string `toml:"frontend_url"`
	RateLimit       string `toml:"rate_limit"`
	ServerDebugMode bool   `toml:"server_debug_mode"`

	SearchProvider       string        `toml:"search_provider" validate:"oneof=google elastic none"`
	GooglePlacesAPIKey   string        `toml:"google_places_api_key"`
	GooglePlacesBaseURL  string        `toml:"google_places_base_url" validate:"omitempty,url"`
	ElasticsearchURL     string        `toml:"elasticsearch_url" validate:"omitempty,url"`
	ElasticsearchIndex   string        `toml:"elasticsearch_index"`
	SearchRadiusMeters   float64       `toml:"search_radius_meters" validate:"gt=0"`
	SearchMinQueryLength int           `toml:"search_min_query_length" validate:"gte=1"`
	SearchDebounce       time.Duration `toml:"search_debounce" validate:"gte=0"`
	SearchRate           string        `toml:"search_rate"`

	DeviceLatitude  *float64 `toml:"device_latitude" validate:"omitempty,latitude"`
	DeviceLongitude *float64 `toml:"device_longitude" validate:"omitempty,longitude"`

	RedisURL         string `toml:"redis_url"`
	RabbitMQURL      string `toml:"rabbitmq_url"`
	RabbitMQPrefetch int    `toml:"rabbitmq_prefetch" validate:"gte=1"`
	WorkerDebugMode  bool   `toml:"worker_debug_mode"`

	OTELEnabled  bool   `toml:"otel_enabled"`
	OTELEndpoint string `toml:"otel_endpoint"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		StoreDriver:          "file",
		StoreDSN:             "data",
		ServerPort:           "8080",
		FrontendURL:          "http://localhost:3000",
		RateLimit:            "20-S",
		SearchProvider:       "none",
		ElasticsearchIndex:   "places",
		SearchRadiusMeters:   5000,
		SearchMinQueryLength: 2,
		SearchDebounce:       300 * time.Millisecond,
		SearchRate:           "30-M",
		RabbitMQPrefetch:     1,
	}
}

// Load loads configuration from the optional TOML file named by TRIPPLANNER_CONFIG,
// then environment variables, which take precedence
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a TOML file over cfg. Keys absent from the file keep their value.
func LoadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.StoreDSN = getEnv("STORE_DSN", cfg.StoreDSN)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.RateLimit = getEnv("RATE_LIMIT", cfg.RateLimit)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)

	cfg.SearchProvider = getEnv("SEARCH_PROVIDER", cfg.SearchProvider)
	cfg.GooglePlacesAPIKey = getEnv("GOOGLE_PLACES_API_KEY", cfg.GooglePlacesAPIKey)
	cfg.GooglePlacesBaseURL = getEnv("GOOGLE_PLACES_BASE_URL", cfg.GooglePlacesBaseURL)
	cfg.ElasticsearchURL = getEnv("ELASTICSEARCH_URL", cfg.ElasticsearchURL)
	cfg.ElasticsearchIndex = getEnv("ELASTICSEARCH_INDEX", cfg.ElasticsearchIndex)
	cfg.SearchRadiusMeters = getEnvFloat("SEARCH_RADIUS_METERS", cfg.SearchRadiusMeters)
	cfg.SearchMinQueryLength = getEnvInt("SEARCH_MIN_QUERY_LENGTH", cfg.SearchMinQueryLength)
	cfg.SearchDebounce = getEnvDuration("SEARCH_DEBOUNCE", cfg.SearchDebounce)
	cfg.SearchRate = getEnv("SEARCH_RATE", cfg.SearchRate)

	cfg.DeviceLatitude = getEnvFloatPtr("DEVICE_LATITUDE", cfg.DeviceLatitude)
	cfg.DeviceLongitude = getEnvFloatPtr("DEVICE_LONGITUDE", cfg.DeviceLongitude)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)

	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
}

// Validate checks field ranges and the settings each choice depends on
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.StoreDriver != "memory" && c.StoreDSN == "" {
		return fmt.Errorf("STORE_DSN is required for store driver %q", c.StoreDriver)
	}
	switch c.SearchProvider {
	case "google":
		if c.GooglePlacesAPIKey == "" {
			return errors.New("GOOGLE_PLACES_API_KEY is required for the google search provider")
		}
	case "elastic":
		if c.ElasticsearchURL == "" {
			return errors.New("ELASTICSEARCH_URL is required for the elastic search provider")
		}
	}
	if (c.DeviceLatitude == nil) != (c.DeviceLongitude == nil) {
		return errors.New("DEVICE_LATITUDE and DEVICE_LONGITUDE must be set together")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvFloatPtr(key string, defaultValue *float64) *float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
