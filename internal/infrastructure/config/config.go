package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the collection schedule.
const (
	// DefaultRetries is the number of tick attempts per daily cycle.
	DefaultRetries = 10

	// DefaultWakeHour is the UTC hour at which the daily cycle runs.
	DefaultWakeHour = 11

	// DefaultPricingEndpoint is the public Tibber GraphQL endpoint.
	DefaultPricingEndpoint = "https://api.tibber.com/v1-beta/gql"

	// DefaultMeasurement is the InfluxDB measurement price points are written to.
	DefaultMeasurement = "price_info"
)

// Config is the root configuration structure for the price collector.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`

	// Warnings lists non-fatal problems found while applying overrides.
	// They are logged once the real logger is available.
	Warnings []string `yaml:"-"`
}

// InfluxDBConfig contains time-series store settings.
//
// The store is addressed by database name. Against InfluxDB 1.8+ the
// database (and optional retention policy) form the v1 compatibility
// bucket and Username/Password form the token. Against InfluxDB 2.x an
// explicit Token and Org may be supplied instead.
type InfluxDBConfig struct {
	URL             string `yaml:"url"`
	Database        string `yaml:"database"`
	RetentionPolicy string `yaml:"retention_policy"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Token           string `yaml:"token"`
	Org             string `yaml:"org"`
	Measurement     string `yaml:"measurement"`
	Timeout         int    `yaml:"timeout"` // seconds
}

// PricingConfig contains pricing API settings.
type PricingConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
	Timeout   int    `yaml:"timeout"` // seconds
	UserAgent string `yaml:"user_agent"`
}

// ScheduleConfig contains daily cycle settings.
type ScheduleConfig struct {
	Retries  int `yaml:"retries"`
	WakeHour int `yaml:"wake_hour"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	MaxDelay int `yaml:"max_delay"` // seconds
}

// DatabaseConfig contains SQLite run ledger settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains status HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, then validates it.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (skipped when path is empty)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PRICECOLLECTOR_SECTION_KEY
// For example: PRICECOLLECTOR_INFLUXDB_URL, PRICECOLLECTOR_WAKE_HOUR
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for environment only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		InfluxDB: InfluxDBConfig{
			Measurement: DefaultMeasurement,
			Timeout:     10,
		},
		Pricing: PricingConfig{
			Endpoint:  DefaultPricingEndpoint,
			Timeout:   30,
			UserAgent: "pricecollector",
		},
		Schedule: ScheduleConfig{
			Retries:  DefaultRetries,
			WakeHour: DefaultWakeHour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path: "./var/log/pricecollector.log",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pricecollector",
			},
			QoS:         1,
			TopicPrefix: "pricecollector",
			Reconnect: MQTTReconnectConfig{
				MaxDelay: 60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/pricecollector.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
	}
}

// errUnparsableWakeHour marks a wake hour override that is not an integer.
var errUnparsableWakeHour = errors.New("schedule.wake_hour is not an integer")

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PRICECOLLECTOR_SECTION_KEY
//
// An unparsable retry count keeps the current value and records a warning.
// An unparsable wake hour is a configuration error.
func applyEnvOverrides(cfg *Config) error {
	// InfluxDB
	if v := os.Getenv("PRICECOLLECTOR_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("PRICECOLLECTOR_INFLUXDB_DATABASE"); v != "" {
		cfg.InfluxDB.Database = v
	}
	if v := os.Getenv("PRICECOLLECTOR_INFLUXDB_USERNAME"); v != "" {
		cfg.InfluxDB.Username = v
	}
	if v := os.Getenv("PRICECOLLECTOR_INFLUXDB_PASSWORD"); v != "" {
		cfg.InfluxDB.Password = v
	}
	if v := os.Getenv("PRICECOLLECTOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Pricing API
	if v := os.Getenv("PRICECOLLECTOR_PRICING_ENDPOINT"); v != "" {
		cfg.Pricing.Endpoint = v
	}
	if v := os.Getenv("PRICECOLLECTOR_PRICING_TOKEN"); v != "" {
		cfg.Pricing.Token = v
	}
	if v := os.Getenv("PRICECOLLECTOR_PRICING_TOKEN_FILE"); v != "" {
		cfg.Pricing.TokenFile = v
	}

	// Schedule
	if v := os.Getenv("PRICECOLLECTOR_RETRIES"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("PRICECOLLECTOR_RETRIES=%q is not an integer, using %d", v, cfg.Schedule.Retries))
		} else {
			cfg.Schedule.Retries = n
		}
	}
	if v := os.Getenv("PRICECOLLECTOR_WAKE_HOUR"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ValidationError{Problems: []string{
				fmt.Sprintf("%v: PRICECOLLECTOR_WAKE_HOUR=%q", errUnparsableWakeHour, v),
			}}
		}
		cfg.Schedule.WakeHour = n
	}

	// Logging
	if v := os.Getenv("PRICECOLLECTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PRICECOLLECTOR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// MQTT
	if v := os.Getenv("PRICECOLLECTOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PRICECOLLECTOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PRICECOLLECTOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("PRICECOLLECTOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("PRICECOLLECTOR_API_PORT"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("PRICECOLLECTOR_API_PORT=%q is not an integer, using %d", v, cfg.API.Port))
		} else {
			cfg.API.Port = n
		}
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Every problem is collected so the operator sees them all at once.
//
// Returns:
//   - error: *ValidationError describing all failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Store
	if c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required (set PRICECOLLECTOR_INFLUXDB_URL)")
	}
	if c.InfluxDB.Database == "" {
		errs = append(errs, "influxdb.database is required (set PRICECOLLECTOR_INFLUXDB_DATABASE)")
	}
	if c.InfluxDB.Measurement == "" {
		errs = append(errs, "influxdb.measurement must not be empty")
	}

	// Pricing API
	if c.Pricing.Endpoint == "" {
		errs = append(errs, "pricing.endpoint is required (set PRICECOLLECTOR_PRICING_ENDPOINT)")
	}

	// Schedule
	if c.Schedule.Retries < 1 {
		errs = append(errs, "schedule.retries must be at least 1")
	}
	if c.Schedule.WakeHour < 0 || c.Schedule.WakeHour > 23 {
		errs = append(errs, "schedule.wake_hour must be between 0 and 23")
	}

	// MQTT (only when enabled)
	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix must not be empty")
		}
	}

	// Database (only when enabled)
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the ledger is enabled")
	}

	// API (only when enabled)
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Logging
	if strings.ToLower(c.Logging.Output) == "file" && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}

	return nil
}

// RequestTimeout returns the pricing API request timeout as a Duration.
// Zero means the client default.
func (p PricingConfig) RequestTimeout() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

// RequestTimeout returns the InfluxDB request timeout as a Duration.
// Zero means the client default.
func (i InfluxDBConfig) RequestTimeout() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}

// ReadTimeout returns the API read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}
