package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/graybus/internal/bus"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for a Gray Bus node.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Bus      BusConfig      `yaml:"bus"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NodeConfig identifies the node in logs, MQTT topics and telemetry tags.
type NodeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// BusConfig contains dispatch and synthetic producer settings.
type BusConfig struct {
	// DispatchTimeoutMS bounds each readiness wait in a dispatcher loop.
	DispatchTimeoutMS int `yaml:"dispatch_timeout_ms"`

	// PublishIntervalMS is the period of the built-in producers.
	PublishIntervalMS int `yaml:"publish_interval_ms"`

	// BatteryMode overrides the delivery mode of the battery publisher
	// ("blocking" or "drop"). Empty keeps the topology default.
	BatteryMode string `yaml:"battery_mode"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP inspection server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// MonitorConfig contains statistics sampling settings.
type MonitorConfig struct {
	IntervalMS int `yaml:"interval_ms"`

	// HistoryRetention is how long sampled rows are kept in SQLite, in hours.
	HistoryRetention int `yaml:"history_retention"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYBUS_SECTION_KEY
// For example: GRAYBUS_DATABASE_PATH, GRAYBUS_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Path returns the configuration file location: GRAYBUS_CONFIG when set,
// otherwise configs/config.yaml.
func Path() string {
	if v := os.Getenv("GRAYBUS_CONFIG"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ID:   "node-001",
			Name: "Gray Bus",
		},
		Bus: BusConfig{
			DispatchTimeoutMS: 100,
			PublishIntervalMS: 50,
		},
		Database: DatabaseConfig{
			Path:        "./data/graybus.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graybus",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Monitor: MonitorConfig{
			IntervalMS:       1000,
			HistoryRetention: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYBUS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Node
	if v := os.Getenv("GRAYBUS_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}

	// Bus
	if v := os.Getenv("GRAYBUS_BUS_BATTERY_MODE"); v != "" {
		cfg.Bus.BatteryMode = v
	}

	// Database
	if v := os.Getenv("GRAYBUS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYBUS_MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = parseBool(v, cfg.MQTT.Enabled)
	}
	if v := os.Getenv("GRAYBUS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYBUS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYBUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYBUS_INFLUXDB_ENABLED"); v != "" {
		cfg.InfluxDB.Enabled = parseBool(v, cfg.InfluxDB.Enabled)
	}
	if v := os.Getenv("GRAYBUS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("GRAYBUS_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYBUS_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Logging
	if v := os.Getenv("GRAYBUS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// parseBool returns fallback when v is not a recognised boolean.
func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Validate checks the configuration for errors.
//
// Every problem is collected so one run reports them all.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.ID == "" {
		errs = append(errs, "node.id is required")
	} else if strings.ContainsAny(c.Node.ID, "/+# ") {
		errs = append(errs, "node.id must not contain '/', '+', '#' or spaces")
	}

	if c.Bus.DispatchTimeoutMS < 1 {
		errs = append(errs, "bus.dispatch_timeout_ms must be positive")
	}
	if c.Bus.PublishIntervalMS < 1 {
		errs = append(errs, "bus.publish_interval_ms must be positive")
	}
	if c.Bus.BatteryMode != "" {
		if _, err := bus.ParseMode(c.Bus.BatteryMode); err != nil {
			errs = append(errs, "bus.battery_mode must be \"blocking\" or \"drop\"")
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Monitor.IntervalMS < 1 {
		errs = append(errs, "monitor.interval_ms must be positive")
	}
	if c.Monitor.HistoryRetention < 0 {
		errs = append(errs, "monitor.history_retention must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// DispatchTimeout returns the dispatcher wait bound as a Duration.
func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.Bus.DispatchTimeoutMS) * time.Millisecond
}

// PublishInterval returns the producer period as a Duration.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.Bus.PublishIntervalMS) * time.Millisecond
}

// MonitorInterval returns the statistics sampling period as a Duration.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMS) * time.Millisecond
}

// HistoryRetention returns how long statistics history is kept.
// Zero disables pruning.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.Monitor.HistoryRetention) * time.Hour
}
