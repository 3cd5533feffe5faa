package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Operating modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Store backends.
const (
	BackendInfluxDB        = "influxdb"
	BackendVictoriaMetrics = "victoriametrics"
)

// Buffer backends.
const (
	BufferFile   = "file"
	BufferSQLite = "sqlite"
)

// Sensor drivers.
const (
	SensorSimulated = "simulated"
	SensorBMXX80    = "bmxx80"
)

// Port range accepted for the remote store. Privileged ports are refused.
const (
	minStorePort = 1025
	maxStorePort = 65535
)

// Polling frequency bounds, in readings per hour.
const (
	minFrequency = 1
	maxFrequency = 3600
)

// Config is the root configuration structure for the air-quality logger.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Mode    string        `yaml:"mode"`
	Polling PollingConfig `yaml:"polling"`
	Store   StoreConfig   `yaml:"store"`
	Buffer  BufferConfig  `yaml:"buffer"`
	Sensor  SensorConfig  `yaml:"sensor"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
}

// PollingConfig controls how often the sensor is sampled.
type PollingConfig struct {
	// Frequency is the number of readings per hour.
	Frequency int `yaml:"frequency"`
}

// StoreConfig contains remote time-series store settings.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	TLS     bool   `yaml:"tls"`

	// Table is the single logical name from which the database, user and
	// password are derived. See Credentials.
	Table string `yaml:"table"`
	Org   string `yaml:"org"`

	// Token is the operator token used only while provisioning.
	Token string `yaml:"token"`

	// Timeout bounds every store call, in seconds.
	Timeout int `yaml:"timeout"`
}

// StoreCredentials are the fixed principal and database derived from the table name.
type StoreCredentials struct {
	Database string
	Username string
	Password string
}

// Credentials derives the database, principal and password from the table name.
func (s StoreConfig) Credentials() StoreCredentials {
	return StoreCredentials{
		Database: s.Table,
		Username: s.Table + "_USER",
		Password: s.Table + "_PASS_secret",
	}
}

// Address returns host:port with any http:// or https:// prefix removed from the host.
func (s StoreConfig) Address() string {
	return fmt.Sprintf("%s:%d", StripScheme(s.Host), s.Port)
}

// URL returns the base URL of the store.
func (s StoreConfig) URL() string {
	scheme := "http"
	if s.TLS {
		scheme = "https"
	}
	return scheme + "://" + s.Address()
}

// TimeoutDuration returns the store timeout as a Duration.
func (s StoreConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// StripScheme removes a leading http:// or https:// from a host name.
func StripScheme(host string) string {
	host = strings.TrimSpace(host)
	lower := strings.ToLower(host)
	for _, prefix := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, prefix) {
			host = host[len(prefix):]
			break
		}
	}
	return strings.TrimSuffix(host, "/")
}

// BufferConfig contains durable local buffer settings.
type BufferConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// SensorConfig contains sensor acquisition settings.
type SensorConfig struct {
	Driver            string  `yaml:"driver"`
	I2CBus            string  `yaml:"i2c_bus"`
	I2CAddress        uint16  `yaml:"i2c_address"`
	HumidityBaseline  float64 `yaml:"humidity_baseline"`
	HumidityWeighting float64 `yaml:"humidity_weighting"`
	GasBaseline       float64 `yaml:"gas_baseline"`
	Seed              int64   `yaml:"seed"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
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
//  3. A .env file in the working directory, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: AQLOGGER_SECTION_KEY
// For example: AQLOGGER_STORE_HOST, AQLOGGER_BUFFER_PATH
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

	// godotenv never overwrites variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration. It is valid as-is and runs
// the logger in remote mode against a store on localhost.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Mode: ModeRemote,
		Polling: PollingConfig{
			Frequency: 60,
		},
		Store: StoreConfig{
			Backend: BackendInfluxDB,
			Host:    "localhost",
			Port:    8086,
			Table:   "AQ_MON",
			Org:     "aq-logger",
			Timeout: 3,
		},
		Buffer: BufferConfig{
			Backend:     BufferFile,
			Path:        "./data/unsent.jsonl",
			BusyTimeout: 5,
		},
		Sensor: SensorConfig{
			Driver:            SensorSimulated,
			I2CAddress:        0x76,
			HumidityBaseline:  40,
			HumidityWeighting: 0.25,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "aq-logger",
			},
			QoS:         1,
			TopicPrefix: "aqlogger",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 9273,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AQLOGGER_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("AQLOGGER_MODE"); v != "" {
		cfg.Mode = v
	}

	// Store
	if v := os.Getenv("AQLOGGER_STORE_HOST"); v != "" {
		cfg.Store.Host = v
	}
	if v := os.Getenv("AQLOGGER_STORE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AQLOGGER_STORE_PORT: %w", err)
		}
		cfg.Store.Port = port
	}
	if v := os.Getenv("AQLOGGER_STORE_TOKEN"); v != "" {
		cfg.Store.Token = v
	}

	// Buffer
	if v := os.Getenv("AQLOGGER_BUFFER_PATH"); v != "" {
		cfg.Buffer.Path = v
	}

	// Polling
	if v := os.Getenv("AQLOGGER_POLL_FREQUENCY"); v != "" {
		freq, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AQLOGGER_POLL_FREQUENCY: %w", err)
		}
		cfg.Polling.Frequency = freq
	}

	// MQTT
	if v := os.Getenv("AQLOGGER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AQLOGGER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AQLOGGER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("AQLOGGER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Mode {
	case ModeLocal, ModeRemote:
	default:
		errs = append(errs, fmt.Sprintf("mode must be %q or %q", ModeLocal, ModeRemote))
	}

	if c.Polling.Frequency < minFrequency || c.Polling.Frequency > maxFrequency {
		errs = append(errs, fmt.Sprintf("polling.frequency must be between %d and %d readings per hour", minFrequency, maxFrequency))
	}

	// The store and buffer only matter when readings leave the host.
	if c.Mode == ModeRemote {
		switch c.Store.Backend {
		case BackendInfluxDB, BackendVictoriaMetrics:
		default:
			errs = append(errs, "store.backend must be influxdb or victoriametrics")
		}
		if StripScheme(c.Store.Host) == "" {
			errs = append(errs, "store.host is required")
		}
		if c.Store.Port < minStorePort || c.Store.Port > maxStorePort {
			errs = append(errs, fmt.Sprintf("store.port must be between %d and %d", minStorePort, maxStorePort))
		}
		if c.Store.Table == "" {
			errs = append(errs, "store.table is required")
		}
		if c.Store.Backend == BackendInfluxDB && c.Store.Org == "" {
			errs = append(errs, "store.org is required for influxdb")
		}
		if c.Store.Timeout < 1 {
			errs = append(errs, "store.timeout must be at least 1 second")
		}

		switch c.Buffer.Backend {
		case BufferFile, BufferSQLite:
		default:
			errs = append(errs, "buffer.backend must be file or sqlite")
		}
		if c.Buffer.Path == "" {
			errs = append(errs, "buffer.path is required")
		}
	}

	switch c.Sensor.Driver {
	case SensorSimulated, SensorBMXX80:
	default:
		errs = append(errs, "sensor.driver must be simulated or bmxx80")
	}
	if c.Sensor.HumidityBaseline <= 0 || c.Sensor.HumidityBaseline >= 100 {
		errs = append(errs, "sensor.humidity_baseline must be between 0 and 100 exclusive")
	}
	if c.Sensor.HumidityWeighting < 0 || c.Sensor.HumidityWeighting > 1 {
		errs = append(errs, "sensor.humidity_weighting must be between 0 and 1")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required")
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
