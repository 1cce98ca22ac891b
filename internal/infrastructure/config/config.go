package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the device simulator.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Redis    RedisConfig    `yaml:"redis"`
	Listener ListenerConfig `yaml:"listener"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// RedisConfig contains Redis connection settings.
//
// Redis is the single source of durability: device hashes, history lists,
// and the pub/sub channels all live in the same instance.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	DB   int    `yaml:"db"`

	// OpTimeout bounds every individual store call (read, write, publish)
	// so a slow or partitioned Redis degrades single requests rather than
	// hanging the process. Seconds.
	OpTimeout int `yaml:"op_timeout"`
}

// ListenerConfig contains settings for the background command subscription listener.
type ListenerConfig struct {
	// Enabled controls whether the listener starts at all.
	Enabled bool `yaml:"enabled"`

	// Channel is the global command channel the listener subscribes to.
	Channel string `yaml:"channel"`

	// Workers is the number of goroutines re-applying inbound commands.
	Workers int `yaml:"workers"`

	// QueueSize is the dispatch buffer between the subscription loop and
	// the workers. When full, messages are dropped with a logged warning.
	QueueSize int `yaml:"queue_size"`
}

// MQTTConfig contains settings for the optional MQTT command ingress.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// CommandTopic is the topic commands arrive on.
	CommandTopic string `yaml:"command_topic"`

	// AckTopicPrefix is the prefix for per-device acknowledgement topics.
	AckTopicPrefix string `yaml:"ack_topic_prefix"`
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

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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
// Environment variables follow the pattern: IOTSIM_SECTION_KEY
// For example: IOTSIM_REDIS_HOST, IOTSIM_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, parsed, or validation fails
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      6379,
			DB:        0,
			OpTimeout: 2,
		},
		Listener: ListenerConfig{
			Enabled:   true,
			Channel:   "device_commands",
			Workers:   8,
			QueueSize: 256,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "iotdevicesim",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			CommandTopic:   "iotdevicesim/command",
			AckTopicPrefix: "iotdevicesim/ack",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IOTSIM_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("IOTSIM_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("IOTSIM_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Redis
	if v := os.Getenv("IOTSIM_REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("IOTSIM_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("IOTSIM_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}

	// Listener
	if v := os.Getenv("IOTSIM_LISTENER_ENABLED"); v != "" {
		cfg.Listener.Enabled = parseBool(v, cfg.Listener.Enabled)
	}
	if v := os.Getenv("IOTSIM_LISTENER_CHANNEL"); v != "" {
		cfg.Listener.Channel = v
	}

	// MQTT
	if v := os.Getenv("IOTSIM_MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = parseBool(v, cfg.MQTT.Enabled)
	}
	if v := os.Getenv("IOTSIM_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IOTSIM_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IOTSIM_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("IOTSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// parseBool interprets common truthy/falsy strings, falling back on unrecognised input.
func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(v) {
	case "true", "1", "t", "yes":
		return true
	case "false", "0", "f", "no":
		return false
	default:
		return fallback
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Redis.Host == "" {
		errs = append(errs, "redis.host is required")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, "redis.port must be between 1 and 65535")
	}
	if c.Redis.OpTimeout < 1 {
		errs = append(errs, "redis.op_timeout must be at least 1 second")
	}

	if c.Listener.Enabled {
		if c.Listener.Channel == "" {
			errs = append(errs, "listener.channel is required when the listener is enabled")
		}
		if c.Listener.Workers < 1 {
			errs = append(errs, "listener.workers must be at least 1")
		}
		if c.Listener.QueueSize < 1 {
			errs = append(errs, "listener.queue_size must be at least 1")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.CommandTopic == "" {
			errs = append(errs, "mqtt.command_topic is required when MQTT is enabled")
		}
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

// GetOpTimeout returns the per-operation Redis timeout as a Duration.
func (c *RedisConfig) GetOpTimeout() time.Duration {
	return time.Duration(c.OpTimeout) * time.Second
}
