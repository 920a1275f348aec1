package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure shared by the agent and the device.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	Dispense DispenseConfig `yaml:"dispense"`
	Hardware HardwareConfig `yaml:"hardware"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig identifies the dispenser the agent drives.
type DeviceConfig struct {
	// ID is the device's MQTT client ID and the address used in its topics.
	ID string `yaml:"id"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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
}

// APIConfig contains the agent's HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DispenseConfig controls how the agent interprets the amount query parameter.
type DispenseConfig struct {
	// DefaultSeconds is used when the request carries no usable amount.
	DefaultSeconds float64 `yaml:"default_seconds"`

	// MaxSeconds is the longest motor run the agent will forward.
	MaxSeconds float64 `yaml:"max_seconds"`

	// RejectOutOfRange answers 400 for amounts <= 0 or > MaxSeconds.
	// When false such amounts are forwarded to the device unchanged.
	RejectOutOfRange bool `yaml:"reject_out_of_range"`
}

// HardwareConfig describes the device's motor wiring and radio.
type HardwareConfig struct {
	// MotorPin is the GPIO name driving the motor, e.g. "GPIO9".
	MotorPin string `yaml:"motor_pin"`

	// Interface is the wireless interface reported in boot diagnostics.
	Interface string `yaml:"interface"`

	// PowerSave enables radio power saving at boot.
	PowerSave bool `yaml:"power_save"`

	// Simulate replaces the GPIO driver with an in-memory pin.
	Simulate bool `yaml:"simulate"`
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
// Environment variables follow the pattern: CHOMPY_SECTION_KEY
// For example: CHOMPY_MQTT_HOST, CHOMPY_DEVICE_ID
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID: "chompy-01",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "chompy-agent",
			},
			// Commands are at-most-once: a duplicated dispense drops a second snack.
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Dispense: DispenseConfig{
			DefaultSeconds:   0.5,
			MaxSeconds:       30,
			RejectOutOfRange: true,
		},
		Hardware: HardwareConfig{
			MotorPin:  "GPIO9",
			Interface: "wlan0",
			PowerSave: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CHOMPY_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("CHOMPY_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	// MQTT
	if v := os.Getenv("CHOMPY_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CHOMPY_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("CHOMPY_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("CHOMPY_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CHOMPY_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CHOMPY_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("CHOMPY_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Hardware
	if v := os.Getenv("CHOMPY_HARDWARE_MOTOR_PIN"); v != "" {
		cfg.Hardware.MotorPin = v
	}
	if v := os.Getenv("CHOMPY_HARDWARE_SIMULATE"); v != "" {
		if simulate, err := strconv.ParseBool(v); err == nil {
			cfg.Hardware.Simulate = simulate
		}
	}

	// Logging
	if v := os.Getenv("CHOMPY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	} else if strings.ContainsAny(c.Device.ID, "/+#") {
		errs = append(errs, "device.id must not contain MQTT topic characters (/, +, #)")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	if c.Dispense.DefaultSeconds <= 0 {
		errs = append(errs, "dispense.default_seconds must be positive")
	}
	if c.Dispense.MaxSeconds <= 0 {
		errs = append(errs, "dispense.max_seconds must be positive")
	} else if c.Dispense.DefaultSeconds > c.Dispense.MaxSeconds {
		errs = append(errs, "dispense.default_seconds must not exceed dispense.max_seconds")
	}

	if c.Hardware.MotorPin == "" && !c.Hardware.Simulate {
		errs = append(errs, "hardware.motor_pin is required unless hardware.simulate is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
