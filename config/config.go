// Package config loads and validates runtime configuration for a NullTrace
// member process: capsule lifetime, rekey timing, relay transport, and the
// ambient logging/metrics surface.
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Capsule     CapsuleConfig  `yaml:"capsule" json:"capsule"`
	Group       GroupConfig    `yaml:"group" json:"group"`
	Relay       RelayConfig    `yaml:"relay" json:"relay"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// CapsuleConfig governs invitation capsule issuance.
type CapsuleConfig struct {
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	MaxBytes int           `yaml:"max_bytes" json:"max_bytes"`
}

// GroupConfig governs the MLS-lite membership/rekey state machine.
type GroupConfig struct {
	RekeyDebounce         time.Duration `yaml:"rekey_debounce" json:"rekey_debounce"`
	ExternalRekeyThrottle time.Duration `yaml:"external_rekey_throttle" json:"external_rekey_throttle"`
	GKRetryBaseDelay      time.Duration `yaml:"gk_retry_base_delay" json:"gk_retry_base_delay"`
	GKRetryMaxAttempts    int           `yaml:"gk_retry_max_attempts" json:"gk_retry_max_attempts"`
}

// RelayConfig points at the push relay and bounds its round trips.
type RelayConfig struct {
	URL          string        `yaml:"url" json:"url"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile loads configuration from a YAML (or, failing that, JSON) file
// and applies defaults for anything left unset.
func LoadFromFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setDefaults fills in zero-valued fields with the production defaults
// named by the protocol: a 120s/4096B capsule envelope, a 50ms rekey
// debounce with an 800ms external-rekey throttle, and a 300ms/x2/6-attempt
// group-key retry ladder.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Capsule.TTL == 0 {
		cfg.Capsule.TTL = 120 * time.Second
	}
	if cfg.Capsule.MaxBytes == 0 {
		cfg.Capsule.MaxBytes = 4096
	}

	if cfg.Group.RekeyDebounce == 0 {
		cfg.Group.RekeyDebounce = 50 * time.Millisecond
	}
	if cfg.Group.ExternalRekeyThrottle == 0 {
		cfg.Group.ExternalRekeyThrottle = 800 * time.Millisecond
	}
	if cfg.Group.GKRetryBaseDelay == 0 {
		cfg.Group.GKRetryBaseDelay = 300 * time.Millisecond
	}
	if cfg.Group.GKRetryMaxAttempts == 0 {
		cfg.Group.GKRetryMaxAttempts = 6
	}

	if cfg.Relay.DialTimeout == 0 {
		cfg.Relay.DialTimeout = 10 * time.Second
	}
	if cfg.Relay.ReadTimeout == 0 {
		cfg.Relay.ReadTimeout = 90 * time.Second
	}
	if cfg.Relay.WriteTimeout == 0 {
		cfg.Relay.WriteTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
