// Package config loads the agent configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flokli/monitor-agent/vcp"
)

// Config is the root configuration structure of the agent.
// It is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT            MQTT          `yaml:"mqtt"`
	Logging         Logging       `yaml:"logging"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Features        []Feature     `yaml:"features"`
}

// MQTT contains the broker connection settings.
type MQTT struct {
	// Broker is the broker URL, like tcp://localhost:1883.
	Broker string `yaml:"broker"`
	// ClientID is generated if empty.
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Logging contains logging settings.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Feature is an additional VCP code to register, like a vendor specific one.
type Feature struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Value       int    `yaml:"value"`
	Access      string `yaml:"access"`
	Continuity  string `yaml:"continuity"`
}

// Load reads the configuration.
//
// The loading order is:
//  1. Default values
//  2. YAML file values, if path is not empty
//  3. Environment variables (MONITOR_AGENT_*)
//
// The result is validated.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		MQTT: MQTT{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "monitor-agent",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		RefreshInterval: 5 * time.Second,
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MONITOR_AGENT_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("MONITOR_AGENT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MONITOR_AGENT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("MONITOR_AGENT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}
	if v := os.Getenv("MONITOR_AGENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	if strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
		errs = append(errs, "mqtt.topic_prefix must not contain wildcards")
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is invalid", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q is invalid", c.Logging.Format))
	}

	if c.RefreshInterval <= 0 {
		errs = append(errs, "refresh_interval must be positive")
	}

	for i, f := range c.Features {
		if _, err := f.FeatureCode(); err != nil {
			errs = append(errs, fmt.Sprintf("features[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// FeatureCode converts f into a vcp.FeatureCode. Access defaults to
// read-write, continuity to non-continuous.
func (f Feature) FeatureCode() (vcp.FeatureCode, error) {
	if f.Name == "" {
		return vcp.FeatureCode{}, errors.New("name is required")
	}
	if f.Value < 0 || f.Value > 0xFF {
		return vcp.FeatureCode{}, fmt.Errorf("value %d of %s is not a byte", f.Value, f.Name)
	}

	code := vcp.FeatureCode{
		Name:        f.Name,
		Description: f.Description,
		Value:       uint8(f.Value),
		Access:      vcp.ReadWrite,
		Continuity:  vcp.NonContinuous,
	}
	if f.Access != "" {
		access, err := vcp.ParseAccessMode(f.Access)
		if err != nil {
			return vcp.FeatureCode{}, err
		}
		code.Access = access
	}
	if f.Continuity != "" {
		continuity, err := vcp.ParseContinuity(f.Continuity)
		if err != nil {
			return vcp.FeatureCode{}, err
		}
		code.Continuity = continuity
	}
	return code, nil
}

// RegisterFeatures registers all configured features in reg and returns
// them.
func (c *Config) RegisterFeatures(reg *vcp.Registry) ([]vcp.FeatureCode, error) {
	codes := make([]vcp.FeatureCode, 0, len(c.Features))
	for _, f := range c.Features {
		code, err := f.FeatureCode()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(code); err != nil {
			return nil, fmt.Errorf("registering feature %s: %w", code.Name, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}
