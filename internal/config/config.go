// Package config loads and validates the bridge configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete bridge configuration.
type Config struct {
	Modbus        ModbusConfig `yaml:"modbus"`
	MQTT          MQTTConfig   `yaml:"mqtt"`
	HomeAssistant HAConfig     `yaml:"homeassistant"`
	Bridge        BridgeConfig `yaml:"bridge"`
}

// ModbusConfig describes the unit's Modbus TCP endpoint and link policy.
type ModbusConfig struct {
	Host             string `yaml:"host"`
	Port             uint16 `yaml:"port"`
	UnitID           uint8  `yaml:"unit_id"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	MaxRetries       uint64 `yaml:"max_retries"`
	BreakerFailures  uint32 `yaml:"breaker_failures"`
	BreakerCooldownS int    `yaml:"breaker_cooldown_s"`
}

// Timeout returns the per-request timeout.
func (m ModbusConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// BreakerCooldown returns how long the breaker stays open.
func (m ModbusConfig) BreakerCooldown() time.Duration {
	return time.Duration(m.BreakerCooldownS) * time.Second
}

// MQTTConfig describes the broker connection. An empty Broker disables the
// MQTT side of the bridge.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
}

// HAConfig describes the Home Assistant MQTT discovery entity.
type HAConfig struct {
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	DeviceName      string `yaml:"device_name"`
	DeviceID        string `yaml:"device_id"`
}

// BridgeConfig holds bridge runtime settings.
type BridgeConfig struct {
	PollIntervalS int `yaml:"poll_interval_s"`
	HTTPPort      int `yaml:"http_port"`
}

// PollInterval returns the time between device polls.
func (b BridgeConfig) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalS) * time.Second
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Modbus.Port == 0 {
		c.Modbus.Port = 502
	}
	if c.Modbus.TimeoutMs == 0 {
		c.Modbus.TimeoutMs = 5000
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "s21-bridge"
	}
	if c.HomeAssistant.DiscoveryPrefix == "" {
		c.HomeAssistant.DiscoveryPrefix = "homeassistant"
	}
	if c.HomeAssistant.DeviceName == "" {
		c.HomeAssistant.DeviceName = "Blauberg S21"
	}
	if c.HomeAssistant.DeviceID == "" {
		c.HomeAssistant.DeviceID = fmt.Sprintf("s21_%s_%d", c.Modbus.Host, c.Modbus.Port)
	}
	if c.Bridge.PollIntervalS == 0 {
		c.Bridge.PollIntervalS = 30
	}
	if c.Bridge.HTTPPort == 0 {
		c.Bridge.HTTPPort = 9090
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Modbus.Host == "" {
		return fmt.Errorf("modbus.host is required")
	}
	if c.Modbus.TimeoutMs < 0 {
		return fmt.Errorf("modbus.timeout_ms must not be negative")
	}
	if c.Bridge.PollIntervalS < 1 {
		return fmt.Errorf("bridge.poll_interval_s must be at least 1")
	}
	if c.Bridge.HTTPPort < 1 || c.Bridge.HTTPPort > 65535 {
		return fmt.Errorf("bridge.http_port %d out of range", c.Bridge.HTTPPort)
	}
	if c.MQTT.Broker != "" && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		return fmt.Errorf("mqtt.port %d out of range", c.MQTT.Port)
	}
	return nil
}
