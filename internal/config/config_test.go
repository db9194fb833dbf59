package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
modbus:
  host: 192.168.1.10
`))
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.10", cfg.Modbus.Host)
	assert.Equal(t, uint16(502), cfg.Modbus.Port)
	assert.Equal(t, 5*time.Second, cfg.Modbus.Timeout())
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "s21-bridge", cfg.MQTT.ClientID)
	assert.Equal(t, "homeassistant", cfg.HomeAssistant.DiscoveryPrefix)
	assert.Equal(t, "Blauberg S21", cfg.HomeAssistant.DeviceName)
	assert.Equal(t, "s21_192.168.1.10_502", cfg.HomeAssistant.DeviceID)
	assert.Equal(t, 30*time.Second, cfg.Bridge.PollInterval())
	assert.Equal(t, 9090, cfg.Bridge.HTTPPort)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
modbus:
  host: vent.local
  port: 1502
  unit_id: 2
  timeout_ms: 2500
  max_retries: 5
  breaker_failures: 8
  breaker_cooldown_s: 60
mqtt:
  broker: broker.local
  port: 8883
  username: bridge
  password: secret
  client_id: attic-s21
homeassistant:
  discovery_prefix: ha
  device_name: Attic ventilation
  device_id: attic_s21
bridge:
  poll_interval_s: 10
  http_port: 8080
`))
	require.NoError(t, err)

	assert.Equal(t, uint16(1502), cfg.Modbus.Port)
	assert.Equal(t, uint8(2), cfg.Modbus.UnitID)
	assert.Equal(t, 2500*time.Millisecond, cfg.Modbus.Timeout())
	assert.Equal(t, uint64(5), cfg.Modbus.MaxRetries)
	assert.Equal(t, uint32(8), cfg.Modbus.BreakerFailures)
	assert.Equal(t, time.Minute, cfg.Modbus.BreakerCooldown())
	assert.Equal(t, "broker.local", cfg.MQTT.Broker)
	assert.Equal(t, "attic-s21", cfg.MQTT.ClientID)
	assert.Equal(t, "ha", cfg.HomeAssistant.DiscoveryPrefix)
	assert.Equal(t, "attic_s21", cfg.HomeAssistant.DeviceID)
	assert.Equal(t, 10*time.Second, cfg.Bridge.PollInterval())
	assert.Equal(t, 8080, cfg.Bridge.HTTPPort)
}

func TestLoadRequiresHost(t *testing.T) {
	_, err := Load(writeConfig(t, `
bridge:
  poll_interval_s: 10
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modbus.host")
}

func TestLoadRejectsBadYaml(t *testing.T) {
	_, err := Load(writeConfig(t, "modbus: [not a mapping"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Modbus.Host = "vent.local"
		c.applyDefaults()
		return c
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})
	t.Run("negative timeout", func(t *testing.T) {
		c := base()
		c.Modbus.TimeoutMs = -1
		assert.Error(t, c.Validate())
	})
	t.Run("http port out of range", func(t *testing.T) {
		c := base()
		c.Bridge.HTTPPort = 70000
		assert.Error(t, c.Validate())
	})
	t.Run("mqtt port checked only with broker", func(t *testing.T) {
		c := base()
		c.MQTT.Port = -1
		assert.NoError(t, c.Validate())
		c.MQTT.Broker = "broker.local"
		assert.Error(t, c.Validate())
	})
}
