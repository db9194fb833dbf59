package homeassistant

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s21tools/gos21/internal/config"
	"github.com/s21tools/gos21/s21"
)

func testBridge() *Bridge {
	return NewBridge(
		&config.MQTTConfig{Broker: "broker.local", Port: 1883, ClientID: "test"},
		&config.HAConfig{
			DiscoveryPrefix: "homeassistant",
			DeviceName:      "Attic ventilation",
			DeviceID:        "s21_attic",
		},
		nil,
	)
}

func TestTopics(t *testing.T) {
	b := testBridge()

	assert.Equal(t, "s21/s21_attic/state", b.stateTopic())
	assert.Equal(t, "s21/s21_attic/availability", b.availabilityTopic())
	assert.Equal(t, "s21/s21_attic/mode/set", b.commandTopic("mode"))
}

func TestDiscoveryPayload(t *testing.T) {
	b := testBridge()
	st := &s21.DeviceState{
		MaxFanLevel: 3,
		Firmware:    "0.36 (2019-05-08)",
		Model:       "S21",
	}

	payload := b.discovery(st)

	assert.Equal(t, "Attic ventilation", payload.Name)
	assert.Equal(t, "s21_attic", payload.UniqueID)
	assert.Equal(t, []string{"off", "fan_only", "heat", "cool", "auto"}, payload.Modes)
	assert.Equal(t, []string{"1", "2", "3", "manual"}, payload.FanModes)
	assert.Equal(t, s21.MinTargetTemperature, payload.MinTemp)
	assert.Equal(t, s21.MaxTargetTemperature, payload.MaxTemp)
	assert.Equal(t, b.stateTopic(), payload.ModeStateTopic)
	assert.Equal(t, b.commandTopic("temperature"), payload.TemperatureCommandTopic)
	assert.Equal(t, "S21", payload.Device.Model)
	assert.Equal(t, "0.36 (2019-05-08)", payload.Device.SWVersion)
}

func TestDiscoveryPayloadWithoutSnapshot(t *testing.T) {
	payload := testBridge().discovery(nil)

	assert.Equal(t, []string{"manual"}, payload.FanModes)
	assert.Equal(t, "S21", payload.Device.Model)
	assert.Empty(t, payload.Device.SWVersion)
}

func TestStateMessageJSON(t *testing.T) {
	st := &s21.DeviceState{
		Power:              true,
		HVACMode:           s21.ModeHeat,
		FanMode:            s21.FanModeManual,
		FanSpeedPercent:    60,
		TargetTemperature:  23,
		CurrentTemperature: 19.2,
		IntakeTemperature:  10.8,
		Humidity:           45,
		Boost:              true,
		FilterState:        1,
	}

	data, err := json.Marshal(newStateMessage(st))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "heat", decoded["mode"])
	assert.Equal(t, "heating", decoded["action"])
	assert.Equal(t, "manual", decoded["fan_mode"])
	assert.Equal(t, float64(60), decoded["fan_speed_percent"])
	assert.Equal(t, float64(23), decoded["target_temperature"])
	assert.Equal(t, true, decoded["boost"])
	assert.Equal(t, true, decoded["filter_alarm"])
}

type regWrite struct {
	addr  uint16
	value uint16
}

// recordingTransport is a minimal s21.Transport that logs register writes.
type recordingTransport struct {
	writes []regWrite
}

func (r *recordingTransport) Open(context.Context) error { return nil }
func (r *recordingTransport) Close() error               { return nil }

func (r *recordingTransport) ReadCoils(_ context.Context, _, quantity uint16) ([]bool, error) {
	return make([]bool, quantity), nil
}

func (r *recordingTransport) ReadHoldingRegisters(_ context.Context, _, quantity uint16) ([]uint16, error) {
	return make([]uint16, quantity), nil
}

func (r *recordingTransport) ReadInputRegisters(_ context.Context, _, quantity uint16) ([]uint16, error) {
	return make([]uint16, quantity), nil
}

func (r *recordingTransport) WriteCoil(_ context.Context, addr uint16, value bool) error {
	raw := uint16(0)
	if value {
		raw = 1
	}
	r.writes = append(r.writes, regWrite{addr: addr, value: raw})
	return nil
}

func (r *recordingTransport) WriteRegister(_ context.Context, addr, value uint16) error {
	r.writes = append(r.writes, regWrite{addr: addr, value: value})
	return nil
}

// stubMessage satisfies mqtt.Message for handler tests.
type stubMessage struct {
	topic   string
	payload string
}

func (stubMessage) Duplicate() bool   { return false }
func (stubMessage) Qos() byte         { return 0 }
func (stubMessage) Retained() bool    { return false }
func (m stubMessage) Topic() string   { return m.topic }
func (stubMessage) MessageID() uint16 { return 0 }
func (m stubMessage) Payload() []byte { return []byte(m.payload) }
func (stubMessage) Ack()              {}

func bridgeWithDevice(tr *recordingTransport) *Bridge {
	return NewBridge(
		&config.MQTTConfig{Broker: "broker.local", Port: 1883, ClientID: "test"},
		&config.HAConfig{DiscoveryPrefix: "homeassistant", DeviceName: "Attic ventilation", DeviceID: "s21_attic"},
		s21.NewClient(tr),
	)
}

func TestOnCommandQueuesWithoutTouchingDevice(t *testing.T) {
	tr := &recordingTransport{}
	b := bridgeWithDevice(tr)

	b.onCommand(nil, stubMessage{topic: b.commandTopic("temperature"), payload: "23"})

	assert.Empty(t, tr.writes, "the handler runs on a paho goroutine and must not write")

	var cmd Command
	select {
	case cmd = <-b.Commands():
	default:
		t.Fatal("command was not queued")
	}
	assert.Equal(t, "temperature", cmd.Name)
	assert.Equal(t, "23", cmd.Payload)

	require.NoError(t, cmd.Apply(context.Background()))
	require.Len(t, tr.writes, 1)
	assert.Equal(t, s21.Registers[s21.FieldTargetTemperature].Addr, tr.writes[0].addr)
	assert.Equal(t, uint16(23), tr.writes[0].value)
}

func TestOnCommandPowerQueued(t *testing.T) {
	tr := &recordingTransport{}
	b := bridgeWithDevice(tr)

	b.onCommand(nil, stubMessage{topic: b.commandTopic("power"), payload: "ON"})

	cmd := <-b.Commands()
	require.NoError(t, cmd.Apply(context.Background()))
	require.Len(t, tr.writes, 1)
	assert.Equal(t, s21.Registers[s21.FieldPower].Addr, tr.writes[0].addr)
	assert.Equal(t, uint16(1), tr.writes[0].value)
}

func TestOnCommandIgnoresUnknownTopic(t *testing.T) {
	b := bridgeWithDevice(&recordingTransport{})

	b.onCommand(nil, stubMessage{topic: b.commandTopic("defrost"), payload: "1"})

	select {
	case cmd := <-b.Commands():
		t.Fatalf("unexpected command queued: %s", cmd.Name)
	default:
	}
}
