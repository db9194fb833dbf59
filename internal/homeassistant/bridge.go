// Package homeassistant publishes the unit state to Home Assistant over
// MQTT discovery and applies climate commands received from it.
package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/s21tools/gos21/internal/config"
	"github.com/s21tools/gos21/s21"
)

// Bridge owns the MQTT side of the integration: one climate entity
// announced via discovery, a retained JSON state topic and a set of command
// topics that drive the s21 client.
type Bridge struct {
	client   mqtt.Client
	cfg      *config.HAConfig
	dev      *s21.Client
	commands chan Command
}

// Command is one device mutation received over MQTT. The s21 client does not
// serialize concurrent callers, so commands are queued and applied by the
// goroutine that owns the poll loop, never by paho's delivery goroutines.
type Command struct {
	Name    string
	Payload string
	apply   func(ctx context.Context) error
}

// Apply runs the command against the device.
func (c Command) Apply(ctx context.Context) error { return c.apply(ctx) }

// Commands returns the queue of pending device commands.
func (b *Bridge) Commands() <-chan Command { return b.commands }

// NewBridge builds the MQTT client. No connection is made until Connect.
func NewBridge(mqttCfg *config.MQTTConfig, haCfg *config.HAConfig, dev *s21.Client) *Bridge {
	b := &Bridge{cfg: haCfg, dev: dev, commands: make(chan Command, 16)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", mqttCfg.Broker, mqttCfg.Port))
	opts.SetClientID(mqttCfg.ClientID)
	opts.SetUsername(mqttCfg.Username)
	opts.SetPassword(mqttCfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(b.availabilityTopic(), "offline", 0, true)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker")
		b.subscribeCommands(client)
		client.Publish(b.availabilityTopic(), 0, true, "online")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	})

	b.client = mqtt.NewClient(opts)
	return b
}

// Connect connects to the broker. Reconnects after that are handled by the
// paho auto-reconnect machinery.
func (b *Bridge) Connect(ctx context.Context) error {
	token := b.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return ctx.Err()
}

// Disconnect announces unavailability and closes the connection.
func (b *Bridge) Disconnect() {
	if b.client.IsConnected() {
		b.client.Publish(b.availabilityTopic(), 0, true, "offline").Wait()
		b.client.Disconnect(250)
	}
}

func (b *Bridge) baseTopic() string               { return "s21/" + b.cfg.DeviceID }
func (b *Bridge) stateTopic() string              { return b.baseTopic() + "/state" }
func (b *Bridge) availabilityTopic() string       { return b.baseTopic() + "/availability" }
func (b *Bridge) commandTopic(name string) string { return b.baseTopic() + "/" + name + "/set" }

// discoveryPayload is the Home Assistant MQTT climate discovery document.
type discoveryPayload struct {
	Name                    string     `json:"name"`
	UniqueID                string     `json:"unique_id"`
	AvailabilityTopic       string     `json:"availability_topic"`
	ModeStateTopic          string     `json:"mode_state_topic"`
	ModeStateTemplate       string     `json:"mode_state_template"`
	ModeCommandTopic        string     `json:"mode_command_topic"`
	ActionTopic             string     `json:"action_topic"`
	ActionTemplate          string     `json:"action_template"`
	TemperatureStateTopic   string     `json:"temperature_state_topic"`
	TemperatureStateTmpl    string     `json:"temperature_state_template"`
	TemperatureCommandTopic string     `json:"temperature_command_topic"`
	CurrentTemperatureTopic string     `json:"current_temperature_topic"`
	CurrentTemperatureTmpl  string     `json:"current_temperature_template"`
	FanModeStateTopic       string     `json:"fan_mode_state_topic"`
	FanModeStateTemplate    string     `json:"fan_mode_state_template"`
	FanModeCommandTopic     string     `json:"fan_mode_command_topic"`
	MinTemp                 int        `json:"min_temp"`
	MaxTemp                 int        `json:"max_temp"`
	TempStep                int        `json:"temp_step"`
	Modes                   []string   `json:"modes"`
	FanModes                []string   `json:"fan_modes"`
	Device                  deviceInfo `json:"device"`
}

type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// stateMessage is the retained JSON document the discovery templates read.
type stateMessage struct {
	Mode               string  `json:"mode"`
	Action             string  `json:"action"`
	FanMode            string  `json:"fan_mode"`
	FanSpeedPercent    int     `json:"fan_speed_percent"`
	TargetTemperature  int     `json:"target_temperature"`
	CurrentTemperature float64 `json:"current_temperature"`
	IntakeTemperature  float64 `json:"intake_temperature"`
	Humidity           int     `json:"humidity"`
	Boost              bool    `json:"boost"`
	FilterAlarm        bool    `json:"filter_alarm"`
}

func (b *Bridge) discovery(st *s21.DeviceState) discoveryPayload {
	modes := make([]string, 0, len(s21.HVACModes))
	for _, m := range s21.HVACModes {
		modes = append(modes, string(m))
	}
	fanModes := []string{"manual"}
	if st != nil {
		fanModes = fanModes[:0]
		for _, fm := range st.FanModes() {
			fanModes = append(fanModes, fm.String())
		}
	}

	dev := deviceInfo{
		Identifiers:  []string{b.cfg.DeviceID},
		Name:         b.cfg.DeviceName,
		Manufacturer: "Blauberg",
		Model:        "S21",
	}
	if st != nil {
		dev.Model = st.Model
		dev.SWVersion = st.Firmware
	}

	return discoveryPayload{
		Name:                    b.cfg.DeviceName,
		UniqueID:                b.cfg.DeviceID,
		AvailabilityTopic:       b.availabilityTopic(),
		ModeStateTopic:          b.stateTopic(),
		ModeStateTemplate:       "{{ value_json.mode }}",
		ModeCommandTopic:        b.commandTopic("mode"),
		ActionTopic:             b.stateTopic(),
		ActionTemplate:          "{{ value_json.action }}",
		TemperatureStateTopic:   b.stateTopic(),
		TemperatureStateTmpl:    "{{ value_json.target_temperature }}",
		TemperatureCommandTopic: b.commandTopic("temperature"),
		CurrentTemperatureTopic: b.stateTopic(),
		CurrentTemperatureTmpl:  "{{ value_json.current_temperature }}",
		FanModeStateTopic:       b.stateTopic(),
		FanModeStateTemplate:    "{{ value_json.fan_mode }}",
		FanModeCommandTopic:     b.commandTopic("fan_mode"),
		MinTemp:                 s21.MinTargetTemperature,
		MaxTemp:                 s21.MaxTargetTemperature,
		TempStep:                1,
		Modes:                   modes,
		FanModes:                fanModes,
		Device:                  dev,
	}
}

// PublishDiscovery announces the climate entity. Passing the last snapshot
// (may be nil) fills in firmware and the unit's actual fan levels.
func (b *Bridge) PublishDiscovery(st *s21.DeviceState) error {
	topic := fmt.Sprintf("%s/climate/%s/config", b.cfg.DiscoveryPrefix, b.cfg.DeviceID)
	data, err := json.Marshal(b.discovery(st))
	if err != nil {
		return fmt.Errorf("marshal discovery: %w", err)
	}
	return b.publish(topic, data)
}

func newStateMessage(st *s21.DeviceState) stateMessage {
	return stateMessage{
		Mode:               string(st.HVACMode),
		Action:             string(st.HVACAction()),
		FanMode:            st.FanMode.String(),
		FanSpeedPercent:    st.FanSpeedPercent,
		TargetTemperature:  st.TargetTemperature,
		CurrentTemperature: st.CurrentTemperature,
		IntakeTemperature:  st.IntakeTemperature,
		Humidity:           st.Humidity,
		Boost:              st.Boost,
		FilterAlarm:        st.FilterAlarm(),
	}
}

// PublishState publishes one snapshot to the retained state topic.
func (b *Bridge) PublishState(st *s21.DeviceState) error {
	data, err := json.Marshal(newStateMessage(st))
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return b.publish(b.stateTopic(), data)
}

func (b *Bridge) publish(topic string, payload []byte) error {
	token := b.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

func (b *Bridge) subscribeCommands(client mqtt.Client) {
	topic := b.baseTopic() + "/+/set"
	if token := client.Subscribe(topic, 0, b.onCommand); token.Wait() && token.Error() != nil {
		log.Printf("Error subscribing to %s: %v", topic, token.Error())
		return
	}
	log.Printf("Subscribed to %s", topic)
}

// onCommand parses one command message and queues it. Paho delivers messages
// on its own goroutines, so nothing here may touch the device directly.
func (b *Bridge) onCommand(_ mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 2 {
		return
	}
	name := parts[len(parts)-2]
	payload := strings.TrimSpace(string(msg.Payload()))

	var apply func(ctx context.Context) error
	switch name {
	case "mode":
		apply = func(ctx context.Context) error { return b.dev.SetHVACMode(ctx, s21.HVACMode(payload)) }
	case "temperature":
		apply = func(ctx context.Context) error { return b.setTemperature(ctx, payload) }
	case "fan_mode":
		apply = func(ctx context.Context) error { return b.setFanMode(ctx, payload) }
	case "fan_speed":
		apply = func(ctx context.Context) error { return b.setFanSpeed(ctx, payload) }
	case "power":
		apply = func(ctx context.Context) error { return b.setPower(ctx, payload) }
	case "filter_reset":
		apply = b.dev.ResetFilterChangeTimer
	default:
		log.Printf("Unknown command topic %s", msg.Topic())
		return
	}

	select {
	case b.commands <- Command{Name: name, Payload: payload, apply: apply}:
	default:
		log.Printf("Command queue full, dropping %s=%q", name, payload)
	}
}

func (b *Bridge) setTemperature(ctx context.Context, payload string) error {
	// HA sends temperatures as floats even with temp_step 1
	temp, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return fmt.Errorf("parse temperature %q: %w", payload, err)
	}
	return b.dev.SetTemperature(ctx, int(temp))
}

func (b *Bridge) setFanMode(ctx context.Context, payload string) error {
	if payload == "manual" {
		return b.dev.SetFanMode(ctx, s21.FanModeManual)
	}
	level, err := strconv.Atoi(payload)
	if err != nil {
		return fmt.Errorf("parse fan mode %q: %w", payload, err)
	}
	return b.dev.SetFanMode(ctx, s21.FanMode(level))
}

func (b *Bridge) setFanSpeed(ctx context.Context, payload string) error {
	percent, err := strconv.Atoi(payload)
	if err != nil {
		return fmt.Errorf("parse fan speed %q: %w", payload, err)
	}
	return b.dev.SetManualFanSpeedPercent(ctx, percent)
}

func (b *Bridge) setPower(ctx context.Context, payload string) error {
	switch strings.ToUpper(payload) {
	case "ON", "1", "TRUE":
		return b.dev.TurnOn(ctx)
	case "OFF", "0", "FALSE":
		return b.dev.TurnOff(ctx)
	default:
		return fmt.Errorf("unknown power payload %q", payload)
	}
}
