package s21

import "fmt"

// HVACMode is the operating mode of the unit.
type HVACMode string

const (
	ModeOff     HVACMode = "off"
	ModeFanOnly HVACMode = "fan_only"
	ModeHeat    HVACMode = "heat"
	ModeCool    HVACMode = "cool"
	ModeAuto    HVACMode = "auto"
)

// HVACModes lists every mode the unit supports.
var HVACModes = []HVACMode{ModeOff, ModeFanOnly, ModeHeat, ModeCool, ModeAuto}

// HVACAction is what the unit is currently doing, as opposed to what it is
// set to do.
type HVACAction string

const (
	ActionOff     HVACAction = "off"
	ActionFan     HVACAction = "fan"
	ActionHeating HVACAction = "heating"
	ActionCooling HVACAction = "cooling"
	ActionIdle    HVACAction = "idle"
)

// HVACActions lists every action the unit can report.
var HVACActions = []HVACAction{ActionOff, ActionFan, ActionHeating, ActionCooling, ActionIdle}

// FanMode is a discrete fan level (1..MaxFanLevel) or FanModeManual.
type FanMode uint16

// FanModeManual selects percent-based speed control via the manual fan
// speed register.
const FanModeManual FanMode = 255

// IsManual reports whether the mode is percent-based manual control.
func (m FanMode) IsManual() bool { return m == FanModeManual }

func (m FanMode) String() string {
	if m.IsManual() {
		return "manual"
	}
	return fmt.Sprintf("%d", uint16(m))
}

// DeviceState is an immutable snapshot of the unit captured by one poll.
// It is superseded, never mutated, by the next poll.
type DeviceState struct {
	Power              bool
	Boost              bool
	HVACMode           HVACMode
	FanMode            FanMode
	MaxFanLevel        int     // discrete levels the unit reports
	FanSpeedPercent    int     // manual fan speed register, effective under FanModeManual
	TargetTemperature  int     // °C
	CurrentTemperature float64 // supply air, 0.1 °C resolution
	IntakeTemperature  float64 // intake air, 0.1 °C resolution
	Humidity           int     // %, 0 = sensor absent
	FilterState        uint16
	AlarmState         uint16
	Firmware           string
	Model              string
}

// FilterAlarm reports whether the unit asks for filter maintenance.
func (s DeviceState) FilterAlarm() bool { return s.FilterState != 0 }

// HVACAction derives the current activity. In auto mode the unit does not
// report its action, so it is inferred from the temperature delta across the
// heat exchanger.
func (s DeviceState) HVACAction() HVACAction {
	switch {
	case !s.Power:
		return ActionOff
	case s.HVACMode == ModeFanOnly:
		return ActionFan
	case s.HVACMode == ModeHeat:
		return ActionHeating
	case s.HVACMode == ModeCool:
		return ActionCooling
	case s.IntakeTemperature < s.CurrentTemperature:
		return ActionHeating
	case s.IntakeTemperature > s.CurrentTemperature:
		return ActionCooling
	default:
		return ActionIdle
	}
}

// FanModes lists the fan modes currently selectable: each reported discrete
// level plus manual.
func (s DeviceState) FanModes() []FanMode {
	modes := make([]FanMode, 0, s.MaxFanLevel+1)
	for lvl := 1; lvl <= s.MaxFanLevel; lvl++ {
		modes = append(modes, FanMode(lvl))
	}
	return append(modes, FanModeManual)
}
