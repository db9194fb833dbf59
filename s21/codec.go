package s21

import "fmt"

// RawValues carries one poll's worth of raw reads, keyed by address within
// each primary table.
type RawValues struct {
	Coils   map[uint16]bool
	Holding map[uint16]uint16
	Input   map[uint16]uint16
}

// map read helpers; absent addresses decode as zero
func cl(m map[uint16]bool, addr uint16) bool      { return m[addr] }
func u16(m map[uint16]uint16, addr uint16) uint16 { return m[addr] }

func i16f(m map[uint16]uint16, addr uint16, scale float64) float64 {
	return float64(int16(m[addr])) * scale
}

// Decode builds a DeviceState snapshot from raw register values. It fails
// with a MappingError when the operation-mode register holds a value outside
// the known set, even while the unit is powered off.
func Decode(raw RawValues) (DeviceState, error) {
	opRaw := u16(raw.Holding, hrOperationMode)
	mode, ok := modeFromRaw(opRaw)
	if !ok {
		return DeviceState{}, &MappingError{Field: FieldOperationMode, Raw: opRaw}
	}

	power := cl(raw.Coils, coilPower)
	if !power {
		mode = ModeOff
	}

	return DeviceState{
		Power:              power,
		Boost:              cl(raw.Coils, coilBoost),
		HVACMode:           mode,
		FanMode:            FanMode(u16(raw.Holding, hrFanMode)),
		MaxFanLevel:        int(u16(raw.Holding, hrMaxFanLevel)),
		FanSpeedPercent:    int(u16(raw.Holding, hrManualSpeed)),
		TargetTemperature:  int(u16(raw.Holding, hrTargetTemp)),
		CurrentTemperature: i16f(raw.Input, irSupplyTemp, 0.1),
		IntakeTemperature:  i16f(raw.Input, irIntakeTemp, 0.1),
		Humidity:           int(u16(raw.Input, irHumidity)),
		FilterState:        u16(raw.Input, irFilterState),
		AlarmState:         u16(raw.Input, irAlarmState),
		Firmware:           firmwareString(u16(raw.Input, irFirmware), u16(raw.Input, irFirmware+1), u16(raw.Input, irFirmware+2)),
		Model:              modelName(u16(raw.Input, irDeviceType)),
	}, nil
}

// Encode validates value against the field's legal domain and returns the
// write target with the raw register value. Read-only fields are rejected.
func Encode(field Field, value int) (RegisterAddress, uint16, error) {
	reg, ok := Registers[field]
	if !ok {
		return RegisterAddress{}, 0, &ValidationError{Field: field, Reason: "no register map entry"}
	}

	switch field {
	case FieldPower, FieldBoost, FieldFilterReset, FieldAlarmReset:
		if value != 0 && value != 1 {
			return RegisterAddress{}, 0, &ValidationError{Field: field, Reason: fmt.Sprintf("value %d is not a coil state", value)}
		}
	case FieldTargetTemperature:
		if value < MinTargetTemperature || value > MaxTargetTemperature {
			return RegisterAddress{}, 0, &ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("%d °C outside supported range %d..%d °C", value, MinTargetTemperature, MaxTargetTemperature),
			}
		}
	case FieldManualFanSpeed:
		if value < MinManualFanSpeed || value > MaxManualFanSpeed {
			return RegisterAddress{}, 0, &ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("%d%% outside range %d..%d%%", value, MinManualFanSpeed, MaxManualFanSpeed),
			}
		}
	case FieldFanMode:
		if FanMode(value) != FanModeManual && (value < 1 || value > MaxFanLevels) {
			return RegisterAddress{}, 0, &ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("level %d is not 1..%d or manual", value, MaxFanLevels),
			}
		}
	case FieldOperationMode:
		if value < 0 || value > int(opModeAuto) {
			return RegisterAddress{}, 0, &ValidationError{Field: field, Reason: fmt.Sprintf("raw mode %d unknown", value)}
		}
	default:
		return RegisterAddress{}, 0, &ValidationError{Field: field, Reason: "field is read-only"}
	}

	return reg, uint16(value), nil
}

// Raw operation-mode values.
const (
	opModeFanOnly uint16 = 0
	opModeHeat    uint16 = 1
	opModeCool    uint16 = 2
	opModeAuto    uint16 = 3
)

func modeFromRaw(raw uint16) (HVACMode, bool) {
	switch raw {
	case opModeFanOnly:
		return ModeFanOnly, true
	case opModeHeat:
		return ModeHeat, true
	case opModeCool:
		return ModeCool, true
	case opModeAuto:
		return ModeAuto, true
	default:
		return "", false
	}
}

// operationModeRaw is the inverse of modeFromRaw. ModeOff has no raw value;
// it is expressed through the power coil.
func operationModeRaw(mode HVACMode) (uint16, bool) {
	switch mode {
	case ModeFanOnly:
		return opModeFanOnly, true
	case ModeHeat:
		return opModeHeat, true
	case ModeCool:
		return opModeCool, true
	case ModeAuto:
		return opModeAuto, true
	default:
		return 0, false
	}
}

// firmwareString unpacks the three firmware registers: major/minor in the
// high/low byte of the first, build day/month in the second, year in the
// third.
func firmwareString(version, date, year uint16) string {
	major := version >> 8
	minor := version & 0xff
	day := date >> 8
	month := date & 0xff
	return fmt.Sprintf("%d.%d (%d-%02d-%02d)", major, minor, year, month, day)
}

func modelName(deviceType uint16) string {
	if deviceType == deviceTypeS21 {
		return "S21"
	}
	return "Unknown"
}
