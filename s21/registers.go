package s21

// Register map for the Blauberg S21 ventilation unit. Coil and register
// addresses follow the vendor Modbus TCP documentation; every quantity the
// client can observe or control has exactly one entry in Registers.

// RegKind distinguishes the Modbus primary tables a quantity lives in.
type RegKind int

const (
	Coil RegKind = iota
	HoldingRegister
	InputRegister
)

func (k RegKind) String() string {
	switch k {
	case Coil:
		return "coil"
	case HoldingRegister:
		return "holding register"
	case InputRegister:
		return "input register"
	default:
		return "unknown"
	}
}

// RegisterAddress locates one quantity on the unit.
type RegisterAddress struct {
	Kind  RegKind
	Addr  uint16
	Count uint16 // registers occupied, 1 unless noted
}

// Field identifies one controllable or observable quantity.
type Field int

const (
	FieldPower Field = iota
	FieldBoost
	FieldFilterReset
	FieldAlarmReset
	FieldMaxFanLevel
	FieldFanMode
	FieldManualFanSpeed
	FieldOperationMode
	FieldTargetTemperature
	FieldIntakeTemperature
	FieldCurrentTemperature
	FieldHumidity
	FieldFilterState
	FieldFirmware
	FieldDeviceType
	FieldAlarmState
)

func (f Field) String() string {
	switch f {
	case FieldPower:
		return "power"
	case FieldBoost:
		return "boost"
	case FieldFilterReset:
		return "filter timer reset"
	case FieldAlarmReset:
		return "alarm reset"
	case FieldMaxFanLevel:
		return "max fan level"
	case FieldFanMode:
		return "fan mode"
	case FieldManualFanSpeed:
		return "manual fan speed"
	case FieldOperationMode:
		return "operation mode"
	case FieldTargetTemperature:
		return "target temperature"
	case FieldIntakeTemperature:
		return "intake temperature"
	case FieldCurrentTemperature:
		return "supply temperature"
	case FieldHumidity:
		return "humidity"
	case FieldFilterState:
		return "filter state"
	case FieldFirmware:
		return "firmware version"
	case FieldDeviceType:
		return "device type"
	case FieldAlarmState:
		return "alarm state"
	default:
		return "unknown"
	}
}

// Coils.
const (
	coilPower       uint16 = 0
	coilBoost       uint16 = 3
	coilFilterReset uint16 = 17 // pulse, write-only
	coilAlarmReset  uint16 = 18 // pulse, write-only
)

// Holding registers.
const (
	hrMaxFanLevel   uint16 = 1
	hrFanMode       uint16 = 2 // 1..max level, 255 = manual
	hrManualSpeed   uint16 = 17
	hrOperationMode uint16 = 43
	hrTargetTemp    uint16 = 44
)

// Input registers. Temperatures are signed, 0.1 °C per unit.
const (
	irIntakeTemp  uint16 = 1
	irSupplyTemp  uint16 = 2
	irHumidity    uint16 = 10 // 0 = sensor absent
	irFilterState uint16 = 31
	irFirmware    uint16 = 34 // 3 registers: version, build date, year
	irDeviceType  uint16 = 37
	irAlarmState  uint16 = 38
)

// Registers maps every field to its location on the unit.
var Registers = map[Field]RegisterAddress{
	FieldPower:              {Kind: Coil, Addr: coilPower, Count: 1},
	FieldBoost:              {Kind: Coil, Addr: coilBoost, Count: 1},
	FieldFilterReset:        {Kind: Coil, Addr: coilFilterReset, Count: 1},
	FieldAlarmReset:         {Kind: Coil, Addr: coilAlarmReset, Count: 1},
	FieldMaxFanLevel:        {Kind: HoldingRegister, Addr: hrMaxFanLevel, Count: 1},
	FieldFanMode:            {Kind: HoldingRegister, Addr: hrFanMode, Count: 1},
	FieldManualFanSpeed:     {Kind: HoldingRegister, Addr: hrManualSpeed, Count: 1},
	FieldOperationMode:      {Kind: HoldingRegister, Addr: hrOperationMode, Count: 1},
	FieldTargetTemperature:  {Kind: HoldingRegister, Addr: hrTargetTemp, Count: 1},
	FieldIntakeTemperature:  {Kind: InputRegister, Addr: irIntakeTemp, Count: 1},
	FieldCurrentTemperature: {Kind: InputRegister, Addr: irSupplyTemp, Count: 1},
	FieldHumidity:           {Kind: InputRegister, Addr: irHumidity, Count: 1},
	FieldFilterState:        {Kind: InputRegister, Addr: irFilterState, Count: 1},
	FieldFirmware:           {Kind: InputRegister, Addr: irFirmware, Count: 3},
	FieldDeviceType:         {Kind: InputRegister, Addr: irDeviceType, Count: 1},
	FieldAlarmState:         {Kind: InputRegister, Addr: irAlarmState, Count: 1},
}

// Contiguous read blocks covering every readable field; each block is one
// read transaction during a poll.
type block struct {
	start uint16
	count uint16
}

var (
	coilBlock    = block{start: 0, count: 4}
	holdingBlock = block{start: 0, count: 45}
	inputBlock   = block{start: 0, count: 39}
)

// Device limits.
const (
	MinTargetTemperature = 15 // °C
	MaxTargetTemperature = 30 // °C
	MinManualFanSpeed    = 0  // %
	MaxManualFanSpeed    = 100

	// MaxFanLevels is the protocol upper bound on discrete fan levels. The
	// unit reports how many it actually has in the max-fan-level register.
	MaxFanLevels = 6

	deviceTypeS21 = 1
)
