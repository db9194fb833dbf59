package s21

import (
	"context"
	"errors"
)

var errLinkDown = errors.New("read tcp: connection reset by peer")

// simDevice is an in-memory register bank standing in for the unit, wired
// directly under the Transport interface. Defaults mirror a factory-fresh
// unit: powered off, fan-only mode, 20 °C target, three fan levels.
type simDevice struct {
	coils   map[uint16]bool
	holding map[uint16]uint16
	input   map[uint16]uint16

	opened   bool
	failFrom int // reads numbered >= failFrom fail; -1 = never
	reads    int
	writes   []simWrite
}

type simWrite struct {
	kind  RegKind
	addr  uint16
	value uint16
}

func newSimDevice() *simDevice {
	d := &simDevice{
		coils:    map[uint16]bool{},
		holding:  map[uint16]uint16{},
		input:    map[uint16]uint16{},
		failFrom: -1,
	}
	d.input[irDeviceType] = deviceTypeS21
	d.input[irIntakeTemp] = 108 // 10.8 °C
	d.input[irSupplyTemp] = 192 // 19.2 °C
	d.input[irFirmware] = 36
	d.input[irFirmware+1] = 2053
	d.input[irFirmware+2] = 2019
	d.holding[hrMaxFanLevel] = 3
	d.holding[hrFanMode] = 1
	d.holding[hrTargetTemp] = 20
	return d
}

func (d *simDevice) failNow() bool {
	return d.failFrom >= 0 && d.reads >= d.failFrom
}

func (d *simDevice) Open(context.Context) error { d.opened = true; return nil }
func (d *simDevice) Close() error               { d.opened = false; return nil }

func (d *simDevice) ReadCoils(_ context.Context, addr, quantity uint16) ([]bool, error) {
	if d.failNow() {
		return nil, errLinkDown
	}
	d.reads++
	out := make([]bool, quantity)
	for i := range out {
		out[i] = d.coils[addr+uint16(i)]
	}
	return out, nil
}

func (d *simDevice) ReadHoldingRegisters(_ context.Context, addr, quantity uint16) ([]uint16, error) {
	return d.readRegs(d.holding, addr, quantity)
}

func (d *simDevice) ReadInputRegisters(_ context.Context, addr, quantity uint16) ([]uint16, error) {
	return d.readRegs(d.input, addr, quantity)
}

func (d *simDevice) readRegs(bank map[uint16]uint16, addr, quantity uint16) ([]uint16, error) {
	if d.failNow() {
		return nil, errLinkDown
	}
	d.reads++
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = bank[addr+uint16(i)]
	}
	return out, nil
}

func (d *simDevice) WriteCoil(_ context.Context, addr uint16, value bool) error {
	if d.failNow() {
		return errLinkDown
	}
	d.coils[addr] = value
	raw := uint16(0)
	if value {
		raw = 1
	}
	d.writes = append(d.writes, simWrite{kind: Coil, addr: addr, value: raw})
	return nil
}

func (d *simDevice) WriteRegister(_ context.Context, addr, value uint16) error {
	if d.failNow() {
		return errLinkDown
	}
	d.holding[addr] = value
	d.writes = append(d.writes, simWrite{kind: HoldingRegister, addr: addr, value: value})
	return nil
}
