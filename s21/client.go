// Package s21 is a Modbus TCP client for Blauberg S21 ventilation units. It
// translates the unit's coil/register map into a typed DeviceState snapshot
// and high-level commands back into validated register writes.
package s21

import (
	"context"
	"fmt"
)

// Transport is the Modbus TCP capability the client drives. The client
// issues one operation at a time and awaits its completion; it does not
// serialize concurrent callers, so callers sharing one client must do that
// themselves.
type Transport interface {
	Open(ctx context.Context) error
	Close() error
	ReadCoils(ctx context.Context, addr, quantity uint16) ([]bool, error)
	ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error)
	ReadInputRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error)
	WriteCoil(ctx context.Context, addr uint16, value bool) error
	WriteRegister(ctx context.Context, addr, value uint16) error
}

// maxReadQuantity is the Modbus limit on registers per read transaction.
const maxReadQuantity = 125

// Client owns one transport exclusively. Lifecycle: NewClient, Connect,
// any number of polls and commands, Close.
type Client struct {
	transport Transport
	state     *DeviceState // last snapshot, nil until the first successful poll
}

// NewClient wraps a transport. The transport must not be shared with other
// clients.
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// Connect opens the underlying connection.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.Open(ctx); err != nil {
		return &CommunicationError{Op: "connect", Err: err}
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if err := c.transport.Close(); err != nil {
		return &CommunicationError{Op: "close", Err: err}
	}
	return nil
}

// State returns the snapshot from the last successful poll, or nil before
// one completed. The snapshot is never mutated afterwards.
func (c *Client) State() *DeviceState { return c.state }

// Poll reads every mapped quantity in three contiguous block reads, decodes
// them and returns a fresh snapshot. The device-type register is checked
// first so a foreign unit fails fast without further round trips.
func (c *Client) Poll(ctx context.Context) (*DeviceState, error) {
	input, err := c.readBlock(ctx, inputBlock, c.transport.ReadInputRegisters, "read input registers")
	if err != nil {
		return nil, err
	}
	if dt := input[irDeviceType]; dt != deviceTypeS21 {
		return nil, &UnsupportedDeviceError{DeviceType: dt}
	}

	coils, err := c.readCoilBlock(ctx, coilBlock)
	if err != nil {
		return nil, err
	}
	holding, err := c.readBlock(ctx, holdingBlock, c.transport.ReadHoldingRegisters, "read holding registers")
	if err != nil {
		return nil, err
	}

	st, err := Decode(RawValues{Coils: coils, Holding: holding, Input: input})
	if err != nil {
		return nil, err
	}
	c.state = &st
	return &st, nil
}

// TurnOn powers the unit on. No prior poll is required.
func (c *Client) TurnOn(ctx context.Context) error {
	return c.writeCoilField(ctx, FieldPower, true)
}

// TurnOff powers the unit off.
func (c *Client) TurnOff(ctx context.Context) error {
	return c.writeCoilField(ctx, FieldPower, false)
}

// SetHVACMode selects the operating mode. ModeOff powers the unit off; any
// other mode powers it on and writes the operation-mode register.
func (c *Client) SetHVACMode(ctx context.Context, mode HVACMode) error {
	if mode == ModeOff {
		return c.TurnOff(ctx)
	}
	raw, ok := operationModeRaw(mode)
	if !ok {
		return &ValidationError{Field: FieldOperationMode, Reason: fmt.Sprintf("unsupported hvac mode %q", mode)}
	}
	if err := c.TurnOn(ctx); err != nil {
		return err
	}
	return c.writeField(ctx, FieldOperationMode, int(raw))
}

// SetFanMode selects a discrete fan level or manual control. Levels above
// the maximum the unit reported in the last snapshot are rejected; without a
// snapshot only the protocol bound applies.
func (c *Client) SetFanMode(ctx context.Context, mode FanMode) error {
	if st := c.state; st != nil && !mode.IsManual() && int(mode) > st.MaxFanLevel {
		return &ValidationError{
			Field:  FieldFanMode,
			Reason: fmt.Sprintf("level %d above unit maximum %d", mode, st.MaxFanLevel),
		}
	}
	return c.writeField(ctx, FieldFanMode, int(mode))
}

// SetManualFanSpeedPercent sets the manual fan speed. The value only takes
// effect while the fan mode is FanModeManual; the client does not enforce
// that cross-field precondition, callers re-poll to observe effective state.
func (c *Client) SetManualFanSpeedPercent(ctx context.Context, percent int) error {
	return c.writeField(ctx, FieldManualFanSpeed, percent)
}

// SetTemperature sets the target temperature in whole °C.
func (c *Client) SetTemperature(ctx context.Context, tempCelsius int) error {
	return c.writeField(ctx, FieldTargetTemperature, tempCelsius)
}

// ResetFilterChangeTimer pulses the filter-timer reset coil.
func (c *Client) ResetFilterChangeTimer(ctx context.Context) error {
	return c.writeCoilField(ctx, FieldFilterReset, true)
}

// ResetAlarm pulses the alarm reset coil.
func (c *Client) ResetAlarm(ctx context.Context) error {
	return c.writeCoilField(ctx, FieldAlarmReset, true)
}

type registerReader func(ctx context.Context, addr, quantity uint16) ([]uint16, error)

// readBlock reads one contiguous register range, chunked to the transaction
// limit, into an address-keyed map.
func (c *Client) readBlock(ctx context.Context, b block, read registerReader, op string) (map[uint16]uint16, error) {
	out := make(map[uint16]uint16, b.count)
	for off := uint16(0); off < b.count; off += maxReadQuantity {
		quantity := b.count - off
		if quantity > maxReadQuantity {
			quantity = maxReadQuantity
		}
		regs, err := read(ctx, b.start+off, quantity)
		if err != nil {
			return nil, &CommunicationError{Op: op, Err: err}
		}
		for i, val := range regs {
			out[b.start+off+uint16(i)] = val
		}
	}
	return out, nil
}

func (c *Client) readCoilBlock(ctx context.Context, b block) (map[uint16]bool, error) {
	bits, err := c.transport.ReadCoils(ctx, b.start, b.count)
	if err != nil {
		return nil, &CommunicationError{Op: "read coils", Err: err}
	}
	out := make(map[uint16]bool, len(bits))
	for i, v := range bits {
		out[b.start+uint16(i)] = v
	}
	return out, nil
}

// writeField validates, encodes and writes one holding register.
func (c *Client) writeField(ctx context.Context, field Field, value int) error {
	reg, raw, err := Encode(field, value)
	if err != nil {
		return err
	}
	if err := c.transport.WriteRegister(ctx, reg.Addr, raw); err != nil {
		return &CommunicationError{Op: fmt.Sprintf("write %s", field), Err: err}
	}
	return nil
}

func (c *Client) writeCoilField(ctx context.Context, field Field, value bool) error {
	reg := Registers[field]
	if err := c.transport.WriteCoil(ctx, reg.Addr, value); err != nil {
		return &CommunicationError{Op: fmt.Sprintf("write %s", field), Err: err}
	}
	return nil
}
