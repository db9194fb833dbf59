// Package modbustcp adapts a Modbus TCP client library to the s21.Transport
// interface and provides retry and circuit-breaker decorators for flaky
// links.
package modbustcp

import (
	"context"
	"fmt"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/s21tools/gos21/s21"
)

// Config describes one Modbus TCP endpoint.
type Config struct {
	Host    string
	Port    uint16
	UnitID  uint8
	Timeout time.Duration
}

// Transport drives one Modbus TCP connection. It is not safe for concurrent
// use; the s21 client owns it exclusively.
type Transport struct {
	client *modbus.ModbusClient
}

var _ s21.Transport = (*Transport)(nil)

// New builds a transport for the given endpoint. The connection is not
// opened until Open is called.
func New(cfg Config) (*Transport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("modbustcp: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 502
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port),
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("modbustcp: create client: %w", err)
	}
	if cfg.UnitID != 0 {
		if err := client.SetUnitId(cfg.UnitID); err != nil {
			return nil, fmt.Errorf("modbustcp: set unit id: %w", err)
		}
	}
	return &Transport{client: client}, nil
}

func (t *Transport) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.client.Open()
}

func (t *Transport) Close() error { return t.client.Close() }

func (t *Transport) ReadCoils(ctx context.Context, addr, quantity uint16) ([]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.client.ReadCoils(addr, quantity)
}

func (t *Transport) ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.client.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
}

func (t *Transport) ReadInputRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.client.ReadRegisters(addr, quantity, modbus.INPUT_REGISTER)
}

func (t *Transport) WriteCoil(ctx context.Context, addr uint16, value bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.client.WriteCoil(addr, value)
}

func (t *Transport) WriteRegister(ctx context.Context, addr, value uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.client.WriteRegister(addr, value)
}
