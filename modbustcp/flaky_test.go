package modbustcp

import (
	"context"
	"errors"
)

var errTimeout = errors.New("read tcp: i/o timeout")

// flakyTransport fails the first n read/write operations, then succeeds.
type flakyTransport struct {
	failures int // operations left to fail
	ops      int // read/write attempts seen
	opens    int
	closes   int
}

func (f *flakyTransport) attempt() error {
	f.ops++
	if f.failures > 0 {
		f.failures--
		return errTimeout
	}
	return nil
}

func (f *flakyTransport) Open(context.Context) error { f.opens++; return nil }
func (f *flakyTransport) Close() error               { f.closes++; return nil }

func (f *flakyTransport) ReadCoils(_ context.Context, _, quantity uint16) ([]bool, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return make([]bool, quantity), nil
}

func (f *flakyTransport) ReadHoldingRegisters(_ context.Context, _, quantity uint16) ([]uint16, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return make([]uint16, quantity), nil
}

func (f *flakyTransport) ReadInputRegisters(_ context.Context, _, quantity uint16) ([]uint16, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return make([]uint16, quantity), nil
}

func (f *flakyTransport) WriteCoil(context.Context, uint16, bool) error {
	return f.attempt()
}

func (f *flakyTransport) WriteRegister(context.Context, uint16, uint16) error {
	return f.attempt()
}
