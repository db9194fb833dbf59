package modbustcp

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/s21tools/gos21/s21"
)

type breakerTransport struct {
	inner s21.Transport
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker guards the link with a circuit breaker: after the configured
// number of consecutive failures it opens and operations fail fast with
// gobreaker.ErrOpenState, without touching the wire, until the cooldown
// elapses.
func WithBreaker(inner s21.Transport, name string, failures uint32, cooldown time.Duration) s21.Transport {
	if failures == 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
	return &breakerTransport{inner: inner, cb: cb}
}

func (b *breakerTransport) Open(ctx context.Context) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Open(ctx)
	})
	return err
}

// Close bypasses the breaker; releasing the socket must always be possible.
func (b *breakerTransport) Close() error { return b.inner.Close() }

func (b *breakerTransport) ReadCoils(ctx context.Context, addr, quantity uint16) ([]bool, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.ReadCoils(ctx, addr, quantity)
	})
	if err != nil {
		return nil, err
	}
	return v.([]bool), nil
}

func (b *breakerTransport) ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.ReadHoldingRegisters(ctx, addr, quantity)
	})
	if err != nil {
		return nil, err
	}
	return v.([]uint16), nil
}

func (b *breakerTransport) ReadInputRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.ReadInputRegisters(ctx, addr, quantity)
	})
	if err != nil {
		return nil, err
	}
	return v.([]uint16), nil
}

func (b *breakerTransport) WriteCoil(ctx context.Context, addr uint16, value bool) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.WriteCoil(ctx, addr, value)
	})
	return err
}

func (b *breakerTransport) WriteRegister(ctx context.Context, addr, value uint16) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.WriteRegister(ctx, addr, value)
	})
	return err
}
