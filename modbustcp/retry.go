package modbustcp

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/s21tools/gos21/s21"
)

// RetryConfig bounds the replay of failed transport operations.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type retryTransport struct {
	inner s21.Transport
	cfg   RetryConfig
}

// WithRetry wraps a transport so transient link failures are replayed with
// exponential backoff before surfacing. The S21 drops idle connections from
// time to time, so a failed operation closes and reopens the link before
// the next attempt.
func WithRetry(inner s21.Transport, cfg RetryConfig) s21.Transport {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	return &retryTransport{inner: inner, cfg: cfg}
}

func (r *retryTransport) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)
}

// reopen cycles the connection so the next attempt starts from a fresh
// socket. Errors are ignored; the retried operation reports the real one.
func (r *retryTransport) reopen(ctx context.Context) {
	_ = r.inner.Close()
	_ = r.inner.Open(ctx)
}

func (r *retryTransport) Open(ctx context.Context) error {
	return backoff.Retry(func() error {
		return r.inner.Open(ctx)
	}, r.policy(ctx))
}

func (r *retryTransport) Close() error { return r.inner.Close() }

func (r *retryTransport) ReadCoils(ctx context.Context, addr, quantity uint16) ([]bool, error) {
	var out []bool
	err := backoff.Retry(func() error {
		bits, err := r.inner.ReadCoils(ctx, addr, quantity)
		if err != nil {
			r.reopen(ctx)
			return err
		}
		out = bits
		return nil
	}, r.policy(ctx))
	return out, err
}

func (r *retryTransport) ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	return r.readRegisters(ctx, addr, quantity, r.inner.ReadHoldingRegisters)
}

func (r *retryTransport) ReadInputRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	return r.readRegisters(ctx, addr, quantity, r.inner.ReadInputRegisters)
}

func (r *retryTransport) readRegisters(ctx context.Context, addr, quantity uint16, read func(context.Context, uint16, uint16) ([]uint16, error)) ([]uint16, error) {
	var out []uint16
	err := backoff.Retry(func() error {
		regs, err := read(ctx, addr, quantity)
		if err != nil {
			r.reopen(ctx)
			return err
		}
		out = regs
		return nil
	}, r.policy(ctx))
	return out, err
}

func (r *retryTransport) WriteCoil(ctx context.Context, addr uint16, value bool) error {
	return backoff.Retry(func() error {
		if err := r.inner.WriteCoil(ctx, addr, value); err != nil {
			r.reopen(ctx)
			return err
		}
		return nil
	}, r.policy(ctx))
}

func (r *retryTransport) WriteRegister(ctx context.Context, addr, value uint16) error {
	return backoff.Retry(func() error {
		if err := r.inner.WriteRegister(ctx, addr, value); err != nil {
			r.reopen(ctx)
			return err
		}
		return nil
	}, r.policy(ctx))
}
