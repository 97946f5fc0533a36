package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// PooledProcessor applies events on a bounded ants pool. Every consumer of
// the process shares one pool, so Size caps concurrent ledger writes.
type PooledProcessor struct {
	next   EventProcessor
	pool   *ants.Pool
	logger *slog.Logger
}

type PoolConfig struct {
	Size       int
	IdleExpiry time.Duration
}

func NewPooledProcessor(next EventProcessor, cfg PoolConfig, logger *slog.Logger) (*PooledProcessor, error) {
	opts := []ants.Option{ants.WithLogger(antsLogger{logger})}
	if cfg.IdleExpiry > 0 {
		opts = append(opts, ants.WithExpiryDuration(cfg.IdleExpiry))
	}

	pool, err := ants.NewPool(cfg.Size, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool of size %d: %w", cfg.Size, err)
	}

	return &PooledProcessor{next: next, pool: pool, logger: logger}, nil
}

// ProcessEvent hands the event to a worker and blocks until it is applied or
// ctx ends. The envelope is copied so the consumer may reuse its buffer.
func (p *PooledProcessor) ProcessEvent(ctx context.Context, envelope *shared.Envelope) error {
	event := *envelope
	done := make(chan error, 1)

	if err := p.pool.Submit(func() { done <- p.apply(ctx, &event) }); err != nil {
		return fmt.Errorf("worker pool rejected %s event: %w", event.Type, err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PooledProcessor) apply(ctx context.Context, event *shared.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Event handler panicked",
				"type", string(event.Type),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic while applying %s event: %v", event.Type, r)
		}
	}()
	return p.next.ProcessEvent(ctx, event)
}

// Release waits up to timeout for running events, then frees the workers
func (p *PooledProcessor) Release(timeout time.Duration) {
	running := p.pool.Running()
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("Worker pool did not drain in time", "running", running, "timeout", timeout, "error", err)
		return
	}
	p.logger.Info("Worker pool released", "drained", running)
}

func (p *PooledProcessor) Capacity() int {
	return p.pool.Cap()
}

type antsLogger struct {
	logger *slog.Logger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "source", "ants")
}
