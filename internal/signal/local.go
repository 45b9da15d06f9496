package signal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("signal bus closed")

// Local is an in-process bus backed by a buffered channel. Commands are
// delivered in publish order to a single consumer.
type Local struct {
	ch     chan Command
	done   chan struct{}
	closer sync.Once
}

func NewLocal(buffer int) *Local {
	return &Local{
		ch:   make(chan Command, buffer),
		done: make(chan struct{}),
	}
}

func (l *Local) Publish(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.ch <- cmd:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until ctx is done or the bus is closed. Handler errors are
// logged and do not stop consumption.
func (l *Local) Consume(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case cmd := <-l.ch:
			if err := handle(ctx, cmd); err != nil {
				slog.Error("Command failed", "id", cmd.ID, "kind", cmd.Kind, "err", err)
			}
		}
	}
}

func (l *Local) Close() error {
	l.closer.Do(func() { close(l.done) })
	return nil
}
