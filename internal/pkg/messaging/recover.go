package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
)

func callHandlerWithRecover(ctx context.Context, driver string, fn func() error) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
		}
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return fn()
}

// responder makes Ack/Nack idempotent so auto-ack never answers twice.
type responder struct {
	responded atomic.Bool
}

func (r *responder) claim() bool { return !r.responded.Swap(true) }

func (r *responder) answered() bool { return r.responded.Load() }

func dispatch(ctx context.Context, driver string, msg interface {
	Message
	answered() bool
}, handler Handler, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, driver, func() error { return handler(ctx, msg) })
	if !autoAck || msg.answered() {
		return nil
	}
	if herr != nil {
		slog.WarnContext(ctx, "messaging handler failed", "driver", driver, "topic", msg.Topic(), "error", herr)
		return msg.Nack(ctx)
	}
	return msg.Ack(ctx)
}
