// Package dispatch sends a formatted receipt through an ordered chain
// of transport senders, stopping at the first success and keeping
// every failure reason when none succeeds.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-fulfillment/internal/common/logger"
)

// ErrUnavailable marks a transport that cannot run in the current
// environment. It excludes the sender from the chain; it is not a
// print failure and never reaches the operator.
var ErrUnavailable = errors.New("transport unavailable")

// ConfigError is a permanent configuration problem (no printer set up,
// malformed address). Surfaced immediately, never retried.
type ConfigError struct{ Reason string }

func (e *ConfigError) Error() string { return e.Reason }

// Sender is one transport in the fallback chain.
type Sender interface {
	Name() string
	Send(ctx context.Context, payload []byte) error
}

// Result reports the outcome of one logical dispatch. Provider is the
// sender that succeeded; Err aggregates one reason per attempted
// sender when everything failed.
type Result struct {
	OK       bool
	Provider string
	Err      error
}

type Engine struct {
	senders []Sender
	lg      *logger.Logger

	maxRetries int
	backoff    time.Duration
}

// New builds an engine over the given chain, skipping senders whose
// probe already reported ErrUnavailable (passed as nil entries).
func New(lg *logger.Logger, senders ...Sender) *Engine {
	if lg == nil {
		lg = logger.Nop()
	}
	kept := make([]Sender, 0, len(senders))
	for _, s := range senders {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Engine{senders: kept, lg: lg, maxRetries: 2, backoff: time.Second}
}

// Dispatch runs the chain once. The first success short-circuits;
// otherwise the error lists every attempted sender's reason so the
// operator can see which transports were tried.
func (e *Engine) Dispatch(ctx context.Context, payload []byte) Result {
	if len(e.senders) == 0 {
		return Result{OK: false, Err: &ConfigError{Reason: "no print transport available"}}
	}
	var reasons []string
	var permanent bool
	for _, s := range e.senders {
		err := s.Send(ctx, payload)
		if err == nil {
			e.lg.Info("print_dispatched", map[string]any{"provider": s.Name()})
			return Result{OK: true, Provider: s.Name()}
		}
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		var ce *ConfigError
		if errors.As(err, &ce) {
			permanent = true
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", s.Name(), err.Error()))
		e.lg.Warn("print_transport_failed", map[string]any{"provider": s.Name(), "reason": err.Error()})
	}
	if len(reasons) == 0 {
		return Result{OK: false, Err: &ConfigError{Reason: "no print transport available"}}
	}
	err := errors.New(strings.Join(reasons, "; "))
	if permanent && len(reasons) == 1 {
		err = &ConfigError{Reason: reasons[0]}
	}
	return Result{OK: false, Err: err}
}

// DispatchWithRetry re-runs the whole chain from the top on failure,
// up to 2 extra attempts with 1s then 2s backoff. Configuration
// errors are not retried. A success at any attempt is terminal.
func (e *Engine) DispatchWithRetry(ctx context.Context, payload []byte) Result {
	var res Result
	delay := e.backoff
	for attempt := 0; ; attempt++ {
		res = e.Dispatch(ctx, payload)
		if res.OK {
			return res
		}
		var ce *ConfigError
		if errors.As(res.Err, &ce) {
			return res
		}
		if attempt >= e.maxRetries {
			return res
		}
		e.lg.Warn("print_retry_scheduled", map[string]any{"attempt": attempt + 1, "delay": delay.String()})
		select {
		case <-ctx.Done():
			return res
		case <-time.After(delay):
		}
		delay *= 2
	}
}
