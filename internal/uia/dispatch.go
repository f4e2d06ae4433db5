// internal/uia/dispatch.go
package uia

import (
	"context"
	"log/slog"
	"time"
)

// Action is one candidate way of reaching an outcome: a side effect
// (synthetic input against the external application) plus the time the
// poller is allowed to wait for the resulting state.
type Action struct {
	Name    string
	Timeout time.Duration
	// Interval overrides the poller's default poll interval for this
	// action's wait; zero keeps the default.
	Interval time.Duration
	Do       func(ctx context.Context) error
}

// Outcome names a target state transition the dispatcher tries to achieve.
type Outcome struct {
	Name   string
	Target State
}

// Dispatcher tries an ordered chain of actions until one of them lands the
// application in the outcome's target state. Chains are ordered fastest /
// most specific first and most robust last; that ordering is part of the
// contract, since swapping it changes the latency/success tradeoff.
type Dispatcher struct {
	poller *Poller
	logger *slog.Logger
}

func NewDispatcher(poller *Poller, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{poller: poller, logger: logger}
}

// Achieve runs each action in order and waits for the outcome's target
// state with that action's timeout. The first action whose wait succeeds
// wins: remaining actions are never invoked. When the chain is exhausted
// it returns ok=false; the caller decides what failing the outcome means
// (for the batch loop, skipping the current work unit).
func (d *Dispatcher) Achieve(ctx context.Context, outcome Outcome, chain []Action) (Surface, bool) {
	for i, action := range chain {
		if ctx.Err() != nil {
			return nil, false
		}
		log := d.logger.With("outcome", outcome.Name, "action", action.Name, "attempt", i+1)

		if err := action.Do(ctx); err != nil {
			log.Warn("action side effect failed, trying next", "err", err)
			continue
		}

		surface, err := d.poller.AwaitStateEvery(ctx, outcome.Target, action.Timeout, action.Interval)
		if err == nil {
			if i > 0 {
				log.Info("outcome reached via fallback")
			}
			return surface, true
		}
		log.Warn("target state not reached", "state", outcome.Target, "err", err)
	}
	d.logger.Error("outcome failed, fallback chain exhausted", "outcome", outcome.Name, "actions", len(chain))
	return nil, false
}
