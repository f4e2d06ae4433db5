// internal/uia/poller.go
package uia

import (
	"context"
	"log/slog"
	"time"
)

// detectOrder is the precedence used when classifying the current tree.
// Dialog and recognition states are more specific than Main, so they are
// checked first, and completion outranks in-progress (a completion marker
// can appear while the start control is still disabled). At most one
// state is ever claimed for a given tree.
var detectOrder = []State{
	StateAwaitingOpen,
	StateAwaitingSave,
	StateRecognitionDone,
	StateRecognitionInProgress,
	StateMain,
}

// Poller repeatedly reads the desktop's surface tree until a target state
// is observed or a deadline passes. The external application exposes no
// change-notification channel, so polling is the only option.
type Poller struct {
	desktop    Desktop
	predicates map[State]Predicate
	interval   time.Duration
	logger     *slog.Logger

	// Clock indirection so tests never depend on wall time.
	now   func() time.Time
	sleep func(time.Duration)
}

func NewPoller(desktop Desktop, predicates map[State]Predicate, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Poller{
		desktop:    desktop,
		predicates: predicates,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Interval returns the poll interval the poller was built with.
func (p *Poller) Interval() time.Duration { return p.interval }

// AwaitState polls every interval until a surface satisfying the target
// state's predicate appears, returning that surface. If the state already
// holds, it returns immediately without sleeping. Introspection failures
// mid-poll count as "not yet matched". The returned error is a
// *TimeoutError once the deadline passes, or the context error if the
// caller is cancelled between polls.
func (p *Poller) AwaitState(ctx context.Context, target State, timeout time.Duration) (Surface, error) {
	return p.AwaitStateEvery(ctx, target, timeout, p.interval)
}

// AwaitStateEvery is AwaitState with an explicit poll interval. Long
// waits (recognition runs for minutes) poll less often than dialog
// transitions.
func (p *Poller) AwaitStateEvery(ctx context.Context, target State, timeout, interval time.Duration) (Surface, error) {
	if interval <= 0 {
		interval = p.interval
	}
	deadline := p.now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s, ok := p.matchState(target); ok {
			return s, nil
		}
		if !p.now().Before(deadline) {
			p.logger.Debug("state wait timed out", "state", target, "timeout", timeout)
			return nil, &TimeoutError{State: target, Timeout: timeout}
		}
		p.sleep(interval)
	}
}

// Detect classifies the current surface tree into a single state, or
// Unknown when nothing matches.
func (p *Poller) Detect() State {
	for _, state := range detectOrder {
		if _, ok := p.matchState(state); ok {
			return state
		}
	}
	return StateUnknown
}

// modalStates preempt every other state: while a file dialog is on
// screen the application is in that dialog state, even though the main
// window stays visible behind it. A wait for a non-modal state must not
// claim it while a dialog holds the tree.
var modalStates = []State{StateAwaitingOpen, StateAwaitingSave}

func isModal(s State) bool {
	for _, m := range modalStates {
		if s == m {
			return true
		}
	}
	return false
}

// matchState takes one snapshot of the tree and reports whether the
// target state holds on it. Non-modal targets are rejected while any
// modal state matches the same snapshot, so the main window behind a
// stuck dialog never passes for Main.
func (p *Poller) matchState(target State) (Surface, bool) {
	if _, ok := p.predicates[target]; !ok {
		return nil, false
	}

	surfaces, err := p.desktop.Surfaces()
	if err != nil {
		p.logger.Debug("surface enumeration failed, retrying", "err", err)
		return nil, false
	}

	if !isModal(target) {
		for _, m := range modalStates {
			if _, ok := p.matchIn(surfaces, m); ok {
				return nil, false
			}
		}
	}
	return p.matchIn(surfaces, target)
}

// matchIn evaluates the target's predicate against every visible surface
// and each surface's direct children (dialogs may be nested one level
// inside an owner window). Any error reading the tree is swallowed: the
// introspection interface is flaky under load and a failed read just
// means the state has not been confirmed yet.
func (p *Poller) matchIn(surfaces []Surface, target State) (Surface, bool) {
	pred, ok := p.predicates[target]
	if !ok {
		return nil, false
	}

	for _, s := range surfaces {
		if !s.Visible() {
			continue
		}
		if matched, err := pred(s); err == nil && matched {
			return s, true
		}
		children, err := s.Children()
		if err != nil {
			continue
		}
		for _, c := range children {
			if !c.Visible() {
				continue
			}
			if matched, err := pred(c); err == nil && matched {
				return c, true
			}
		}
	}
	return nil, false
}
