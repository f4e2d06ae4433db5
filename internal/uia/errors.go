package uia

import (
	"fmt"
	"time"
)

// TimeoutError reports that a target state was not observed within the
// configured deadline.
type TimeoutError struct {
	State   State
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for state %q", e.Timeout, e.State)
}

// IntrospectionError wraps a transient failure reading the external
// application's surface tree. The poller treats it as "not yet matched";
// it never aborts a wait on its own.
type IntrospectionError struct {
	Op  string
	Err error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspection %s: %v", e.Op, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

// StartupError reports that the external application (or the bridge used
// to reach it) could not be started at all. It aborts the whole run;
// per-unit recovery is impossible without a live target.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("external application unavailable: %v", e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
