// Package uia models the capability surface of an external application's
// UI tree: visible surfaces (windows, dialogs), their descendant elements,
// and a synthetic input channel. Implementations observe a live desktop;
// tests supply scripted fakes.
package uia

import "context"

// State is the coarse UI state inferred from the observable surface tree.
// It is re-detected fresh on every poll and never persisted.
type State string

const (
	StateUnknown               State = "unknown"
	StateMain                  State = "main"
	StateAwaitingOpen          State = "awaiting_open"
	StateAwaitingSave          State = "awaiting_save"
	StateRecognitionInProgress State = "recognition_in_progress"
	StateRecognitionDone       State = "recognition_done"
)

// Element roles, following the UIA control-type names the bridge reports.
const (
	RoleButton   = "Button"
	RoleEdit     = "Edit"
	RoleText     = "Text"
	RoleMenuItem = "MenuItem"
)

// Desktop enumerates the external application's top-level surfaces and
// carries the global synthetic-input channel.
type Desktop interface {
	// Surfaces returns the currently visible top-level surfaces. Handles
	// reflect the tree at call time; they stay addressable while the
	// underlying window exists but their attributes are not refreshed.
	Surfaces() ([]Surface, error)

	// SendInput injects a keystroke sequence into the focused surface.
	SendInput(ctx context.Context, sequence string) error
}

// Surface is one visible window or dialog.
type Surface interface {
	Title() string
	ClassName() string
	Visible() bool

	// Children returns directly nested surfaces. Dialog surfaces may be
	// nested one level inside an owner window, so state predicates check
	// both a surface and its children.
	Children() ([]Surface, error)

	// Descendants returns descendant elements matching the given role,
	// or all elements when role is empty.
	Descendants(role string) ([]Element, error)
}

// Element is a control inside a Surface, addressed by role.
type Element interface {
	Role() string
	// AutomationID is the stable per-control identifier, when the
	// application exposes one.
	AutomationID() string
	Text() string
	Enabled() bool

	Click(ctx context.Context) error
	SetText(ctx context.Context, text string) error
}

// Predicate reports whether a surface represents a given state. An error
// means the tree could not be read, not that the predicate failed.
type Predicate func(Surface) (bool, error)
