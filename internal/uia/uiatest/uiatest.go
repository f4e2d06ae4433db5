// Package uiatest provides scripted in-memory implementations of the uia
// capability surface. Tests mutate the tree from element and input hooks
// to mimic how the real application reacts to synthetic input.
package uiatest

import (
	"context"
	"sync"

	"github.com/capella-tools/capscan-batch/internal/uia"
)

// Element is a scriptable control.
type Element struct {
	RoleName  string
	AutoID    string
	Txt       string
	IsEnabled bool

	// OnClick and OnSetText run instead of the default no-op when set.
	OnClick   func(ctx context.Context) error
	OnSetText func(ctx context.Context, text string) error

	Clicks   int
	SetTexts []string
}

func (e *Element) Role() string         { return e.RoleName }
func (e *Element) AutomationID() string { return e.AutoID }
func (e *Element) Text() string         { return e.Txt }
func (e *Element) Enabled() bool        { return e.IsEnabled }

func (e *Element) Click(ctx context.Context) error {
	e.Clicks++
	if e.OnClick != nil {
		return e.OnClick(ctx)
	}
	return nil
}

func (e *Element) SetText(ctx context.Context, text string) error {
	e.SetTexts = append(e.SetTexts, text)
	if e.OnSetText != nil {
		return e.OnSetText(ctx, text)
	}
	return nil
}

// Surface is a scriptable window or dialog.
type Surface struct {
	WindowTitle string
	Class       string
	IsVisible   bool
	Kids        []*Surface
	Elems       []*Element
}

func (s *Surface) Title() string     { return s.WindowTitle }
func (s *Surface) ClassName() string { return s.Class }
func (s *Surface) Visible() bool     { return s.IsVisible }

func (s *Surface) Children() ([]uia.Surface, error) {
	out := make([]uia.Surface, 0, len(s.Kids))
	for _, k := range s.Kids {
		out = append(out, k)
	}
	return out, nil
}

func (s *Surface) Descendants(role string) ([]uia.Element, error) {
	var out []uia.Element
	var walk func(n *Surface)
	walk = func(n *Surface) {
		for _, e := range n.Elems {
			if role == "" || e.RoleName == role {
				out = append(out, e)
			}
		}
		for _, k := range n.Kids {
			walk(k)
		}
	}
	walk(s)
	return out, nil
}

// Desktop serves a mutable surface tree. Hooks installed on elements and
// on OnInput mutate the tree, simulating the application's reactions.
type Desktop struct {
	mu sync.Mutex

	Tree []*Surface

	// OnInput handles a synthetic keystroke sequence; the default
	// records it and does nothing.
	OnInput func(ctx context.Context, sequence string) error

	// AfterPoll runs after every Surfaces call with the poll count so
	// far. It lets tests flip state after "some time has passed" without
	// depending on wall time.
	AfterPoll func(n int)

	Inputs []string
	Polls  int
}

func (d *Desktop) Surfaces() ([]uia.Surface, error) {
	d.mu.Lock()
	d.Polls++
	n := d.Polls
	out := make([]uia.Surface, 0, len(d.Tree))
	for _, s := range d.Tree {
		out = append(out, s)
	}
	after := d.AfterPoll
	d.mu.Unlock()
	if after != nil {
		after(n)
	}
	return out, nil
}

func (d *Desktop) SendInput(ctx context.Context, sequence string) error {
	d.mu.Lock()
	d.Inputs = append(d.Inputs, sequence)
	handler := d.OnInput
	d.mu.Unlock()
	if handler != nil {
		return handler(ctx, sequence)
	}
	return nil
}

// AddSurface and RemoveSurface mutate the tree under the desktop lock, so
// input hooks can safely reshape it while the poller reads.
func (d *Desktop) AddSurface(s *Surface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Tree = append(d.Tree, s)
}

func (d *Desktop) RemoveSurface(s *Surface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.Tree {
		if cur == s {
			d.Tree = append(d.Tree[:i], d.Tree[i+1:]...)
			return
		}
	}
}
