package uia

import (
	"context"
	"errors"
	"time"
)

// Test doubles for the desktop capability surface plus a fake clock, so
// poller tests run on simulated time only.

type fakeElement struct {
	role     string
	autoID   string
	text     string
	enabled  bool
	clicks   int
	setTexts []string
}

func (e *fakeElement) Role() string         { return e.role }
func (e *fakeElement) AutomationID() string { return e.autoID }
func (e *fakeElement) Text() string         { return e.text }
func (e *fakeElement) Enabled() bool        { return e.enabled }

func (e *fakeElement) Click(ctx context.Context) error {
	e.clicks++
	return nil
}

func (e *fakeElement) SetText(ctx context.Context, text string) error {
	e.setTexts = append(e.setTexts, text)
	return nil
}

type fakeSurface struct {
	title       string
	class       string
	visible     bool
	children    []*fakeSurface
	elements    []*fakeElement
	childrenErr error
}

func (s *fakeSurface) Title() string     { return s.title }
func (s *fakeSurface) ClassName() string { return s.class }
func (s *fakeSurface) Visible() bool     { return s.visible }

func (s *fakeSurface) Children() ([]Surface, error) {
	if s.childrenErr != nil {
		return nil, s.childrenErr
	}
	out := make([]Surface, 0, len(s.children))
	for _, c := range s.children {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeSurface) Descendants(role string) ([]Element, error) {
	var out []Element
	var walk func(n *fakeSurface)
	walk = func(n *fakeSurface) {
		for _, e := range n.elements {
			if role == "" || e.role == role {
				out = append(out, e)
			}
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(s)
	return out, nil
}

// fakeDesktop serves a scripted sequence of snapshots: snapshot i is
// served on poll i, and the last entry repeats forever. A nil entry
// simulates an introspection failure.
type fakeDesktop struct {
	snapshots [][]*fakeSurface
	errAt     map[int]bool
	polls     int
	sent      []string
}

var errTreeUnreadable = errors.New("surface tree unreadable")

func (d *fakeDesktop) Surfaces() ([]Surface, error) {
	call := d.polls
	d.polls++
	if d.errAt[call] {
		return nil, &IntrospectionError{Op: "snapshot", Err: errTreeUnreadable}
	}
	if len(d.snapshots) == 0 {
		return nil, nil
	}
	idx := call
	if idx >= len(d.snapshots) {
		idx = len(d.snapshots) - 1
	}
	snap := d.snapshots[idx]
	out := make([]Surface, 0, len(snap))
	for _, s := range snap {
		out = append(out, s)
	}
	return out, nil
}

func (d *fakeDesktop) SendInput(ctx context.Context, sequence string) error {
	d.sent = append(d.sent, sequence)
	return nil
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) install(p *Poller) {
	p.now = c.Now
	p.sleep = c.Sleep
}

// testPredicates matches on simple title/class signatures, the same shape
// the real application glue uses.
func testPredicates() map[State]Predicate {
	return map[State]Predicate{
		StateMain: func(s Surface) (bool, error) {
			return s.Title() == "main-window", nil
		},
		StateAwaitingOpen: func(s Surface) (bool, error) {
			return s.ClassName() == "dialog" && s.Title() == "Open", nil
		},
		StateAwaitingSave: func(s Surface) (bool, error) {
			return s.ClassName() == "dialog" && s.Title() == "Save", nil
		},
		StateRecognitionDone: func(s Surface) (bool, error) {
			elems, err := s.Descendants(RoleText)
			if err != nil {
				return false, err
			}
			for _, e := range elems {
				if e.Text() == "recognition finished" {
					return true, nil
				}
			}
			return false, nil
		},
	}
}
