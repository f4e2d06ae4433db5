// internal/uia/bridge.go
package uia

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Bridge implements Desktop on top of an external UIA helper process.
// Go has no binding for the desktop accessibility tree, so the helper is
// wrapped the same way other external tools are: looked up on PATH,
// spawned once, and spoken to over a line-oriented JSON protocol on
// stdin/stdout. One request line in, one response line out.
type Bridge struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	enc    *json.Encoder
	out    *bufio.Scanner
	closer io.Closer
}

type bridgeRequest struct {
	Op      string `json:"op"`
	Keys    string `json:"keys,omitempty"`
	Element int    `json:"element,omitempty"`
	Text    string `json:"text,omitempty"`
	Path    string `json:"path,omitempty"`
}

type bridgeResponse struct {
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Surfaces []surfaceNode `json:"surfaces,omitempty"`
}

// surfaceNode is a point-in-time snapshot of one surface. Element ids are
// assigned by the helper and stay addressable for as long as the
// underlying control exists; a later snapshot reuses the id for the same
// control.
type surfaceNode struct {
	Title    string        `json:"title"`
	Class    string        `json:"class"`
	Visible  bool          `json:"visible"`
	Children []surfaceNode `json:"children,omitempty"`
	Elements []elementNode `json:"elements,omitempty"`
}

type elementNode struct {
	ID           int    `json:"id"`
	Role         string `json:"role"`
	AutomationID string `json:"automation_id,omitempty"`
	Text         string `json:"text,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// StartBridge launches the helper process. A missing helper binary is a
// startup failure for the whole run: nothing can be automated without it.
func StartBridge(command string, args ...string) (*Bridge, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, &StartupError{Err: fmt.Errorf("%s not found in PATH: %w", command, err)}
	}

	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &StartupError{Err: fmt.Errorf("bridge stdin: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StartupError{Err: fmt.Errorf("bridge stdout: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return nil, &StartupError{Err: fmt.Errorf("start %s: %w", command, err)}
	}

	b := newBridgeIO(stdin, stdout)
	b.cmd = cmd
	b.closer = stdin
	return b, nil
}

// newBridgeIO wires a bridge over arbitrary pipes. Tests use it with an
// in-memory scripted peer.
func newBridgeIO(w io.Writer, r io.Reader) *Bridge {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Bridge{enc: json.NewEncoder(w), out: sc}
}

// EnsureApp asks the helper to connect to the target application, starting
// it first if it is not already running. The helper owns the process
// lifecycle; the driver only needs a live surface tree afterwards.
func (b *Bridge) EnsureApp(ctx context.Context, exePath string) error {
	resp, err := b.roundTrip(bridgeRequest{Op: "ensure_app", Path: exePath})
	if err != nil {
		return &StartupError{Err: err}
	}
	if !resp.OK {
		return &StartupError{Err: fmt.Errorf("ensure_app: %s", resp.Error)}
	}
	return nil
}

// Surfaces implements Desktop by taking a fresh snapshot of the tree.
func (b *Bridge) Surfaces() ([]Surface, error) {
	resp, err := b.roundTrip(bridgeRequest{Op: "snapshot"})
	if err != nil {
		return nil, &IntrospectionError{Op: "snapshot", Err: err}
	}
	if !resp.OK {
		return nil, &IntrospectionError{Op: "snapshot", Err: fmt.Errorf("%s", resp.Error)}
	}
	surfaces := make([]Surface, 0, len(resp.Surfaces))
	for i := range resp.Surfaces {
		surfaces = append(surfaces, &bridgeSurface{node: resp.Surfaces[i], bridge: b})
	}
	return surfaces, nil
}

// SendInput implements Desktop. Sequences use Windows SendKeys notation
// ("^o" for Ctrl+O), which the helper passes through unchanged.
func (b *Bridge) SendInput(ctx context.Context, sequence string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := b.roundTrip(bridgeRequest{Op: "send_input", Keys: sequence})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("send_input %q: %s", sequence, resp.Error)
	}
	return nil
}

// Close shuts the helper down by closing its stdin and reaping it.
func (b *Bridge) Close() error {
	if b.closer != nil {
		_ = b.closer.Close()
	}
	if b.cmd != nil {
		return b.cmd.Wait()
	}
	return nil
}

func (b *Bridge) roundTrip(req bridgeRequest) (*bridgeResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("write %s request: %w", req.Op, err)
	}
	if !b.out.Scan() {
		if err := b.out.Err(); err != nil {
			return nil, fmt.Errorf("read %s response: %w", req.Op, err)
		}
		return nil, fmt.Errorf("bridge closed during %s", req.Op)
	}
	var resp bridgeResponse
	if err := json.Unmarshal(b.out.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.Op, err)
	}
	return &resp, nil
}

type bridgeSurface struct {
	node   surfaceNode
	bridge *Bridge
}

func (s *bridgeSurface) Title() string     { return s.node.Title }
func (s *bridgeSurface) ClassName() string { return s.node.Class }
func (s *bridgeSurface) Visible() bool     { return s.node.Visible }

func (s *bridgeSurface) Children() ([]Surface, error) {
	children := make([]Surface, 0, len(s.node.Children))
	for i := range s.node.Children {
		children = append(children, &bridgeSurface{node: s.node.Children[i], bridge: s.bridge})
	}
	return children, nil
}

func (s *bridgeSurface) Descendants(role string) ([]Element, error) {
	var elements []Element
	var walk func(n surfaceNode)
	walk = func(n surfaceNode) {
		for i := range n.Elements {
			if role == "" || n.Elements[i].Role == role {
				elements = append(elements, &bridgeElement{node: n.Elements[i], bridge: s.bridge})
			}
		}
		for i := range n.Children {
			walk(n.Children[i])
		}
	}
	walk(s.node)
	return elements, nil
}

type bridgeElement struct {
	node   elementNode
	bridge *Bridge
}

func (e *bridgeElement) Role() string         { return e.node.Role }
func (e *bridgeElement) AutomationID() string { return e.node.AutomationID }
func (e *bridgeElement) Text() string         { return e.node.Text }
func (e *bridgeElement) Enabled() bool        { return e.node.Enabled }

func (e *bridgeElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := e.bridge.roundTrip(bridgeRequest{Op: "click", Element: e.node.ID})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("click element %d: %s", e.node.ID, resp.Error)
	}
	return nil
}

func (e *bridgeElement) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := e.bridge.roundTrip(bridgeRequest{Op: "set_text", Element: e.node.ID, Text: text})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("set text on element %d: %s", e.node.ID, resp.Error)
	}
	return nil
}
