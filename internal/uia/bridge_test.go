package uia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func scriptedBridge(t *testing.T, responses ...string) (*Bridge, *bytes.Buffer) {
	t.Helper()
	var requests bytes.Buffer
	return newBridgeIO(&requests, strings.NewReader(strings.Join(responses, "\n")+"\n")), &requests
}

func decodeRequests(t *testing.T, raw *bytes.Buffer) []bridgeRequest {
	t.Helper()
	var out []bridgeRequest
	dec := json.NewDecoder(raw)
	for dec.More() {
		var req bridgeRequest
		if err := dec.Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		out = append(out, req)
	}
	return out
}

const snapshotResponse = `{"ok":true,"surfaces":[{"title":"capella-scan 9","class":"Qt5QWindowIcon","visible":true,` +
	`"children":[{"title":"Open","class":"#32770","visible":true,` +
	`"elements":[{"id":7,"role":"Edit","automation_id":"1148","enabled":true}]}],` +
	`"elements":[{"id":3,"role":"Button","automation_id":"actionStartRecognition","enabled":false}]}]}`

func TestBridgeSnapshotRoundTrip(t *testing.T) {
	b, requests := scriptedBridge(t, snapshotResponse)

	surfaces, err := b.Surfaces()
	if err != nil {
		t.Fatalf("Surfaces returned error: %v", err)
	}
	if len(surfaces) != 1 {
		t.Fatalf("expected 1 surface, got %d", len(surfaces))
	}

	top := surfaces[0]
	if top.Title() != "capella-scan 9" || !top.Visible() {
		t.Fatalf("unexpected top surface: %q", top.Title())
	}

	children, err := top.Children()
	if err != nil || len(children) != 1 {
		t.Fatalf("children: %v (%d)", err, len(children))
	}
	if children[0].ClassName() != "#32770" {
		t.Fatalf("unexpected child class: %q", children[0].ClassName())
	}

	reqs := decodeRequests(t, requests)
	if len(reqs) != 1 || reqs[0].Op != "snapshot" {
		t.Fatalf("unexpected requests: %+v", reqs)
	}
}

func TestBridgeDescendantsFiltersByRole(t *testing.T) {
	b, _ := scriptedBridge(t, snapshotResponse)

	surfaces, err := b.Surfaces()
	if err != nil {
		t.Fatalf("Surfaces: %v", err)
	}

	edits, err := surfaces[0].Descendants(RoleEdit)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	if len(edits) != 1 || edits[0].AutomationID() != "1148" {
		t.Fatalf("expected the nested path edit, got %+v", edits)
	}

	all, err := surfaces[0].Descendants("")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 elements across the subtree, got %d (%v)", len(all), err)
	}
}

func TestBridgeClickAddressesElementByID(t *testing.T) {
	b, requests := scriptedBridge(t, snapshotResponse, `{"ok":true}`)

	surfaces, err := b.Surfaces()
	if err != nil {
		t.Fatalf("Surfaces: %v", err)
	}
	buttons, err := surfaces[0].Descendants(RoleButton)
	if err != nil || len(buttons) != 1 {
		t.Fatalf("buttons: %v (%d)", err, len(buttons))
	}

	if err := buttons[0].Click(context.Background()); err != nil {
		t.Fatalf("Click: %v", err)
	}

	reqs := decodeRequests(t, requests)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[1].Op != "click" || reqs[1].Element != 3 {
		t.Fatalf("unexpected click request: %+v", reqs[1])
	}
}

func TestBridgeSendInputPassesSequence(t *testing.T) {
	b, requests := scriptedBridge(t, `{"ok":true}`)

	if err := b.SendInput(context.Background(), "^o"); err != nil {
		t.Fatalf("SendInput: %v", err)
	}
	reqs := decodeRequests(t, requests)
	if len(reqs) != 1 || reqs[0].Op != "send_input" || reqs[0].Keys != "^o" {
		t.Fatalf("unexpected request: %+v", reqs)
	}
}

func TestBridgeSnapshotFailureIsIntrospectionError(t *testing.T) {
	b, _ := scriptedBridge(t, `{"ok":false,"error":"COM call rejected"}`)

	_, err := b.Surfaces()
	var ie *IntrospectionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *IntrospectionError, got %v", err)
	}
	if !strings.Contains(ie.Error(), "COM call rejected") {
		t.Fatalf("cause lost: %v", ie)
	}
}

func TestBridgeClosedPipeIsIntrospectionError(t *testing.T) {
	b, _ := scriptedBridge(t) // no responses scripted

	_, err := b.Surfaces()
	var ie *IntrospectionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *IntrospectionError on closed pipe, got %v", err)
	}
}

func TestStartBridgeMissingHelperIsStartupError(t *testing.T) {
	_, err := StartBridge("capscan-uia-bridge-that-does-not-exist")
	var se *StartupError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StartupError, got %v", err)
	}
}
