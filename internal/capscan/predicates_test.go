package capscan

import (
	"testing"
	"time"

	"github.com/capella-tools/capscan-batch/internal/uia"
	"github.com/capella-tools/capscan-batch/internal/uia/uiatest"
)

func detect(t *testing.T, tree ...*uiatest.Surface) uia.State {
	t.Helper()
	desktop := &uiatest.Desktop{Tree: tree}
	p := uia.NewPoller(desktop, Predicates(), time.Millisecond, nil)
	return p.Detect()
}

func mainSurface(elems ...*uiatest.Element) *uiatest.Surface {
	return &uiatest.Surface{
		WindowTitle: "untitled - capella-scan 9",
		Class:       "Qt5QWindowIcon",
		IsVisible:   true,
		Elems:       elems,
	}
}

func TestDetectMainWindowBySignature(t *testing.T) {
	if got := detect(t, mainSurface()); got != uia.StateMain {
		t.Fatalf("Detect = %q, want %q", got, uia.StateMain)
	}
}

func TestDetectOpenAndSaveDialogsByEditID(t *testing.T) {
	openDlg := &uiatest.Surface{
		WindowTitle: "Open",
		Class:       dialogClass,
		IsVisible:   true,
		Elems:       []*uiatest.Element{{RoleName: uia.RoleEdit, AutoID: openPathEditID}},
	}
	saveDlg := &uiatest.Surface{
		WindowTitle: "Save As",
		Class:       dialogClass,
		IsVisible:   true,
		Elems:       []*uiatest.Element{{RoleName: uia.RoleEdit, AutoID: savePathEditID}},
	}

	if got := detect(t, mainSurface(), openDlg); got != uia.StateAwaitingOpen {
		t.Fatalf("open dialog detected as %q", got)
	}
	if got := detect(t, mainSurface(), saveDlg); got != uia.StateAwaitingSave {
		t.Fatalf("save dialog detected as %q", got)
	}
}

func TestDetectDialogNestedInsideMainWindow(t *testing.T) {
	dlg := &uiatest.Surface{
		WindowTitle: "Open",
		Class:       dialogClass,
		IsVisible:   true,
		Elems:       []*uiatest.Element{{RoleName: uia.RoleEdit, AutoID: openPathEditID}},
	}
	owner := mainSurface()
	owner.Kids = []*uiatest.Surface{dlg}

	if got := detect(t, owner); got != uia.StateAwaitingOpen {
		t.Fatalf("nested dialog detected as %q", got)
	}
}

func TestDetectRecognitionProgressAndCompletion(t *testing.T) {
	running := mainSurface(&uiatest.Element{RoleName: uia.RoleButton, AutoID: startRecognitionID, IsEnabled: false})
	if got := detect(t, running); got != uia.StateRecognitionInProgress {
		t.Fatalf("disabled start control detected as %q", got)
	}

	done := mainSurface(&uiatest.Element{RoleName: uia.RoleButton, AutoID: startRecognitionID, IsEnabled: true})
	if got := detect(t, done); got != uia.StateRecognitionDone {
		t.Fatalf("re-enabled start control detected as %q", got)
	}
}

func TestDetectRecognitionDoneByMarkerText(t *testing.T) {
	s := mainSurface(
		&uiatest.Element{RoleName: uia.RoleButton, AutoID: startRecognitionID, IsEnabled: false},
		&uiatest.Element{RoleName: uia.RoleText, Txt: "Recognition finished (12 staves)"},
	)
	if got := detect(t, s); got != uia.StateRecognitionDone {
		t.Fatalf("completion marker detected as %q", got)
	}
}

func TestDialogWithoutPathEditIsNotAChooser(t *testing.T) {
	plain := &uiatest.Surface{WindowTitle: "Message", Class: dialogClass, IsVisible: true}
	if got := detect(t, plain); got != uia.StateUnknown {
		t.Fatalf("bare modal detected as %q", got)
	}
}
