// Package capscan is the application glue for driving capella-scan 9
// through the uia capability surface: window signatures, automation ids,
// keystroke sequences, and the per-step fallback chains.
package capscan

import (
	"regexp"
	"strings"

	"github.com/capella-tools/capscan-batch/internal/uia"
)

// DefaultExePath is the stock install location of capella-scan 9.
const DefaultExePath = `C:\Program Files (x86)\capella-software\capella-scan 9\bin\capscan.exe`

// Window and control signatures (Qt 5.15.2 build of capella-scan 9).
const (
	dialogClass = "#32770" // Windows CommonItemDialog

	startRecognitionID = "actionStartRecognition"
	saveLevelID        = "actionSave_Level_of_Recognition"
	openMenuID         = "actionOpen"

	openPathEditID = "1148"
	savePathEditID = "1001"

	openButtonTitle = "Open"
	saveButtonTitle = "Save"
)

// completionMarker is the status text capella-scan shows once a
// recognition pass ends. Detection prefers the start-recognition control
// becoming enabled again; the marker is the backup signal.
const completionMarker = "Recognition finished"

var mainTitleRE = regexp.MustCompile(`.*capella-scan.*`)

// Predicates maps each UI state to its detection rule. The poller
// evaluates these against every visible surface and its direct children.
func Predicates() map[uia.State]uia.Predicate {
	return map[uia.State]uia.Predicate{
		uia.StateMain:                  isMainWindow,
		uia.StateAwaitingOpen:          fileDialogWithEdit(openPathEditID),
		uia.StateAwaitingSave:          fileDialogWithEdit(savePathEditID),
		uia.StateRecognitionInProgress: recognitionInProgress,
		uia.StateRecognitionDone:       recognitionDone,
	}
}

func isMainWindow(s uia.Surface) (bool, error) {
	return s.ClassName() != dialogClass && mainTitleRE.MatchString(s.Title()), nil
}

// fileDialogWithEdit identifies an open/save dialog: the generic modal
// file-chooser class plus a path entry with the expected control id. The
// edit's id is what distinguishes the open chooser from the save chooser.
func fileDialogWithEdit(editID string) uia.Predicate {
	return func(s uia.Surface) (bool, error) {
		if s.ClassName() != dialogClass {
			return false, nil
		}
		edits, err := s.Descendants(uia.RoleEdit)
		if err != nil {
			return false, err
		}
		for _, e := range edits {
			if e.AutomationID() == editID {
				return true, nil
			}
		}
		return false, nil
	}
}

func recognitionInProgress(s uia.Surface) (bool, error) {
	if ok, _ := isMainWindow(s); !ok {
		return false, nil
	}
	btn, found, err := findByAutomationID(s, uia.RoleButton, startRecognitionID)
	if err != nil || !found {
		return false, err
	}
	return !btn.Enabled(), nil
}

// recognitionDone holds when the start-recognition control is clickable
// again (the authoritative signal) or the completion marker shows up in
// the window's status texts.
func recognitionDone(s uia.Surface) (bool, error) {
	if ok, _ := isMainWindow(s); !ok {
		return false, nil
	}
	btn, found, err := findByAutomationID(s, uia.RoleButton, startRecognitionID)
	if err != nil {
		return false, err
	}
	if found && btn.Enabled() {
		return true, nil
	}

	texts, err := s.Descendants(uia.RoleText)
	if err != nil {
		return false, err
	}
	for _, t := range texts {
		if strings.Contains(t.Text(), completionMarker) {
			return true, nil
		}
	}
	return false, nil
}

func findByAutomationID(s uia.Surface, role, id string) (uia.Element, bool, error) {
	elems, err := s.Descendants(role)
	if err != nil {
		return nil, false, err
	}
	for _, e := range elems {
		if e.AutomationID() == id {
			return e, true, nil
		}
	}
	return nil, false, nil
}

func findByTitle(s uia.Surface, role, title string) (uia.Element, bool, error) {
	elems, err := s.Descendants(role)
	if err != nil {
		return nil, false, err
	}
	for _, e := range elems {
		if e.Text() == title {
			return e, true, nil
		}
	}
	return nil, false, nil
}
