// internal/capscan/app.go
package capscan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/capella-tools/capscan-batch/internal/uia"
)

// Timeouts bound each automation step. Dialog transitions are fast;
// recognition runs for minutes and is polled at a coarser interval.
type Timeouts struct {
	Dialog            time.Duration
	Load              time.Duration
	Recognize         time.Duration
	RecognizeInterval time.Duration
	Recover           time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Dialog:            10 * time.Second,
		Load:              20 * time.Second,
		Recognize:         120 * time.Second,
		RecognizeInterval: time.Second,
		Recover:           5 * time.Second,
	}
}

// App drives one capella-scan session. All operations are synchronous and
// must not be called concurrently: the application is a single GUI session
// with a single focused surface.
type App struct {
	desktop  uia.Desktop
	poller   *uia.Poller
	dispatch *uia.Dispatcher
	timeouts Timeouts
	logger   *slog.Logger
}

func New(desktop uia.Desktop, pollInterval time.Duration, timeouts Timeouts, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	poller := uia.NewPoller(desktop, Predicates(), pollInterval, logger)
	return &App{
		desktop:  desktop,
		poller:   poller,
		dispatch: uia.NewDispatcher(poller, logger),
		timeouts: timeouts,
		logger:   logger,
	}
}

// Poller exposes the state poller for diagnostics (the probe command).
func (a *App) Poller() *uia.Poller { return a.poller }

// WaitMain blocks until the main window is visible. Called once at
// startup; failure here means the application never came up.
func (a *App) WaitMain(ctx context.Context) error {
	if _, err := a.poller.AwaitState(ctx, uia.StateMain, a.timeouts.Load); err != nil {
		return &uia.StartupError{Err: err}
	}
	return nil
}

// OpenImage loads one input image: raise the open dialog (Ctrl+O first,
// File menu as fallback), type the path, and confirm until the dialog is
// gone and the main window is back.
func (a *App) OpenImage(ctx context.Context, path string) error {
	dialog, ok := a.dispatch.Achieve(ctx,
		uia.Outcome{Name: "open dialog raised", Target: uia.StateAwaitingOpen},
		[]uia.Action{
			{
				Name:    "ctrl+o",
				Timeout: a.timeouts.Dialog,
				Do:      func(ctx context.Context) error { return a.desktop.SendInput(ctx, "^o") },
			},
			{
				Name:    "file menu open",
				Timeout: a.timeouts.Dialog,
				Do:      func(ctx context.Context) error { return a.clickOnMain(ctx, uia.RoleMenuItem, openMenuID) },
			},
		})
	if !ok {
		return fmt.Errorf("open dialog did not appear for %s", path)
	}

	if err := a.fillPathEntry(ctx, dialog, openPathEditID, path); err != nil {
		return fmt.Errorf("fill open dialog: %w", err)
	}

	if _, ok := a.dispatch.Achieve(ctx,
		uia.Outcome{Name: "image opened", Target: uia.StateMain},
		[]uia.Action{
			{
				Name:    "open button",
				Timeout: a.timeouts.Load,
				Do:      func(ctx context.Context) error { return clickTitled(ctx, dialog, openButtonTitle) },
			},
			{
				Name:    "enter key",
				Timeout: a.timeouts.Dialog,
				Do:      func(ctx context.Context) error { return a.desktop.SendInput(ctx, "{ENTER}") },
			},
		}); !ok {
		return fmt.Errorf("image %s did not load", path)
	}
	return nil
}

// Recognize starts optical recognition and waits for it to finish. The
// start control going disabled and enabled again is the completion
// signal; a second click attempt is the fallback when the first one is
// swallowed (the control can lag behind the document load).
func (a *App) Recognize(ctx context.Context) error {
	click := func(ctx context.Context) error {
		return a.clickOnMain(ctx, uia.RoleButton, startRecognitionID)
	}
	if _, ok := a.dispatch.Achieve(ctx,
		uia.Outcome{Name: "recognition finished", Target: uia.StateRecognitionDone},
		[]uia.Action{
			{Name: "start recognition", Timeout: a.timeouts.Recognize, Interval: a.timeouts.RecognizeInterval, Do: click},
			{Name: "start recognition retry", Timeout: a.timeouts.Recognize, Interval: a.timeouts.RecognizeInterval, Do: click},
		}); !ok {
		return fmt.Errorf("recognition did not finish within %s", a.timeouts.Recognize)
	}
	return nil
}

// Export saves the recognition result to outPath: raise the save dialog
// (Shift+Ctrl+M first, the save-level menu action as fallback), type the
// output path, confirm, and wait for the main window.
func (a *App) Export(ctx context.Context, outPath string) error {
	dialog, ok := a.dispatch.Achieve(ctx,
		uia.Outcome{Name: "save dialog raised", Target: uia.StateAwaitingSave},
		[]uia.Action{
			{
				Name:    "shift+ctrl+m",
				Timeout: a.timeouts.Dialog,
				Do:      func(ctx context.Context) error { return a.desktop.SendInput(ctx, "+^m") },
			},
			{
				Name:    "save level menu",
				Timeout: a.timeouts.Dialog,
				Do:      func(ctx context.Context) error { return a.clickOnMain(ctx, uia.RoleMenuItem, saveLevelID) },
			},
		})
	if !ok {
		return fmt.Errorf("save dialog did not appear for %s", outPath)
	}

	if err := a.fillPathEntry(ctx, dialog, savePathEditID, outPath); err != nil {
		return fmt.Errorf("fill save dialog: %w", err)
	}

	if _, ok := a.dispatch.Achieve(ctx,
		uia.Outcome{Name: "score exported", Target: uia.StateMain},
		[]uia.Action{
			{
				Name:    "save button",
				Timeout: a.timeouts.Load,
				Do:      func(ctx context.Context) error { return clickTitled(ctx, dialog, saveButtonTitle) },
			},
			{
				Name:    "enter key",
				Timeout: a.timeouts.Dialog,
				Do:      func(ctx context.Context) error { return a.desktop.SendInput(ctx, "{ENTER}") },
			},
		}); !ok {
		return fmt.Errorf("export to %s was not confirmed", outPath)
	}
	return nil
}

// CloseDocument closes the active tab. Best effort; used after a
// successful export and during failure recovery.
func (a *App) CloseDocument(ctx context.Context) error {
	return a.desktop.SendInput(ctx, "^w")
}

// Recover tries to return the application to the main state after a
// failed unit, so one unit's wreckage (stuck dialogs, half-open tabs)
// does not contaminate the next. Reports whether Main was reached.
func (a *App) Recover(ctx context.Context) bool {
	_ = a.desktop.SendInput(ctx, "{ESC}")
	_ = a.CloseDocument(ctx)
	_, err := a.poller.AwaitState(ctx, uia.StateMain, a.timeouts.Recover)
	if err != nil {
		a.logger.Warn("could not return to main window", "err", err)
		return false
	}
	return true
}

func (a *App) clickOnMain(ctx context.Context, role, autoID string) error {
	main, err := a.poller.AwaitState(ctx, uia.StateMain, a.timeouts.Dialog)
	if err != nil {
		return err
	}
	el, found, err := findByAutomationID(main, role, autoID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("control %s not found on main window", autoID)
	}
	return el.Click(ctx)
}

// fillPathEntry types a path into the dialog's path edit, falling back to
// the first edit control when the expected id is missing (localized
// builds renumber the chooser's controls).
func (a *App) fillPathEntry(ctx context.Context, dialog uia.Surface, editID, path string) error {
	edit, found, err := findByAutomationID(dialog, uia.RoleEdit, editID)
	if err != nil {
		return err
	}
	if !found {
		edits, err := dialog.Descendants(uia.RoleEdit)
		if err != nil {
			return err
		}
		if len(edits) == 0 {
			return fmt.Errorf("no path entry in dialog %q", dialog.Title())
		}
		a.logger.Warn("path edit id not found, using first edit", "want", editID)
		edit = edits[0]
	}
	return edit.SetText(ctx, path)
}

func clickTitled(ctx context.Context, s uia.Surface, title string) error {
	el, found, err := findByTitle(s, uia.RoleButton, title)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("button %q not found", title)
	}
	return el.Click(ctx)
}
