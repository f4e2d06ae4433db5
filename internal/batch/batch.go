// Package batch runs work units through the scanning application strictly
// one at a time: the application is a single GUI session, so sequencing is
// the only safe concurrency model.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capella-tools/capscan-batch/pkg/schema"
)

// Driver is the slice of the application glue the runner needs. It is
// implemented by capscan.App; tests script their own.
type Driver interface {
	OpenImage(ctx context.Context, path string) error
	Recognize(ctx context.Context) error
	Export(ctx context.Context, outPath string) error
	CloseDocument(ctx context.Context) error
	// Recover tries to return the application to its main state after a
	// failed unit, reporting whether it got there.
	Recover(ctx context.Context) bool
}

// WorkUnit is one input-image-to-score conversion task.
type WorkUnit struct {
	ID     string
	Input  string
	Output string
}

// UnitOutcome is the terminal record for one unit.
type UnitOutcome struct {
	ID          string
	Input       string
	Output      string
	Stage       schema.Stage
	Succeeded   bool
	Error       string
	FailureType schema.FailureType
	Duration    time.Duration
}

// Result is the whole run's tally. Total always equals Succeeded+Failed;
// no unit is dropped.
type Result struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Units     []UnitOutcome
	Duration  time.Duration
}

// Observer receives progress notifications (journal rows, bus events,
// console output). All methods are called from the single batch goroutine.
type Observer interface {
	UnitStage(runID string, unit WorkUnit, stage schema.Stage)
	UnitDone(runID string, outcome UnitOutcome)
	BatchDone(result Result)
}

// NopObserver satisfies Observer and does nothing.
type NopObserver struct{}

func (NopObserver) UnitStage(string, WorkUnit, schema.Stage) {}
func (NopObserver) UnitDone(string, UnitOutcome)             {}
func (NopObserver) BatchDone(Result)                         {}

// inputExtensions are the image types accepted from the input directory.
var inputExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// EnumerateUnits lists the input directory and derives one unit per image,
// in lexicographic filename order regardless of how the directory listing
// comes back. Output paths are `<stem>.csc` under outputDir.
func EnumerateUnits(inputDir, outputDir string) ([]WorkUnit, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if inputExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	units := make([]WorkUnit, 0, len(names))
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		units = append(units, WorkUnit{
			ID:     uuid.NewString(),
			Input:  filepath.Join(inputDir, name),
			Output: filepath.Join(outputDir, stem+".csc"),
		})
	}
	return units, nil
}

// Runner drives the batch. The primed flags are the per-run replacement
// for the source script's process-global "dialog directory already set"
// state: once a file dialog has been pointed at our directory, later
// units only type the bare file name. A failed unit resets them, since
// the dialogs' state is unknown afterwards.
type Runner struct {
	driver    Driver
	observer  Observer
	logger    *slog.Logger
	normalize func(ctx context.Context, input string) (string, error)

	openPrimed bool
	savePrimed bool
}

type Options struct {
	Observer Observer
	Logger   *slog.Logger
	// Normalize prepares an input for the application (preflight) and
	// returns the path to actually open. Nil opens inputs as-is.
	Normalize func(ctx context.Context, input string) (string, error)
}

func NewRunner(driver Driver, opts Options) *Runner {
	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		driver:    driver,
		observer:  obs,
		logger:    logger,
		normalize: opts.Normalize,
	}
}

// Run processes every unit in order. A unit's failure never aborts the
// batch: the runner recovers the application and moves on. Cancellation
// stops the batch between units; outcomes already recorded stand and the
// tally covers only the units that actually ran. The returned result
// counts every processed unit exactly once.
func (r *Runner) Run(ctx context.Context, units []WorkUnit) Result {
	result := Result{RunID: uuid.NewString(), Total: len(units)}
	start := time.Now()
	r.openPrimed, r.savePrimed = false, false

	for i := range units {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("batch cancelled, skipping remaining units", "run_id", result.RunID, "remaining", len(units)-i)
			result.Total = len(result.Units)
			break
		}
		unit := units[i]
		log := r.logger.With("run_id", result.RunID, "unit", filepath.Base(unit.Input))

		outcome := r.processUnit(ctx, result.RunID, unit)
		if outcome.Succeeded {
			result.Succeeded++
			log.Info("unit completed", "output", unit.Output, "duration_ms", outcome.Duration.Milliseconds())
		} else {
			result.Failed++
			log.Warn("unit failed, continuing batch", "stage", outcome.Stage, "err", outcome.Error)
			// The dialogs may be in any state now; re-prime from scratch
			// and put the application back on its feet before the next
			// unit.
			r.openPrimed, r.savePrimed = false, false
			if !r.driver.Recover(ctx) {
				log.Warn("application not back on main window, next unit may fail")
			}
		}
		result.Units = append(result.Units, outcome)
	}

	result.Duration = time.Since(start)
	r.observer.BatchDone(result)
	return result
}

func (r *Runner) processUnit(ctx context.Context, runID string, unit WorkUnit) UnitOutcome {
	start := time.Now()
	fail := func(stage schema.Stage, ftype schema.FailureType, err error) UnitOutcome {
		o := UnitOutcome{
			ID:          unit.ID,
			Input:       unit.Input,
			Output:      unit.Output,
			Stage:       stage,
			Error:       err.Error(),
			FailureType: ftype,
			Duration:    time.Since(start),
		}
		r.observer.UnitDone(runID, o)
		return o
	}

	r.observer.UnitStage(runID, unit, schema.StageOpening)
	openPath := unit.Input
	if r.normalize != nil {
		normalized, err := r.normalize(ctx, unit.Input)
		if err != nil {
			return fail(schema.StageOpening, schema.FailureTypeValidation, fmt.Errorf("preflight: %w", err))
		}
		openPath = normalized
	}
	if err := r.driver.OpenImage(ctx, r.dialogPath(openPath, &r.openPrimed)); err != nil {
		return fail(schema.StageOpening, schema.FailureTypeTimeout, err)
	}

	r.observer.UnitStage(runID, unit, schema.StageRecognizing)
	if err := r.driver.Recognize(ctx); err != nil {
		return fail(schema.StageRecognizing, schema.FailureTypeTimeout, err)
	}

	r.observer.UnitStage(runID, unit, schema.StageSaving)
	if err := r.driver.Export(ctx, r.dialogPath(unit.Output, &r.savePrimed)); err != nil {
		return fail(schema.StageSaving, schema.FailureTypeTimeout, err)
	}
	if err := r.driver.CloseDocument(ctx); err != nil {
		r.logger.Warn("close document failed", "input", unit.Input, "err", err)
	}

	outcome := UnitOutcome{
		ID:        unit.ID,
		Input:     unit.Input,
		Output:    unit.Output,
		Stage:     schema.StageCompleted,
		Succeeded: true,
		Duration:  time.Since(start),
	}
	r.observer.UnitDone(runID, outcome)
	return outcome
}

// dialogPath returns the full path the first time a dialog is used this
// run and the bare file name afterwards, relying on the dialog keeping
// its directory between invocations.
func (r *Runner) dialogPath(path string, primed *bool) string {
	if !*primed {
		*primed = true
		return path
	}
	return filepath.Base(path)
}
