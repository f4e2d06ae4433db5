// pkg/schema/events.go
package schema

// Stage is the processing stage a work unit is in. A unit moves through
// opening → recognizing → saving and ends at completed or failed.
type Stage string

const (
	StageOpening     Stage = "opening"
	StageRecognizing Stage = "recognizing"
	StageSaving      Stage = "saving"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// IsTerminal reports whether the stage ends a unit's lifecycle.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

type FailureType string

const (
	FailureTypeTimeout    FailureType = "timeout"
	FailureTypeValidation FailureType = "validation"
	FailureTypeStartup    FailureType = "startup"
)

// UnitLifecycleEvent is emitted whenever a work unit enters a new stage.
type UnitLifecycleEvent struct {
	RunID       string      `json:"run_id"`
	UnitID      string      `json:"unit_id"`
	Input       string      `json:"input"`
	Stage       Stage       `json:"stage"`
	Error       string      `json:"error,omitempty"`
	FailureType FailureType `json:"failure_type,omitempty"`
	HappenedAt  int64       `json:"happened_at"`
}

// UnitDone summarises one finished work unit, success or failure.
type UnitDone struct {
	RunID       string      `json:"run_id"`
	UnitID      string      `json:"unit_id"`
	Input       string      `json:"input"`
	Output      string      `json:"output,omitempty"`
	Stage       Stage       `json:"stage"`
	Succeeded   bool        `json:"succeeded"`
	Error       string      `json:"error,omitempty"`
	FailureType FailureType `json:"failure_type,omitempty"`
	DurationMs  int64       `json:"duration_ms"`
	HappenedAt  int64       `json:"happened_at"`
}

// BatchDone is the final tally for a whole run. It is emitted exactly
// once; no unit is ever silently dropped from the counts.
type BatchDone struct {
	RunID      string     `json:"run_id"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Units      []UnitDone `json:"units,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	HappenedAt int64      `json:"happened_at"`
}
