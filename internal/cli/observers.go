package cli

import (
	"github.com/capella-tools/capscan-batch/internal/batch"
	"github.com/capella-tools/capscan-batch/pkg/schema"
)

// multiObserver fans batch progress out to every configured sink
// (journal, bus). Sinks are called in order on the batch goroutine.
type multiObserver []batch.Observer

func (m multiObserver) UnitStage(runID string, unit batch.WorkUnit, stage schema.Stage) {
	for _, o := range m {
		o.UnitStage(runID, unit, stage)
	}
}

func (m multiObserver) UnitDone(runID string, outcome batch.UnitOutcome) {
	for _, o := range m {
		o.UnitDone(runID, outcome)
	}
}

func (m multiObserver) BatchDone(result batch.Result) {
	for _, o := range m {
		o.BatchDone(result)
	}
}
