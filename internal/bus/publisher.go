package bus

import (
	"log/slog"
	"time"

	"github.com/capella-tools/capscan-batch/internal/batch"
	"github.com/capella-tools/capscan-batch/pkg/schema"
)

type jsonPublisher interface {
	PublishJSON(subject string, v any) error
}

// Publisher turns batch progress into events on the bus. Publish failures
// are logged and dropped; losing an event must never fail a unit.
type Publisher struct {
	client  jsonPublisher
	subject string
	logger  *slog.Logger
}

// NewPublisher publishes under subject + ".lifecycle", ".unit.done" and
// ".done".
func NewPublisher(client jsonPublisher, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, subject: subject, logger: logger}
}

func (p *Publisher) publish(suffix string, v any) {
	subject := p.subject + suffix
	if err := p.client.PublishJSON(subject, v); err != nil {
		p.logger.Error("bus publish failed", "subject", subject, "err", err)
	}
}

func (p *Publisher) UnitStage(runID string, unit batch.WorkUnit, stage schema.Stage) {
	p.publish(".lifecycle", schema.UnitLifecycleEvent{
		RunID:      runID,
		UnitID:     unit.ID,
		Input:      unit.Input,
		Stage:      stage,
		HappenedAt: time.Now().Unix(),
	})
}

func (p *Publisher) UnitDone(runID string, o batch.UnitOutcome) {
	p.publish(".unit.done", unitDoneEvent(runID, o))
}

func (p *Publisher) BatchDone(result batch.Result) {
	ev := schema.BatchDone{
		RunID:      result.RunID,
		Total:      result.Total,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		DurationMs: result.Duration.Milliseconds(),
		HappenedAt: time.Now().Unix(),
	}
	for _, o := range result.Units {
		ev.Units = append(ev.Units, unitDoneEvent(result.RunID, o))
	}
	p.publish(".done", ev)
}

func unitDoneEvent(runID string, o batch.UnitOutcome) schema.UnitDone {
	return schema.UnitDone{
		RunID:       runID,
		UnitID:      o.ID,
		Input:       o.Input,
		Output:      o.Output,
		Stage:       o.Stage,
		Succeeded:   o.Succeeded,
		Error:       o.Error,
		FailureType: o.FailureType,
		DurationMs:  o.Duration.Milliseconds(),
		HappenedAt:  time.Now().Unix(),
	}
}
