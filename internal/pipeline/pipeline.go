// Package pipeline implements the catalog reconciliation chain: an ordered
// sequence of idempotent stages that converge a freshly scraped batch to a
// clean, deduplicated, price-accurate state. Stages run strictly
// sequentially and each one is gated on the success of its predecessor.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/config"
	"github.com/gridline-data/catalog-cli/internal/fetcher"
	"github.com/gridline-data/catalog-cli/internal/model"
	"github.com/gridline-data/catalog-cli/internal/runlog"
)

// Stage is one unit of the reconciliation chain with a single
// success/failure outcome. A nil error means the stage succeeded; per-row
// problems a stage chose to tolerate are reported inside the outcome.
type Stage interface {
	Name() string
	Run(ctx context.Context) (*model.StageOutcome, error)
}

// Chain executes the reconciliation stages in order with short-circuit on
// failure: once a stage fails, every later stage is skipped without side
// effects and the run ends failed.
type Chain struct {
	stages []Stage
	log    *runlog.RunLog
}

// New assembles the standard six-stage chain over the given store and
// fetcher.
func New(store catalog.Store, f fetcher.Fetcher, cfg config.PipelineConfig, log *runlog.RunLog) *Chain {
	return &Chain{
		stages: []Stage{
			NewAuditStage(store),
			NewCanonicalizeStage(store, f),
			NewDedupeStage(store),
			NewReconcileStage(store, f, cfg.PriceSelector),
			NewDeriveStage(store),
			NewPurgeStage(store),
		},
		log: log,
	}
}

// NewWithStages builds a chain over an explicit stage list. Used by tests
// and by deployments that start the chain at a different initial stage.
func NewWithStages(stages []Stage, log *runlog.RunLog) *Chain {
	return &Chain{stages: stages, log: log}
}

// Run executes the chain once. The returned report always covers every
// stage; the error is non-nil exactly when a stage failed, so the caller
// can surface a fatal result to the scheduler.
func (c *Chain) Run(ctx context.Context) (*model.RunReport, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	runID, err := c.log.StartRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: start run")
	}

	report := &model.RunReport{
		RunID:     runID,
		Status:    model.RunSucceeded,
		StartedAt: time.Now().UTC(),
	}

	var failedErr error
	gateOpen := true

	for _, st := range c.stages {
		if !gateOpen {
			if logErr := c.log.RecordSkipped(ctx, runID, st.Name()); logErr != nil {
				log.Warn("pipeline: failed to record skipped stage",
					zap.String("stage", st.Name()), zap.Error(logErr))
			}
			log.Info("pipeline: stage skipped", zap.String("stage", st.Name()))
			report.Stages = append(report.Stages, model.StageResult{
				Stage:  st.Name(),
				Status: model.StageSkipped,
			})
			continue
		}

		stageID, logErr := c.log.StartStage(ctx, runID, st.Name())
		if logErr != nil {
			log.Warn("pipeline: failed to record stage start",
				zap.String("stage", st.Name()), zap.Error(logErr))
		}

		start := time.Now()
		outcome, stageErr := st.Run(ctx)
		duration := time.Since(start).Milliseconds()

		result := model.StageResult{
			Stage:    st.Name(),
			Outcome:  outcome,
			Duration: duration,
		}

		if stageErr != nil {
			result.Status = model.StageFailed
			result.Error = stageErr.Error()
			gateOpen = false
			report.Status = model.RunFailed
			failedErr = eris.Wrapf(stageErr, "pipeline: stage %s", st.Name())
			log.Error("pipeline: stage failed",
				zap.String("stage", st.Name()),
				zap.Int64("duration_ms", duration),
				zap.Error(stageErr),
			)
		} else {
			result.Status = model.StageSucceeded
			log.Info("pipeline: stage complete",
				zap.String("stage", st.Name()),
				zap.Int64("duration_ms", duration),
				zap.String("summary", summaryOf(outcome)),
			)
		}

		if stageID != 0 {
			if logErr := c.log.FinishStage(ctx, stageID, result.Status, summaryOf(outcome), result.Error); logErr != nil {
				log.Warn("pipeline: failed to record stage finish",
					zap.String("stage", st.Name()), zap.Error(logErr))
			}
		}

		report.Stages = append(report.Stages, result)
	}

	report.CompletedAt = time.Now().UTC()

	if logErr := c.log.CompleteRun(ctx, runID, report.Status); logErr != nil {
		log.Warn("pipeline: failed to record run completion", zap.Error(logErr))
	}

	log.Info("pipeline: run finished",
		zap.String("run_id", runID),
		zap.String("status", string(report.Status)),
	)

	return report, failedErr
}

func summaryOf(o *model.StageOutcome) string {
	if o == nil {
		return ""
	}
	return o.Summary
}
