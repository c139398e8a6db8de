// Package runlog records pipeline runs and per-stage outcomes so operators
// and the external scheduler can inspect what each run did.
package runlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/db"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// RunLog provides read/write access to the pipeline_runs and
// pipeline_stages tables.
type RunLog struct {
	pool db.Pool
}

// New creates a RunLog backed by the given connection pool.
func New(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// StartRun records the beginning of a pipeline run and returns its id.
func (l *RunLog) StartRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, status, started_at) VALUES ($1, $2, now())`,
		id, string(model.RunRunning),
	)
	if err != nil {
		return "", eris.Wrap(err, "runlog: start run")
	}
	return id, nil
}

// CompleteRun marks a run as finished with the given terminal status.
func (l *RunLog) CompleteRun(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, completed_at = now() WHERE id = $2`,
		string(status), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

// StartStage records a stage entering the running state and returns the
// stage row id.
func (l *RunLog) StartStage(ctx context.Context, runID, stage string) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx,
		`INSERT INTO pipeline_stages (run_id, stage, status, started_at)
		 VALUES ($1, $2, $3, now()) RETURNING id`,
		runID, stage, string(model.StageRunning),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "runlog: start stage %s", stage)
	}
	return id, nil
}

// FinishStage records a stage's terminal status, summary and error text.
func (l *RunLog) FinishStage(ctx context.Context, stageID int64, status model.StageStatus, summary, errText string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE pipeline_stages
		 SET status = $1, summary = $2, error = $3, completed_at = now()
		 WHERE id = $4`,
		string(status), summary, errText, stageID,
	)
	return eris.Wrapf(err, "runlog: finish stage %d", stageID)
}

// RecordSkipped writes a skipped stage row in one shot; skipped stages
// never enter the running state.
func (l *RunLog) RecordSkipped(ctx context.Context, runID, stage string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO pipeline_stages (run_id, stage, status, started_at, completed_at)
		 VALUES ($1, $2, $3, now(), now())`,
		runID, stage, string(model.StageSkipped),
	)
	return eris.Wrapf(err, "runlog: record skipped stage %s", stage)
}

// ListRuns returns the most recent runs with their stage rows, newest first.
func (l *RunLog) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, status, started_at, completed_at
		 FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Status, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "runlog: list runs iterate")
}

// ListStages returns the stage rows of one run in execution order.
func (l *RunLog) ListStages(ctx context.Context, runID string) ([]model.RunStage, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, run_id, stage, status, summary, error, started_at, completed_at
		 FROM pipeline_stages WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: list stages for %s", runID)
	}
	defer rows.Close()

	var stages []model.RunStage
	for rows.Next() {
		var s model.RunStage
		if err := rows.Scan(&s.ID, &s.RunID, &s.Stage, &s.Status, &s.Summary,
			&s.Error, &s.StartedAt, &s.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "runlog: scan stage")
		}
		stages = append(stages, s)
	}
	return stages, eris.Wrap(rows.Err(), "runlog: list stages iterate")
}

// ActiveRun reports whether a run is currently marked running. The external
// scheduler uses it to keep at most one run in flight.
func (l *RunLog) ActiveRun(ctx context.Context) (bool, error) {
	var count int
	err := l.pool.QueryRow(ctx,
		`SELECT count(*) FROM pipeline_runs WHERE status = $1`,
		string(model.RunRunning),
	).Scan(&count)
	if err != nil {
		return false, eris.Wrap(err, "runlog: active run")
	}
	return count > 0, nil
}
