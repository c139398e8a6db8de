package runlog

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline-data/catalog-cli/internal/model"
)

func newMockLog(t *testing.T) (*RunLog, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestStartRun(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectExec(`INSERT INTO pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), string(model.RunRunning)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := log.StartRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunUnknownID(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectExec(`UPDATE pipeline_runs SET status`).
		WithArgs(string(model.RunSucceeded), "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := log.CompleteRun(context.Background(), "nope", model.RunSucceeded)
	assert.Error(t, err)
}

func TestStageLifecycle(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectQuery(`INSERT INTO pipeline_stages`).
		WithArgs("run-1", "dedupe", string(model.StageRunning)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`UPDATE pipeline_stages`).
		WithArgs(string(model.StageSucceeded), "3 duplicate rows removed", "", int64(11)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	id, err := log.StartStage(context.Background(), "run-1", "dedupe")
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	err = log.FinishStage(context.Background(), id, model.StageSucceeded, "3 duplicate rows removed", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSkipped(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectExec(`INSERT INTO pipeline_stages`).
		WithArgs("run-1", "purge", string(model.StageSkipped)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, log.RecordSkipped(context.Background(), "run-1", "purge"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	log, mock := newMockLog(t)

	started := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	completed := started.Add(2 * time.Minute)
	mock.ExpectQuery(`FROM pipeline_runs ORDER BY started_at DESC`).
		WithArgs(5).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "status", "started_at", "completed_at"}).
			AddRow("run-2", string(model.RunSucceeded), started, &completed).
			AddRow("run-1", string(model.RunFailed), started.Add(-time.Hour), &completed))

	runs, err := log.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveRun(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM pipeline_runs WHERE status`).
		WithArgs(string(model.RunRunning)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	active, err := log.ActiveRun(context.Background())
	require.NoError(t, err)
	assert.True(t, active)
}
