package model

import "time"

// StageStatus is the lifecycle state of one pipeline stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// RunStatus is the overall state of one pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// StageOutcome summarizes what a stage did, for operator logs and the run
// log table. Errors counts per-row failures that were isolated and skipped;
// they do not fail the stage.
type StageOutcome struct {
	Examined int    `json:"examined"`
	Changed  int    `json:"changed"`
	Removed  int    `json:"removed"`
	Errors   int    `json:"errors"`
	Summary  string `json:"summary"`
}

// StageResult is the externally visible result of one stage invocation.
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   StageStatus   `json:"status"`
	Outcome  *StageOutcome `json:"outcome,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration int64         `json:"duration_ms"`
}

// RunReport is the full report of one pipeline run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	Status      RunStatus     `json:"status"`
	Stages      []StageResult `json:"stages"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Run is a persisted pipeline run row.
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunStage is a persisted stage row of a run.
type RunStage struct {
	ID          int64       `json:"id"`
	RunID       string      `json:"run_id"`
	Stage       string      `json:"stage"`
	Status      StageStatus `json:"status"`
	Summary     string      `json:"summary,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
