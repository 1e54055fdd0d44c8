package eval

import (
	"encoding/json"

	"battery-eval/internal/trial"
)

// Evaluation outcome status values, stable for the downstream scoring store.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SubmissionResult is the record persisted for one evaluation run. The JSON
// field set matches the submission schema exactly; downstream consumers key
// on these names, so do not add or rename fields here. Write-once: the
// harness assembles it and nothing mutates it afterwards.
type SubmissionResult struct {
	MainTrialIdx   int            `json:"main_trial_idx"`
	StdProfit      *float64       `json:"std_profit"`
	ErrorTraceback *string        `json:"error_traceback"`
	MainTrial      *trial.Trial   `json:"main_trial"`
	Status         string         `json:"status"`
	ClassName      string         `json:"class_name"`
	Score          *float64       `json:"score"`
	SubmittedAt    int64          `json:"submitted_at"`
	NumRuns        int            `json:"num_runs"`
	Parameters     map[string]any `json:"parameters"`
	Team           string         `json:"team"`
	Error          *string        `json:"error"`
	MeanProfit     *float64       `json:"mean_profit"`
	CommitHash     string         `json:"commit_hash"`

	// RunID identifies this evaluation run in logs and API responses.
	// FailedRuns is kept for diagnostics. Neither is part of the schema.
	RunID      string `json:"-"`
	FailedRuns int    `json:"-"`
}

// MarshalIndent renders the result the way the submission pipeline stores it.
func (r *SubmissionResult) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
