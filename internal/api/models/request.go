package models

// EvaluateRequest configures one evaluation run. Unset fields fall back to
// the server's loaded configuration.
type EvaluateRequest struct {
	// Data is a server-side path to a market CSV.
	Data string `json:"data,omitempty"`

	ClassName  string         `json:"class_name"`
	Parameters map[string]any `json:"parameters,omitempty"`

	NumRuns     int   `json:"num_runs,omitempty"`
	Seed        int64 `json:"seed,omitempty"`
	Parallelism int   `json:"parallelism,omitempty"`

	Team       string `json:"team,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`

	// Persist stores the result in the submission store when the server
	// has one configured.
	Persist bool `json:"persist,omitempty"`
}
