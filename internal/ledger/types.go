package ledger

import "time"

// #region run
// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
)

// Run is one batch invocation over an input file.
type Run struct {
	ID           string
	Input        string
	RulesVersion string
	Status       RunStatus
	Total        int
	Failed       int
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
}

// #endregion run

// #region prediction
// Prediction is the checkpointed output for one case of a run.
type Prediction struct {
	RunID      string
	CaseID     string
	Seq        int // position in the input file
	Low        int
	High       int
	Confidence float64
	Fallback   bool   // true when the fallback interval was emitted
	Error      string // why the fallback was used
	TraceJSON  string
	CreatedAt  time.Time
}

// #endregion prediction
