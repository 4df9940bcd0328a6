package batch

import (
	"time"

	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/interval"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
)

// #region config
// RunnerConfig controls concurrency, extraction retries and the fallback.
type RunnerConfig struct {
	Workers        int
	Retries        int           // extra extraction attempts after the first
	BaseDelay      time.Duration // first back-off, doubled per retry
	MaxDelay       time.Duration
	ExtractTimeout time.Duration // per extraction attempt
	Fallback       interval.Interval
}

// DefaultRunnerConfig returns the production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:        8,
		Retries:        3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		ExtractTimeout: 60 * time.Second,
		Fallback:       interval.Interval{Low: 6, High: 12},
	}
}

// #endregion config

// #region output
// Output is one line of the result file.
type Output struct {
	ID         string            `json:"id"`
	Answer1    int               `json:"answer1"`
	Answer2    int               `json:"answer2"`
	Confidence float64           `json:"confidence"`
	Trace      diagnostics.Trace `json:"trace"`
}

// #endregion output

// #region case-result
// CaseResult is the outcome of one input record.
type CaseResult struct {
	Index    int
	Case     labels.Case
	Output   Output
	Fallback bool  // the fallback interval was emitted
	Resumed  bool  // taken from a previous run's checkpoint
	Err      error // why the fallback was used
}

// Summary describes a finished batch.
type Summary struct {
	RunID   string
	Total   int
	Failed  int
	Resumed int
}

// #endregion case-result
