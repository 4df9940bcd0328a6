package diagnostics

// #region issue
// IssueCode enumerates recoverable per-request problems.
type IssueCode string

const (
	IssueUnsupportedRegion  IssueCode = "unsupported_region"
	IssueUnknownTag         IssueCode = "unknown_circumstance_tag"
	IssueInvalidAdjustment  IssueCode = "invalid_adjustment"
	IssueAmountExceedsTable IssueCode = "amount_exceeds_table"
	IssueAmountBelowTable   IssueCode = "amount_below_table"
	IssueMetricMissing      IssueCode = "metric_missing"
	IssueClampFloor         IssueCode = "clamp_floor"
	IssueClampCeiling       IssueCode = "clamp_ceiling"
)

// Issue is a recoverable problem reported next to a best-effort interval.
type Issue struct {
	Code   IssueCode `json:"code"`
	Detail string    `json:"detail"`
}

// #endregion issue

// #region trace
// TraceEntry records one rule application in evaluation order.
type TraceEntry struct {
	RuleID string `json:"rule_id"`
	Effect string `json:"effect"`
}

// Trace is append-only; stages receive it and return the extended slice.
type Trace []TraceEntry

// Add appends an entry and returns the extended trace.
func (t Trace) Add(ruleID, effect string) Trace {
	return append(t, TraceEntry{RuleID: ruleID, Effect: effect})
}

// #endregion trace

// #region reporter-config
// ReporterConfig holds the confidence penalty for each issue code.
type ReporterConfig struct {
	ExceedsTable      float64
	BelowTable        float64
	UnknownTag        float64 // per dropped tag
	UnknownTagCap     float64
	Tier2Clamp        float64
	UnsupportedRegion float64
	MetricMissing     float64
	InvalidAdjustment float64
}

// DefaultReporterConfig returns the penalties used by the CLI and batch runner.
func DefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		ExceedsTable:      0.20,
		BelowTable:        0.10,
		UnknownTag:        0.10,
		UnknownTagCap:     0.30,
		Tier2Clamp:        0.15,
		UnsupportedRegion: 0.05,
		MetricMissing:     0.25,
		InvalidAdjustment: 0.20,
	}
}

// #endregion reporter-config

// #region report
// Check captures one confidence deduction.
type Check struct {
	Name    string  `json:"name"`
	Penalty float64 `json:"penalty"`
}

// Report is the diagnostics output for one prediction.
type Report struct {
	Confidence float64 `json:"confidence"`
	Checks     []Check `json:"checks,omitempty"`
	Issues     []Issue `json:"issues,omitempty"`
	Trace      Trace   `json:"trace"`
}

// #endregion report
