package engine

import (
	"github.com/danielpatrickdp/sentencing-engine/internal/base"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
	"github.com/danielpatrickdp/sentencing-engine/internal/interval"
)

// #region input
// Input is one case as the calculator sees it.
type Input struct {
	CaseID        string               `json:"id,omitempty"`
	CrimeType     string               `json:"crime_type"`
	Region        string               `json:"region,omitempty"`
	Amount        *float64             `json:"amount,omitempty"`
	Count         *int                 `json:"count,omitempty"`
	Severity      string               `json:"severity,omitempty"`
	Circumstances []facts.Circumstance `json:"circumstances,omitempty"`
}

// #endregion input

// #region result
// Result is a prediction with everything needed to audit it.
type Result struct {
	CaseID     string              `json:"id,omitempty"`
	CrimeType  string              `json:"crime_type"`
	Region     string              `json:"region,omitempty"`
	Band       string              `json:"band,omitempty"`
	Base       base.Sentence       `json:"base"`
	Adjusted   base.Sentence       `json:"adjusted"`
	Interval   interval.Interval   `json:"interval"`
	Confidence float64             `json:"confidence"`
	Checks     []diagnostics.Check `json:"checks,omitempty"`
	Issues     []diagnostics.Issue `json:"issues,omitempty"`
	Trace      diagnostics.Trace   `json:"trace"`
}

// Output is the external result contract.
type Output struct {
	Interval   interval.Interval `json:"interval"`
	Confidence float64           `json:"confidence"`
	Trace      diagnostics.Trace `json:"trace"`
}

// Output projects the result onto the external contract.
func (r Result) Output() Output {
	return Output{Interval: r.Interval, Confidence: r.Confidence, Trace: r.Trace}
}

// HasIssue reports whether an issue with the code was raised.
func (r Result) HasIssue(code diagnostics.IssueCode) bool {
	for _, is := range r.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// #endregion result
