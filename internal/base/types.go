package base

import (
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

// #region input
// Input carries the primary metric for one case. Amount applies to
// amount-banded crimes, Severity to graded ones. Count feeds the profile's
// count bonus (thefts committed, victims injured).
type Input struct {
	Amount   *float64
	Severity string
	Count    *int
}

// #endregion input

// #region sentence
// Sentence is a month value that is either a scalar (Low == High) or a range.
type Sentence struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Scalar builds a point sentence.
func Scalar(months float64) Sentence {
	return Sentence{Low: months, High: months}
}

// IsRange reports whether the sentence spans more than one value.
func (s Sentence) IsRange() bool { return s.Low != s.High }

// Center returns the midpoint.
func (s Sentence) Center() float64 { return (s.Low + s.High) / 2 }

// Map applies f to both ends.
func (s Sentence) Map(f func(float64) float64) Sentence {
	return Sentence{Low: f(s.Low), High: f(s.High)}
}

// #endregion sentence

// #region result
// Result is the base sentence plus the statutory range of the chosen band.
type Result struct {
	Sentence  Sentence
	Band      string // band level or severity level id; empty when defaulted
	Statutory rules.Range
	Issues    []diagnostics.Issue
	Trace     diagnostics.Trace
}

// #endregion result
