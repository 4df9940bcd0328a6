package adjust

import (
	"github.com/danielpatrickdp/sentencing-engine/internal/base"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
)

// #region input
// Input is everything the layered engine needs besides the profile.
type Input struct {
	Base          base.Result
	Circumstances facts.Set
	CaseAmount    *float64 // loss amount, used to decide full restitution
}

// #endregion input

// #region result
// Result is the adjusted sentence with the bounds it was clamped to.
type Result struct {
	Sentence     base.Sentence
	Tier1Factor  float64 // product of applied tier-1 factors, 1 when none
	Tier2Percent float64 // summed non-compounding percent
	Tier2Months  float64 // summed fixed-month deltas
	Tier1Applied []facts.Tag
	Tier2Applied []facts.Tag
	Ignored      []facts.Tag

	Floor              float64
	Ceiling            float64
	ReductionPermitted bool

	Issues []diagnostics.Issue
	Trace  diagnostics.Trace
}

// #endregion result
