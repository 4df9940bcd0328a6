package adjust

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/sentencing-engine/internal/base"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

// #region apply
// Apply runs tier 1 (chained product) then tier 2 (summed, applied once) and
// clamps the outcome to the statutory bounds. Rules are visited in table
// order so the arithmetic and the trace are deterministic.
func Apply(p *rules.Profile, in Input) Result {
	res := Result{Tier1Factor: 1}
	trace := append(diagnostics.Trace(nil), in.Base.Trace...)
	issues := append([]diagnostics.Issue(nil), in.Base.Issues...)

	// --- Vocabulary pass: unknown tags are dropped, never misapplied ---
	for _, c := range in.Circumstances.Items() {
		if p.Covers(c.Tag) {
			continue
		}
		res.Ignored = append(res.Ignored, c.Tag)
		issues = append(issues, diagnostics.Issue{
			Code:   diagnostics.IssueUnknownTag,
			Detail: fmt.Sprintf("tag %q not in %s vocabulary", c.Tag, p.ID),
		})
		trace = trace.Add("ignored."+string(c.Tag), "not applicable to "+p.ID)
	}

	// --- Tier 1: multiplicative ---
	for _, r := range p.Tier1 {
		if !in.Circumstances.Has(r.Tag) {
			continue
		}
		res.Tier1Factor *= r.Factor
		res.Tier1Applied = append(res.Tier1Applied, r.Tag)
		if r.PermitsReduction {
			res.ReductionPermitted = true
		}
		trace = trace.Add("tier1."+string(r.Tag), fmt.Sprintf("x%.2f", r.Factor))
	}
	s := in.Base.Sentence
	if len(res.Tier1Applied) > 0 {
		factor := res.Tier1Factor
		s = s.Map(func(v float64) float64 { return round2(v * factor) })
		trace = trace.Add("tier1.result", fmt.Sprintf("x%.4f -> %s", factor, fmtSentence(s)))
	}

	// --- Tier 2: summed deltas ---
	var compounding []float64
	for _, r := range p.Tier2 {
		c, ok := in.Circumstances.Get(r.Tag)
		if !ok {
			continue
		}
		pct := r.Percent
		if r.FullPercent != nil && fullRestitution(c, in.CaseAmount) {
			pct = *r.FullPercent
		}
		res.Tier2Applied = append(res.Tier2Applied, r.Tag)
		if r.PermitsReduction {
			res.ReductionPermitted = true
		}
		res.Tier2Months += r.Months
		if r.Compound {
			compounding = append(compounding, pct)
			trace = trace.Add("tier2."+string(r.Tag), fmt.Sprintf("%+.0f%% compounding", pct))
			continue
		}
		res.Tier2Percent += pct
		trace = trace.Add("tier2."+string(r.Tag), fmtDelta(pct, r.Months))
	}

	if len(res.Tier2Applied) > 0 {
		mult := 1 + res.Tier2Percent/100
		if mult <= 0 {
			issues = append(issues, diagnostics.Issue{
				Code:   diagnostics.IssueInvalidAdjustment,
				Detail: fmt.Sprintf("tier-2 deltas sum to %.0f%%", res.Tier2Percent),
			})
			mult = 0
		}
		months := res.Tier2Months
		s = s.Map(func(v float64) float64 { return round2(v*mult + months) })
		for _, pct := range compounding {
			f := 1 + pct/100
			s = s.Map(func(v float64) float64 { return round2(v * f) })
		}
		trace = trace.Add("tier2.result", fmt.Sprintf("%+.0f%%, %+.2f months -> %s", res.Tier2Percent, months, fmtSentence(s)))
	}

	// --- Statutory clamps ---
	res.Floor = in.Base.Statutory.Min
	if res.ReductionPermitted && p.FloorMonths < res.Floor {
		res.Floor = p.FloorMonths
	}
	res.Ceiling = p.MaxMonths

	if s.Low < 0 || s.High < 0 {
		issues = append(issues, diagnostics.Issue{
			Code:   diagnostics.IssueInvalidAdjustment,
			Detail: fmt.Sprintf("adjusted sentence negative: %s", fmtSentence(s)),
		})
	}

	clamped := s.Map(func(v float64) float64 { return math.Min(math.Max(v, res.Floor), res.Ceiling) })
	if clamped.Low > s.Low || clamped.High > s.High {
		issues = append(issues, diagnostics.Issue{
			Code:   diagnostics.IssueClampFloor,
			Detail: fmt.Sprintf("%s raised to floor %.0f", fmtSentence(s), res.Floor),
		})
		trace = trace.Add("clamp.floor", fmt.Sprintf("%s -> %s", fmtSentence(s), fmtSentence(clamped)))
	}
	if clamped.Low < s.Low || clamped.High < s.High {
		issues = append(issues, diagnostics.Issue{
			Code:   diagnostics.IssueClampCeiling,
			Detail: fmt.Sprintf("%s lowered to ceiling %.0f", fmtSentence(s), res.Ceiling),
		})
		trace = trace.Add("clamp.ceiling", fmt.Sprintf("%s -> %s", fmtSentence(s), fmtSentence(clamped)))
	}

	res.Sentence = clamped
	res.Issues = issues
	res.Trace = trace
	return res
}

// #endregion apply

// #region helpers
// fullRestitution reports whether a restitution payload covers the whole loss.
func fullRestitution(c facts.Circumstance, caseAmount *float64) bool {
	if c.Full {
		return true
	}
	if c.Amount == nil || caseAmount == nil || *caseAmount <= 0 {
		return false
	}
	return *c.Amount >= *caseAmount
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func fmtDelta(pct, months float64) string {
	switch {
	case months != 0 && pct != 0:
		return fmt.Sprintf("%+.0f%%, %+.2f months", pct, months)
	case months != 0:
		return fmt.Sprintf("%+.2f months", months)
	default:
		return fmt.Sprintf("%+.0f%%", pct)
	}
}

func fmtSentence(s base.Sentence) string {
	if s.IsRange() {
		return fmt.Sprintf("[%.2f, %.2f] months", s.Low, s.High)
	}
	return fmt.Sprintf("%.2f months", s.Low)
}

// #endregion helpers
