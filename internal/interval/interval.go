package interval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/sentencing-engine/internal/adjust"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

// #region build
// Build turns an adjusted sentence into a whole-month interval inside
// [floor, ceiling]. Ranges are used as given; scalars get the narrowest
// candidate width that covers the policy's required width.
func Build(policy rules.IntervalPolicy, adj adjust.Result) Result {
	floor := int(math.Ceil(adj.Floor))
	ceiling := int(math.Floor(adj.Ceiling))
	trace := append(diagnostics.Trace(nil), adj.Trace...)
	var issues []diagnostics.Issue

	var iv Interval
	if adj.Sentence.IsRange() {
		iv = Interval{Low: int(math.Round(adj.Sentence.Low)), High: int(math.Round(adj.Sentence.High))}
		trace = trace.Add("interval.range", fmt.Sprintf("range used directly %s", iv))
	} else {
		center := adj.Sentence.Low
		required := requiredWidth(policy, center, len(adj.Tier1Applied))
		width := narrowest(policy.Candidates, required)
		low := int(math.Round(center - float64(width)/2))
		iv = Interval{Low: low, High: low + width}
		trace = trace.Add("interval.width", fmt.Sprintf("center %.2f, required %.2f, chose %d", center, required, width))
	}

	if iv.Low > iv.High {
		issues = append(issues, diagnostics.Issue{
			Code:   diagnostics.IssueInvalidAdjustment,
			Detail: fmt.Sprintf("inverted interval %s swapped", iv),
		})
		iv.Low, iv.High = iv.High, iv.Low
	}

	shifted := shift(iv, floor, ceiling)
	if shifted != iv {
		trace = trace.Add("interval.shift", fmt.Sprintf("%s -> %s within [%d, %d]", iv, shifted, floor, ceiling))
	}
	trace = trace.Add("interval.result", shifted.String())

	return Result{Interval: shifted, Issues: issues, Trace: trace}
}

// #endregion build

// #region helpers
// requiredWidth is clamp(center*ratio, min, max) plus the tier-1 widening.
func requiredWidth(policy rules.IntervalPolicy, center float64, tier1 int) float64 {
	w := center * policy.WidthRatio
	w = math.Max(policy.MinWidth, math.Min(policy.MaxWidth, w))
	return w + policy.Tier1Widen*float64(tier1)
}

// narrowest returns the smallest candidate at least as wide as required,
// falling back to the widest candidate.
func narrowest(candidates []int, required float64) int {
	if len(candidates) == 0 {
		return int(math.Ceil(required))
	}
	for _, c := range candidates {
		if float64(c) >= required-1e-9 {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// shift moves the interval into [floor, ceiling] keeping its width where
// possible. When the bounds are narrower than the interval it becomes the bounds.
func shift(iv Interval, floor, ceiling int) Interval {
	width := iv.Width()
	if iv.Low < floor {
		iv.Low, iv.High = floor, floor+width
	}
	if iv.High > ceiling {
		iv.Low, iv.High = ceiling-width, ceiling
	}
	if iv.Low < floor {
		iv.Low = floor
	}
	if iv.Low > iv.High {
		iv.Low = iv.High
	}
	return iv
}

// #endregion helpers
