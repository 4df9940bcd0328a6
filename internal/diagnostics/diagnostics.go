package diagnostics

import "math"

// #region reporter
// Reporter turns the issues gathered during a prediction into a confidence score.
type Reporter struct {
	config ReporterConfig
}

// NewReporter creates a reporter with the given penalties.
func NewReporter(config ReporterConfig) *Reporter {
	return &Reporter{config: config}
}

// Report scores the prediction. It only observes; the interval is never touched.
func (r *Reporter) Report(issues []Issue, trace Trace) Report {
	var checks []Check
	counts := make(map[IssueCode]int)
	for _, is := range issues {
		counts[is.Code]++
	}

	// 1. Metric position relative to the band table
	if counts[IssueAmountExceedsTable] > 0 {
		checks = append(checks, Check{Name: string(IssueAmountExceedsTable), Penalty: r.config.ExceedsTable})
	}
	if counts[IssueAmountBelowTable] > 0 {
		checks = append(checks, Check{Name: string(IssueAmountBelowTable), Penalty: r.config.BelowTable})
	}
	if counts[IssueMetricMissing] > 0 {
		checks = append(checks, Check{Name: string(IssueMetricMissing), Penalty: r.config.MetricMissing})
	}

	// 2. Dropped tags, capped
	if n := counts[IssueUnknownTag]; n > 0 {
		p := math.Min(float64(n)*r.config.UnknownTag, r.config.UnknownTagCap)
		checks = append(checks, Check{Name: string(IssueUnknownTag), Penalty: p})
	}

	// 3. Tier-2 clamps count once regardless of direction
	if counts[IssueClampFloor]+counts[IssueClampCeiling] > 0 {
		checks = append(checks, Check{Name: "tier2_clamp", Penalty: r.config.Tier2Clamp})
	}

	// 4. Region fallback
	if counts[IssueUnsupportedRegion] > 0 {
		checks = append(checks, Check{Name: string(IssueUnsupportedRegion), Penalty: r.config.UnsupportedRegion})
	}

	// 5. Arithmetic that had to be repaired
	if counts[IssueInvalidAdjustment] > 0 {
		checks = append(checks, Check{Name: string(IssueInvalidAdjustment), Penalty: r.config.InvalidAdjustment})
	}

	confidence := 1.0
	for _, c := range checks {
		confidence -= c.Penalty
	}
	confidence = math.Round(clamp01(confidence)*1000) / 1000

	return Report{
		Confidence: confidence,
		Checks:     checks,
		Issues:     append([]Issue(nil), issues...),
		Trace:      append(Trace(nil), trace...),
	}
}

// #endregion reporter

// #region helpers
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
