package base

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

// #region resolve
// Resolve is a pure function mapping a profile and metric to a base sentence.
// It never fails: out-of-table metrics clamp to the nearest band and are flagged.
func Resolve(p *rules.Profile, in Input) Result {
	var r Result
	switch p.Metric {
	case rules.MetricSeverity:
		r = resolveSeverity(p, in.Severity)
	default:
		r = resolveAmount(p, in.Amount)
	}
	return applyCountBonus(p, in.Count, r)
}

// #endregion resolve

// #region amount
func resolveAmount(p *rules.Profile, amount *float64) Result {
	first := p.Bands[0]
	if amount == nil {
		return Result{
			Sentence:  Scalar(p.DefaultBaseMonths),
			Statutory: first.Statutory,
			Issues: []diagnostics.Issue{{
				Code:   diagnostics.IssueMetricMissing,
				Detail: "no amount given, default base used",
			}},
			Trace: diagnostics.Trace{}.Add("base.default", fmtMonths(p.DefaultBaseMonths)),
		}
	}

	a := *amount
	var r Result

	// 1. Below the lowest band: lowest band's base, never an error
	if a < first.Lower {
		r.Sentence = bandValue(first, first.Lower)
		r.Band = first.Level
		r.Statutory = first.Statutory
		r.Issues = append(r.Issues, diagnostics.Issue{
			Code:   diagnostics.IssueAmountBelowTable,
			Detail: fmt.Sprintf("amount %.2f below lowest band %.0f", a, first.Lower),
		})
		r.Trace = r.Trace.Add("base.band."+first.Level, fmt.Sprintf("amount %.2f below table, clamped -> %s", a, fmtSentence(r.Sentence)))
		return r
	}

	// 2. Inside a band
	for _, b := range p.Bands {
		if b.Contains(a) {
			r.Sentence = bandValue(b, a)
			r.Band = b.Level
			r.Statutory = b.Statutory
			r.Trace = r.Trace.Add("base.band."+b.Level, fmt.Sprintf("amount %.2f in [%.0f, %.0f) %s -> %s", a, b.Lower, b.Upper, b.Mode, fmtSentence(r.Sentence)))
			return r
		}
	}

	// 3. Above the top band: clamp to its upper end
	top := p.Bands[len(p.Bands)-1]
	r.Sentence = bandValue(top, top.Upper)
	r.Band = top.Level
	r.Statutory = top.Statutory
	r.Issues = append(r.Issues, diagnostics.Issue{
		Code:   diagnostics.IssueAmountExceedsTable,
		Detail: fmt.Sprintf("amount %.2f at or above top band end %.0f", a, top.Upper),
	})
	r.Trace = r.Trace.Add("base.band."+top.Level, fmt.Sprintf("amount %.2f exceeds table, clamped -> %s", a, fmtSentence(r.Sentence)))
	return r
}

// bandValue computes months for a position inside (or at the edge of) a band.
func bandValue(b rules.Band, amount float64) Sentence {
	if b.BaseRange != nil {
		return Sentence{Low: b.BaseRange.Min, High: b.BaseRange.Max}
	}
	switch b.Mode {
	case rules.ModeLinear:
		pos := (amount - b.Lower) / (b.Upper - b.Lower)
		pos = math.Max(0, math.Min(1, pos))
		return Scalar(math.Round(b.BaseMonths + pos*(b.MaxMonths-b.BaseMonths)))
	case rules.ModeStepped:
		steps := math.Floor((amount - b.Lower) / b.Step)
		v := b.BaseMonths + math.Max(0, steps)*b.StepMonths
		return Scalar(math.Floor(math.Min(v, b.MaxMonths)))
	default:
		return Scalar(b.BaseMonths)
	}
}

// #endregion amount

// #region severity
func resolveSeverity(p *rules.Profile, severity string) Result {
	fallback := func(detail string) Result {
		return Result{
			Sentence:  Scalar(p.DefaultBaseMonths),
			Statutory: p.Levels[0].Statutory,
			Issues:    []diagnostics.Issue{{Code: diagnostics.IssueMetricMissing, Detail: detail}},
			Trace:     diagnostics.Trace{}.Add("base.default", fmtMonths(p.DefaultBaseMonths)),
		}
	}
	if severity == "" {
		return fallback("no severity given, default base used")
	}
	l, ok := p.LevelFor(severity)
	if !ok {
		return fallback(fmt.Sprintf("severity %q not in table, default base used", severity))
	}

	s := Scalar(l.BaseMonths)
	if l.BaseRange != nil {
		s = Sentence{Low: l.BaseRange.Min, High: l.BaseRange.Max}
	}
	return Result{
		Sentence:  s,
		Band:      l.ID,
		Statutory: l.Statutory,
		Trace:     diagnostics.Trace{}.Add("base.level."+l.ID, fmt.Sprintf("%s -> %s", l.Label, fmtSentence(s))),
	}
}

// #endregion severity

// #region count-bonus
// applyCountBonus adds the per-profile bonus for counts beyond the free allowance.
func applyCountBonus(p *rules.Profile, count *int, r Result) Result {
	cb := p.CountBonus
	if cb == nil || count == nil || *count <= cb.Free {
		return r
	}
	extra := *count - cb.Free

	switch cb.Mode {
	case "step":
		if cb.Step <= 0 {
			return r
		}
		bonus := float64(extra/cb.Step) * cb.Months
		if bonus == 0 {
			return r
		}
		r.Sentence = r.Sentence.Map(func(v float64) float64 { return v + bonus })
		r.Trace = r.Trace.Add("base.count_bonus", fmt.Sprintf("+%.2f months for count %d -> %s", bonus, *count, fmtSentence(r.Sentence)))
	case "percent":
		pct := math.Min(float64(extra)*cb.Percent, cb.MaxPercent)
		factor := 1 + pct/100
		r.Sentence = r.Sentence.Map(func(v float64) float64 { return math.Floor(v * factor) })
		r.Trace = r.Trace.Add("base.count_bonus", fmt.Sprintf("+%.0f%% for count %d -> %s", pct, *count, fmtSentence(r.Sentence)))
	}
	return r
}

// #endregion count-bonus

// #region helpers
func fmtMonths(v float64) string {
	return fmt.Sprintf("%.2f months", v)
}

func fmtSentence(s Sentence) string {
	if s.IsRange() {
		return fmt.Sprintf("[%.2f, %.2f] months", s.Low, s.High)
	}
	return fmtMonths(s.Low)
}

// #endregion helpers
