package replay

import (
	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
	"github.com/danielpatrickdp/sentencing-engine/internal/interval"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
)

// #region types
// Result captures the outcome of replaying one case.
type Result struct {
	ID         string
	Expected   interval.Interval
	Got        interval.Interval
	Confidence float64
	Match      bool
	Truth      *float64
	Covered    bool    // truth inside Got
	Winkler    float64 // zero without truth
	Err        error
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total       int
	Matches     int
	Mismatches  int
	Errors      int
	WithTruth   int
	Covered     int
	Coverage    float64 // Covered / WithTruth
	MeanWinkler float64 // over cases with truth
	MeanWidth   float64 // over cases without errors
}

// #endregion types

// #region replay
// Replay runs every case through the engine and compares the interval with
// the recorded one. Engine errors are kept per case; they never abort.
func Replay(e *engine.Engine, cases []Case, alpha float64) []Result {
	parser := labels.NewParser(labels.DefaultParserConfig())
	results := make([]Result, 0, len(cases))

	for _, c := range cases {
		r := Result{ID: c.ID, Expected: c.Expected, Truth: c.Truth}
		in := c.Input
		if in.ID == "" {
			in.ID = c.ID
		}
		pred, err := e.Predict(parser.Input(in))
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}
		r.Got = pred.Interval
		r.Confidence = pred.Confidence
		r.Match = r.Got == c.Expected
		if c.Truth != nil {
			r.Covered = r.Got.Contains(*c.Truth)
			r.Winkler = Winkler(r.Got, *c.Truth, alpha)
		}
		results = append(results, r)
	}
	return results
}

// Winkler is the interval score: the width plus 2/alpha times the distance
// by which truth falls outside the interval.
func Winkler(iv interval.Interval, truth, alpha float64) float64 {
	lo, hi := float64(iv.Low), float64(iv.High)
	score := hi - lo
	switch {
	case truth < lo:
		score += 2 / alpha * (lo - truth)
	case truth > hi:
		score += 2 / alpha * (truth - hi)
	}
	return score
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	var winkler, width float64
	for _, r := range results {
		if r.Err != nil {
			s.Errors++
			s.Mismatches++
			continue
		}
		if r.Match {
			s.Matches++
		} else {
			s.Mismatches++
		}
		width += float64(r.Got.Width())
		if r.Truth != nil {
			s.WithTruth++
			winkler += r.Winkler
			if r.Covered {
				s.Covered++
			}
		}
	}
	if n := s.Total - s.Errors; n > 0 {
		s.MeanWidth = width / float64(n)
	}
	if s.WithTruth > 0 {
		s.Coverage = float64(s.Covered) / float64(s.WithTruth)
		s.MeanWinkler = winkler / float64(s.WithTruth)
	}
	return s
}

// #endregion replay
