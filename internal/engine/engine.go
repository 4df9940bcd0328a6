package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentencing-engine/internal/adjust"
	"github.com/danielpatrickdp/sentencing-engine/internal/base"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
	"github.com/danielpatrickdp/sentencing-engine/internal/interval"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

// #region engine
// Engine runs the prediction pipeline against a shared rule table.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	table    *rules.Table
	reporter *diagnostics.Reporter
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for recoverable issues.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithReporterConfig overrides the confidence penalties.
func WithReporterConfig(cfg diagnostics.ReporterConfig) Option {
	return func(e *Engine) { e.reporter = diagnostics.NewReporter(cfg) }
}

// New creates an engine over the given table.
func New(table *rules.Table, opts ...Option) *Engine {
	e := &Engine{
		table:    table,
		reporter: diagnostics.NewReporter(diagnostics.DefaultReporterConfig()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the rule table the engine was built with.
func (e *Engine) Table() *rules.Table { return e.table }

// #endregion engine

// #region predict
// Predict runs lookup, base, tier 1, tier 2, interval and diagnostics in one
// pass. Only an unknown crime type is an error; everything else is reported
// in Result.Issues next to a best-effort interval.
func (e *Engine) Predict(in Input) (Result, error) {
	// 1. Rule table lookup
	p, regionIssues, err := e.table.ForRegion(in.CrimeType, in.Region)
	if err != nil {
		return Result{}, fmt.Errorf("predict %s: %w", in.CaseID, err)
	}
	where := "national thresholds"
	if p.Region != "" {
		where = "region " + p.Region
	}
	trace := diagnostics.Trace{}.Add("lookup."+p.ID, where)

	// 2. Base sentence
	b := base.Resolve(p, base.Input{Amount: in.Amount, Severity: in.Severity, Count: in.Count})
	b.Trace = append(trace, b.Trace...)
	b.Issues = append(append([]diagnostics.Issue(nil), regionIssues...), b.Issues...)

	// 3. Tier 1 and tier 2
	adj := adjust.Apply(p, adjust.Input{
		Base:          b,
		Circumstances: facts.NewSet(in.Circumstances...),
		CaseAmount:    in.Amount,
	})

	// 4. Interval
	iv := interval.Build(p.Interval, adj)

	// 5. Diagnostics
	issues := append(append([]diagnostics.Issue(nil), adj.Issues...), iv.Issues...)
	rep := e.reporter.Report(issues, iv.Trace)

	for _, is := range rep.Issues {
		switch is.Code {
		case diagnostics.IssueInvalidAdjustment, diagnostics.IssueUnsupportedRegion:
			e.logger.Warn("recoverable issue",
				zap.String("case_id", in.CaseID),
				zap.String("code", string(is.Code)),
				zap.String("detail", is.Detail))
		}
	}
	e.logger.Debug("prediction",
		zap.String("case_id", in.CaseID),
		zap.String("crime_type", p.ID),
		zap.String("interval", iv.Interval.String()),
		zap.Float64("confidence", rep.Confidence))

	return Result{
		CaseID:     in.CaseID,
		CrimeType:  p.ID,
		Region:     p.Region,
		Band:       b.Band,
		Base:       b.Sentence,
		Adjusted:   adj.Sentence,
		Interval:   iv.Interval,
		Confidence: rep.Confidence,
		Checks:     rep.Checks,
		Issues:     rep.Issues,
		Trace:      rep.Trace,
	}, nil
}

// #endregion predict
