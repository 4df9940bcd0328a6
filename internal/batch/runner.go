package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/sentencing-engine/internal/codec"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
	"github.com/danielpatrickdp/sentencing-engine/internal/ledger"
	"github.com/danielpatrickdp/sentencing-engine/internal/logging"
)

// ErrNoExtractor is the case error when a record carries only fact text
// and no extraction service is configured.
var ErrNoExtractor = errors.New("record needs extraction but no extractor is configured")

// #region runner
// Runner predicts every record of a JSONL file. Per-case failures never
// stop the batch; they emit the fallback interval instead.
type Runner struct {
	engine    *engine.Engine
	parser    *labels.Parser
	fs        afero.Fs
	config    RunnerConfig
	retry     RetryPolicy
	extractor codec.Extractor
	store     *ledger.Store
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithExtractor sets the service used for records without labels.
func WithExtractor(x codec.Extractor) Option {
	return func(r *Runner) { r.extractor = x }
}

// WithLedger enables checkpointing, provenance rows and resume.
func WithLedger(s *ledger.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithLogger sets the batch logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner reading and writing through fs.
func NewRunner(e *engine.Engine, p *labels.Parser, fs afero.Fs, config RunnerConfig, opts ...Option) *Runner {
	if config.Workers < 1 {
		config.Workers = 1
	}
	r := &Runner{
		engine: e,
		parser: p,
		fs:     fs,
		config: config,
		retry: RetryPolicy{
			MaxRetries: config.Retries,
			BaseDelay:  config.BaseDelay,
			MaxDelay:   config.MaxDelay,
		},
		logger: zap.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// #endregion runner

// #region run
// Run reads inputPath, predicts every record and writes outputPath in input
// order. With resumeID set, cases checkpointed by that run are reused.
func (r *Runner) Run(ctx context.Context, inputPath, outputPath, resumeID string) (Summary, error) {
	cases, err := r.ReadCases(inputPath)
	if err != nil {
		return Summary{}, err
	}

	runID, done, err := r.openRun(inputPath, resumeID)
	if err != nil {
		return Summary{}, err
	}
	r.logger.Info("batch started",
		zap.String("run_id", runID),
		zap.String("input", inputPath),
		zap.Int("cases", len(cases)),
		zap.Int("checkpointed", len(done)),
		zap.Int("workers", r.config.Workers))

	results := r.Process(ctx, runID, cases, done)

	summary := Summary{RunID: runID, Total: len(results)}
	outputs := make([]Output, len(results))
	for i, res := range results {
		outputs[i] = res.Output
		if res.Fallback {
			summary.Failed++
		}
		if res.Resumed {
			summary.Resumed++
		}
	}

	if err := r.WriteOutputs(outputPath, outputs); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("batch %s interrupted: %w", runID, err)
	}
	if r.store != nil {
		if err := r.store.FinishRun(runID, summary.Total, summary.Failed); err != nil {
			return summary, err
		}
	}

	r.logger.Info("batch finished",
		zap.String("run_id", runID),
		zap.Int("total", summary.Total),
		zap.Int("failed", summary.Failed),
		zap.Int("resumed", summary.Resumed))
	return summary, nil
}

func (r *Runner) openRun(inputPath, resumeID string) (string, map[string]ledger.Prediction, error) {
	if r.store == nil {
		if resumeID != "" {
			return "", nil, fmt.Errorf("resume %s: no ledger configured", resumeID)
		}
		return "", nil, nil
	}
	if resumeID == "" {
		run, err := r.store.StartRun(inputPath, r.engine.Table().Version)
		if err != nil {
			return "", nil, err
		}
		return run.ID, nil, nil
	}
	run, err := r.store.ReopenRun(resumeID)
	if err != nil {
		return "", nil, err
	}
	done, err := r.store.Completed(run.ID)
	if err != nil {
		return "", nil, err
	}
	return run.ID, done, nil
}

// #endregion run

// #region process
// Process runs the cases on the worker pool. The result slice is indexed
// like cases regardless of completion order.
func (r *Runner) Process(ctx context.Context, runID string, cases []labels.Case, done map[string]ledger.Prediction) []CaseResult {
	results := make([]CaseResult, len(cases))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i, c := range cases {
		if p, ok := done[c.ID]; ok {
			res, err := resumed(i, c, p)
			if err == nil {
				results[i] = res
				continue
			}
			r.logger.Warn("checkpoint unreadable, predicting again",
				zap.String("case_id", c.ID), zap.Error(err))
		}
		g.Go(func() error {
			results[i] = r.processOne(gCtx, runID, i, c)
			return nil
		})
	}
	_ = g.Wait() // errors captured in CaseResult

	return results
}

func (r *Runner) processOne(ctx context.Context, runID string, index int, c labels.Case) CaseResult {
	res := CaseResult{Index: index, Case: c}

	if c.NeedsExtraction() {
		found, err := r.extract(ctx, c)
		if err != nil {
			return r.fallback(runID, res, err)
		}
		c.Labels = found
	}

	pred, err := r.engine.Predict(r.parser.Input(c))
	if err != nil {
		return r.fallback(runID, res, err)
	}

	res.Output = Output{
		ID:         c.ID,
		Answer1:    pred.Interval.Low,
		Answer2:    pred.Interval.High,
		Confidence: pred.Confidence,
		Trace:      pred.Trace,
	}
	r.checkpoint(runID, res, &pred)
	return res
}

func (r *Runner) fallback(runID string, res CaseResult, err error) CaseResult {
	r.logger.Warn("case failed, emitting fallback interval",
		zap.String("run_id", runID),
		zap.String("case_id", res.Case.ID),
		zap.Error(err))

	res.Fallback = true
	res.Err = err
	res.Output = Output{
		ID:      res.Case.ID,
		Answer1: r.config.Fallback.Low,
		Answer2: r.config.Fallback.High,
		Trace:   diagnostics.Trace{}.Add("fallback", err.Error()),
	}
	r.checkpoint(runID, res, nil)
	return res
}

// checkpoint is best effort: a ledger failure is logged and the case output
// is still written.
func (r *Runner) checkpoint(runID string, res CaseResult, pred *engine.Result) {
	if r.store == nil {
		return
	}
	trace, _ := json.Marshal(res.Output.Trace)
	p := ledger.Prediction{
		RunID:      runID,
		CaseID:     res.Case.ID,
		Seq:        res.Index,
		Low:        res.Output.Answer1,
		High:       res.Output.Answer2,
		Confidence: res.Output.Confidence,
		Fallback:   res.Fallback,
		TraceJSON:  string(trace),
	}
	if res.Err != nil {
		p.Error = res.Err.Error()
	}
	if err := r.store.SavePrediction(p); err != nil {
		r.logger.Warn("checkpoint failed", zap.String("case_id", res.Case.ID), zap.Error(err))
		return
	}
	if pred == nil {
		return
	}
	entry, err := logging.EntryFor(runID, *pred)
	if err == nil {
		err = logging.LogPrediction(r.store.DB(), entry)
	}
	if err != nil {
		r.logger.Warn("provenance failed", zap.String("case_id", res.Case.ID), zap.Error(err))
	}
}

func resumed(index int, c labels.Case, p ledger.Prediction) (CaseResult, error) {
	var trace diagnostics.Trace
	if p.TraceJSON != "" {
		if err := json.Unmarshal([]byte(p.TraceJSON), &trace); err != nil {
			return CaseResult{}, fmt.Errorf("decode trace of %s: %w", c.ID, err)
		}
	}
	return CaseResult{
		Index:   index,
		Case:    c,
		Resumed: true,
		Output: Output{
			ID:         c.ID,
			Answer1:    p.Low,
			Answer2:    p.High,
			Confidence: p.Confidence,
			Trace:      trace,
		},
	}, nil
}

// #endregion process

// #region extract
func (r *Runner) extract(ctx context.Context, c labels.Case) ([]string, error) {
	if r.extractor == nil {
		return nil, ErrNoExtractor
	}
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.config.ExtractTimeout)
		found, err := r.extractor.Extract(callCtx, c.ID, c.Fact)
		cancel()
		if err == nil {
			return found, nil
		}

		retry, delay := r.retry.ShouldRetry(attempt, err)
		if !retry || ctx.Err() != nil {
			return nil, fmt.Errorf("extract %s after %d attempts: %w", c.ID, attempt, err)
		}
		r.logger.Debug("extraction retry",
			zap.String("case_id", c.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("extract %s: %w", c.ID, err)
		}
	}
}

// #endregion extract

// #region io
// ReadCases parses the runner's JSONL input file.
func (r *Runner) ReadCases(path string) ([]labels.Case, error) {
	return ReadCases(r.fs, path)
}

// ReadCases parses a JSONL file. Blank lines are skipped; a record without an
// id gets its 1-based line number.
func ReadCases(fs afero.Fs, path string) ([]labels.Case, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var cases []labels.Case
	seen := make(map[string]int)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var c labels.Case
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if c.ID == "" {
			c.ID = strconv.Itoa(line)
		}
		if prev, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate id %q (first on line %d)", path, line, c.ID, prev)
		}
		seen[c.ID] = line
		cases = append(cases, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return cases, nil
}

// WriteOutputs writes one JSON object per line.
func (r *Runner) WriteOutputs(path string, outputs []Output) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, o := range outputs {
		if err := enc.Encode(o); err != nil {
			f.Close()
			return fmt.Errorf("write output %s: %w", o.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	return f.Close()
}

// #endregion io
