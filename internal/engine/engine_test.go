package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
	"github.com/danielpatrickdp/sentencing-engine/internal/interval"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	tbl, err := rules.Default()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	return New(tbl, WithLogger(zap.NewNop()))
}

// sampleTheft is the documented theft case: 3320 yuan, confession,
// partial restitution, forgiveness, plea.
func sampleTheft() Input {
	return Input{
		CaseID:    "sample",
		CrimeType: "theft",
		Amount:    facts.Float(3320),
		Circumstances: []facts.Circumstance{
			{Tag: facts.TruthfulConfession},
			{Tag: facts.Restitution, Amount: facts.Float(2800)},
			{Tag: facts.VictimForgiveness},
			{Tag: facts.PleaAndAcceptance},
		},
	}
}

func ruleIDs(tr diagnostics.Trace) []string {
	out := make([]string, len(tr))
	for i, e := range tr {
		out[i] = e.RuleID
	}
	return out
}

func TestPredictSampleTheft(t *testing.T) {
	e := newEngine(t)

	r, err := e.Predict(sampleTheft())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	if r.Interval != (interval.Interval{Low: 6, High: 12}) {
		t.Fatalf("expected [6, 12], got %s", r.Interval)
	}
	if r.Confidence <= 0.8 {
		t.Fatalf("expected confidence > 0.8, got %f", r.Confidence)
	}
	want := []string{
		"lookup.theft",
		"base.band.large",
		"tier2.truthful_confession",
		"tier2.plea_and_acceptance",
		"tier2.restitution",
		"tier2.victim_forgiveness",
		"tier2.result",
		"clamp.floor",
		"interval.width",
		"interval.shift",
		"interval.result",
	}
	if diff := cmp.Diff(want, ruleIDs(r.Trace)); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if !r.HasIssue(diagnostics.IssueClampFloor) {
		t.Fatal("expected the floor clamp to be reported")
	}
}

func TestPredictUnknownCrimeType(t *testing.T) {
	e := newEngine(t)
	in := sampleTheft()
	in.CrimeType = "arson"

	r, err := e.Predict(in)
	if !errors.Is(err, rules.ErrUnknownCrimeType) {
		t.Fatalf("expected ErrUnknownCrimeType, got %v", err)
	}
	if diff := cmp.Diff(Result{}, r); diff != "" {
		t.Fatalf("expected no partial result:\n%s", diff)
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	e := newEngine(t)
	in := sampleTheft()
	in.Circumstances = append(in.Circumstances, facts.Circumstance{Tag: facts.Tag("夜间作案")})

	first, err := e.Predict(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := e.Predict(in)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
}

func TestPredictConcurrentMatchesSequential(t *testing.T) {
	e := newEngine(t)
	want, _ := e.Predict(sampleTheft())

	var wg sync.WaitGroup
	results := make([]Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.Predict(sampleTheft())
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("goroutine %d differs:\n%s", i, diff)
		}
	}
}

func TestPredictUnsupportedRegionFallsBack(t *testing.T) {
	e := newEngine(t)
	in := sampleTheft()
	in.Region = "火星基地"

	r, err := e.Predict(in)
	if err != nil {
		t.Fatal(err)
	}
	if !r.HasIssue(diagnostics.IssueUnsupportedRegion) {
		t.Fatal("expected unsupported_region")
	}
	if r.Interval != (interval.Interval{Low: 6, High: 12}) {
		t.Fatalf("national fallback should match the sample, got %s", r.Interval)
	}
	if r.Confidence >= 0.85 {
		t.Fatalf("region fallback should lower confidence, got %f", r.Confidence)
	}
}

func TestPredictRegionalThresholds(t *testing.T) {
	e := newEngine(t)
	in := Input{CrimeType: "盗窃罪", Region: "上海市", Amount: facts.Float(3320)}

	r, err := e.Predict(in)
	if err != nil {
		t.Fatal(err)
	}
	if r.Region != "上海" {
		t.Fatalf("expected 上海, got %q", r.Region)
	}
	if !r.HasIssue(diagnostics.IssueAmountBelowTable) {
		t.Fatal("3320 is below the Shanghai threshold")
	}
}

func TestPredictInjuryWithExcessiveDefense(t *testing.T) {
	e := newEngine(t)
	in := Input{
		CrimeType:     "intentional_injury",
		Severity:      "轻伤二级",
		Circumstances: []facts.Circumstance{{Tag: facts.ExcessiveDefense}},
	}

	r, err := e.Predict(in)
	if err != nil {
		t.Fatal(err)
	}
	if r.Adjusted.Low != 7.5 {
		t.Fatalf("expected 15 x 0.5 = 7.5, got %+v", r.Adjusted)
	}
	if r.Interval != (interval.Interval{Low: 4, High: 12}) {
		t.Fatalf("expected widened [4, 12], got %s", r.Interval)
	}
}

func TestPredictInvariantsHoldAcrossGrid(t *testing.T) {
	e := newEngine(t)
	amounts := []float64{0, 999, 1000, 3000, 29999.99, 30000, 299999, 300000, 5e6, 1e9}
	tagSets := [][]facts.Tag{
		nil,
		{facts.Recidivism, facts.Burglary, facts.Armed, facts.Principal},
		{facts.MinorOffender, facts.Attempt, facts.VoluntarySurrender, facts.MajorMeritoriousService},
		{facts.Accessory, facts.TruthfulConfession, facts.Restitution, facts.VictimForgiveness, facts.PleaAndAcceptance},
		{facts.Tag("bogus"), facts.CruelMeans},
	}

	for _, crime := range []string{"theft", "fraud", "embezzlement"} {
		for _, a := range amounts {
			for _, tags := range tagSets {
				var cs []facts.Circumstance
				for _, tag := range tags {
					cs = append(cs, facts.Circumstance{Tag: tag})
				}
				r, err := e.Predict(Input{CrimeType: crime, Amount: facts.Float(a), Circumstances: cs})
				if err != nil {
					t.Fatalf("%s %.2f: %v", crime, a, err)
				}
				iv := r.Interval
				if iv.Low < 1 || iv.Low > iv.High || iv.High > 180 {
					t.Errorf("%s %.2f %v: invalid interval %s", crime, a, tags, iv)
				}
				if r.Confidence < 0 || r.Confidence > 1 {
					t.Errorf("%s %.2f %v: confidence %f", crime, a, tags, r.Confidence)
				}
			}
		}
	}
}

func TestOutputContract(t *testing.T) {
	e := newEngine(t)
	r, err := e.Predict(sampleTheft())
	if err != nil {
		t.Fatal(err)
	}

	out := r.Output()
	if out.Interval != r.Interval || out.Confidence != r.Confidence || len(out.Trace) != len(r.Trace) {
		t.Fatalf("output does not mirror result: %+v", out)
	}
}
