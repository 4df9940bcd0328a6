package interval

import (
	"encoding/json"
	"testing"

	"github.com/danielpatrickdp/sentencing-engine/internal/adjust"
	"github.com/danielpatrickdp/sentencing-engine/internal/base"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

func policy() rules.IntervalPolicy {
	return rules.IntervalPolicy{
		WidthRatio: 0.15,
		MinWidth:   6,
		MaxWidth:   12,
		Candidates: []int{6, 8, 10, 12},
		Tier1Widen: 2,
	}
}

func scalar(center, floor, ceiling float64) adjust.Result {
	return adjust.Result{Sentence: base.Scalar(center), Floor: floor, Ceiling: ceiling}
}

func TestBuildScalarWidths(t *testing.T) {
	cases := []struct {
		name   string
		adj    adjust.Result
		expect Interval
	}{
		{"floor shift", scalar(6, 6, 180), Interval{6, 12}},
		{"minimum width", scalar(40, 36, 120), Interval{37, 43}},
		{"ratio picks 10", scalar(60, 36, 120), Interval{55, 65}},
		{"max width", scalar(100, 36, 180), Interval{94, 106}},
		{"ceiling shift", scalar(178, 120, 180), Interval{168, 180}},
		{"bounds narrower than width", scalar(7, 6, 8), Interval{6, 8}},
		{"fractional center", scalar(5.25, 1, 180), Interval{2, 8}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Build(policy(), tc.adj)
			if r.Interval != tc.expect {
				t.Fatalf("expected %s, got %s", tc.expect, r.Interval)
			}
			if r.Interval.Low > r.Interval.High || r.Interval.Low < 0 {
				t.Fatalf("invalid interval %s", r.Interval)
			}
			if len(r.Issues) != 0 {
				t.Fatalf("unexpected issues %v", r.Issues)
			}
		})
	}
}

func TestTier1CircumstancesWiden(t *testing.T) {
	adj := scalar(20, 6, 180)
	adj.Tier1Applied = []facts.Tag{facts.Attempt}

	r := Build(policy(), adj)

	if r.Interval != (Interval{16, 24}) {
		t.Fatalf("expected [16, 24], got %s", r.Interval)
	}
}

func TestWidestCandidateWhenRequiredTooLarge(t *testing.T) {
	adj := scalar(100, 6, 180)
	adj.Tier1Applied = []facts.Tag{facts.Attempt, facts.Accessory}

	r := Build(policy(), adj)

	if r.Interval.Width() != 12 {
		t.Fatalf("expected widest candidate 12, got %d", r.Interval.Width())
	}
}

func TestRangeUsedDirectly(t *testing.T) {
	adj := adjust.Result{Sentence: base.Sentence{Low: 18.4, High: 27.6}, Floor: 6, Ceiling: 180}

	r := Build(policy(), adj)

	if r.Interval != (Interval{18, 28}) {
		t.Fatalf("expected [18, 28], got %s", r.Interval)
	}
}

func TestInvertedRangeIsSwappedAndFlagged(t *testing.T) {
	adj := adjust.Result{Sentence: base.Sentence{Low: 30, High: 20}, Floor: 6, Ceiling: 180}

	r := Build(policy(), adj)

	if r.Interval != (Interval{20, 30}) {
		t.Fatalf("expected [20, 30], got %s", r.Interval)
	}
	if len(r.Issues) != 1 || r.Issues[0].Code != diagnostics.IssueInvalidAdjustment {
		t.Fatalf("expected invalid_adjustment, got %v", r.Issues)
	}
}

func TestTraceEndsWithResult(t *testing.T) {
	adj := scalar(6, 6, 180)
	adj.Trace = diagnostics.Trace{}.Add("clamp.floor", "4.55 -> 6.00")

	r := Build(policy(), adj)

	if r.Trace[0].RuleID != "clamp.floor" {
		t.Fatalf("upstream trace lost: %v", r.Trace)
	}
	last := r.Trace[len(r.Trace)-1]
	if last.RuleID != "interval.result" || last.Effect != "[6, 12]" {
		t.Fatalf("unexpected final entry %+v", last)
	}
}

func TestIntervalJSON(t *testing.T) {
	data, err := json.Marshal(Interval{6, 12})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[6,12]" {
		t.Fatalf("unexpected encoding %s", data)
	}
	var iv Interval
	if err := json.Unmarshal([]byte("[3, 9]"), &iv); err != nil {
		t.Fatal(err)
	}
	if iv != (Interval{3, 9}) {
		t.Fatalf("unexpected decode %s", iv)
	}
}
