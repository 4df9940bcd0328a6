package base

import (
	"testing"

	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

func profile(t *testing.T, crime, region string) *rules.Profile {
	t.Helper()
	tbl, err := rules.Default()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	p, _, err := tbl.ForRegion(crime, region)
	if err != nil {
		t.Fatalf("profile %s: %v", crime, err)
	}
	return p
}

func hasIssue(issues []diagnostics.Issue, code diagnostics.IssueCode) bool {
	for _, is := range issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

func TestTheftStepsWithinLargeBand(t *testing.T) {
	p := profile(t, "theft", "")
	r := Resolve(p, Input{Amount: facts.Float(3320)})

	if r.Sentence != Scalar(7) {
		t.Fatalf("expected 7 months, got %+v", r.Sentence)
	}
	if r.Band != "large" {
		t.Fatalf("expected large band, got %s", r.Band)
	}
	if r.Statutory.Min != 6 || r.Statutory.Max != 36 {
		t.Fatalf("unexpected statutory range %+v", r.Statutory)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("unexpected issues %v", r.Issues)
	}
	if len(r.Trace) != 1 || r.Trace[0].RuleID != "base.band.large" {
		t.Fatalf("unexpected trace %v", r.Trace)
	}
}

func TestBandBoundaryGoesToUpperBand(t *testing.T) {
	// 广东 starts 数额较大 at 3000.
	gd := profile(t, "theft", "广东")

	at := Resolve(gd, Input{Amount: facts.Float(3000)})
	if at.Band != "large" || hasIssue(at.Issues, diagnostics.IssueAmountBelowTable) {
		t.Fatalf("3000 should open the large band, got %s %v", at.Band, at.Issues)
	}
	below := Resolve(gd, Input{Amount: facts.Float(2999.99)})
	if !hasIssue(below.Issues, diagnostics.IssueAmountBelowTable) {
		t.Fatalf("2999.99 should be below the table, got %v", below.Issues)
	}

	national := profile(t, "theft", "")
	for i := 0; i < 3; i++ {
		r := Resolve(national, Input{Amount: facts.Float(30000)})
		if r.Band != "huge" || r.Sentence != Scalar(36) {
			t.Fatalf("30000 should resolve to huge/36, got %s %+v", r.Band, r.Sentence)
		}
	}
}

func TestBelowTableClampsToLowestBase(t *testing.T) {
	p := profile(t, "theft", "")
	r := Resolve(p, Input{Amount: facts.Float(500)})

	if r.Sentence != Scalar(6) {
		t.Fatalf("expected lowest base 6, got %+v", r.Sentence)
	}
	if !hasIssue(r.Issues, diagnostics.IssueAmountBelowTable) {
		t.Fatal("expected amount_below_table")
	}
}

func TestAboveTableClampsToTopBand(t *testing.T) {
	p := profile(t, "theft", "")
	r := Resolve(p, Input{Amount: facts.Float(50_000_000)})

	if r.Sentence != Scalar(180) {
		t.Fatalf("expected 180, got %+v", r.Sentence)
	}
	if r.Band != "especially_huge" {
		t.Fatalf("expected top band, got %s", r.Band)
	}
	if !hasIssue(r.Issues, diagnostics.IssueAmountExceedsTable) {
		t.Fatal("expected amount_exceeds_table")
	}
}

func TestMissingAmountUsesDefault(t *testing.T) {
	p := profile(t, "theft", "")
	r := Resolve(p, Input{})

	if r.Sentence != Scalar(12) {
		t.Fatalf("expected default 12, got %+v", r.Sentence)
	}
	if !hasIssue(r.Issues, diagnostics.IssueMetricMissing) {
		t.Fatal("expected metric_missing")
	}
}

func TestFraudInterpolatesLinearly(t *testing.T) {
	p := profile(t, "fraud", "")

	cases := []struct {
		amount float64
		want   float64
	}{
		{3000, 6},
		{16500, 21},
		{30000, 36},
		{265000, 78},
		{750000, 140},
	}
	for _, tc := range cases {
		r := Resolve(p, Input{Amount: facts.Float(tc.amount)})
		if r.Sentence != Scalar(tc.want) {
			t.Errorf("fraud %.0f: got %+v, want %.0f", tc.amount, r.Sentence, tc.want)
		}
	}
}

func TestTheftCountBonus(t *testing.T) {
	p := profile(t, "theft", "")

	r := Resolve(p, Input{Amount: facts.Float(3320), Count: facts.Int(6)})
	if r.Sentence != Scalar(8) {
		t.Fatalf("expected 7 + 1, got %+v", r.Sentence)
	}
	if r.Trace[len(r.Trace)-1].RuleID != "base.count_bonus" {
		t.Fatalf("count bonus not traced: %v", r.Trace)
	}

	r = Resolve(p, Input{Amount: facts.Float(3320), Count: facts.Int(3)})
	if r.Sentence != Scalar(7) {
		t.Fatalf("three thefts carry no bonus, got %+v", r.Sentence)
	}
}

func TestInjurySeverityAndVictims(t *testing.T) {
	p := profile(t, "intentional_injury", "")

	r := Resolve(p, Input{Severity: "重伤二级"})
	if r.Sentence != Scalar(48) || r.Band != "serious_2" {
		t.Fatalf("expected serious_2/48, got %s %+v", r.Band, r.Sentence)
	}

	r = Resolve(p, Input{Severity: "serious_2", Count: facts.Int(3)})
	if r.Sentence != Scalar(96) {
		t.Fatalf("two extra victims double the base, got %+v", r.Sentence)
	}

	r = Resolve(p, Input{Severity: "轻伤", Count: facts.Int(10)})
	if r.Sentence != Scalar(45) {
		t.Fatalf("victim bonus caps at +200%%, got %+v", r.Sentence)
	}
}

func TestUnknownSeverityDefaults(t *testing.T) {
	p := profile(t, "intentional_injury", "")
	r := Resolve(p, Input{Severity: "擦伤"})

	if r.Sentence != Scalar(12) {
		t.Fatalf("expected default 12, got %+v", r.Sentence)
	}
	if !hasIssue(r.Issues, diagnostics.IssueMetricMissing) {
		t.Fatal("expected metric_missing")
	}
}

func TestBaseRangeBand(t *testing.T) {
	p := &rules.Profile{
		ID:     "custom",
		Metric: rules.MetricAmount,
		Bands: []rules.Band{{
			Level:     "only",
			Mode:      rules.ModeFixed,
			BaseRange: &rules.Range{Min: 10, Max: 14},
			Lower:     100,
			Upper:     200,
			Statutory: rules.Range{Min: 6, Max: 36},
		}},
	}

	r := Resolve(p, Input{Amount: facts.Float(150)})
	if !r.Sentence.IsRange() || r.Sentence.Low != 10 || r.Sentence.High != 14 {
		t.Fatalf("expected [10, 14], got %+v", r.Sentence)
	}
}
