package adjust

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/sentencing-engine/internal/base"
	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

// testProfile has wide statutory bounds so arithmetic is observable unclamped.
func testProfile() *rules.Profile {
	full := -20.0
	return &rules.Profile{
		ID:          "test",
		Metric:      rules.MetricAmount,
		MaxMonths:   180,
		FloorMonths: 1,
		Tier1: []rules.Tier1Rule{
			{Tag: facts.MinorOffender, Factor: 0.7},
			{Tag: facts.CoercedParticipant, Factor: 0.8},
			{Tag: facts.Attempt, Factor: 0.56},
		},
		Tier2: []rules.Tier2Rule{
			{Tag: facts.TruthfulConfession, Percent: -10},
			{Tag: facts.Restitution, Percent: -10, FullPercent: &full},
			{Tag: facts.VictimForgiveness, Percent: -60},
			{Tag: facts.PleaAndAcceptance, Percent: -60},
			{Tag: facts.PriorRecord, Months: 3},
			{Tag: facts.MajorMeritoriousService, Percent: -50, Compound: true},
		},
	}
}

func baseOf(months float64) base.Result {
	return base.Result{
		Sentence:  base.Scalar(months),
		Statutory: rules.Range{Min: 0, Max: 180},
	}
}

func defaultProfile(t *testing.T, crime string) *rules.Profile {
	t.Helper()
	tbl, err := rules.Default()
	if err != nil {
		t.Fatal(err)
	}
	p, err := tbl.Lookup(crime)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func issueCodes(issues []diagnostics.Issue) []diagnostics.IssueCode {
	var out []diagnostics.IssueCode
	for _, is := range issues {
		out = append(out, is.Code)
	}
	return out
}

func TestTier1ChainIsProduct(t *testing.T) {
	p := testProfile()

	chained := Apply(p, Input{Base: baseOf(100), Circumstances: facts.Tags(facts.MinorOffender, facts.CoercedParticipant)})
	single := Apply(p, Input{Base: baseOf(100), Circumstances: facts.Tags(facts.Attempt)})

	if !approx(chained.Sentence.Low, 56) {
		t.Fatalf("expected 56, got %f", chained.Sentence.Low)
	}
	if chained.Sentence != single.Sentence {
		t.Fatalf("x0.7 x0.8 should equal x0.56: %+v vs %+v", chained.Sentence, single.Sentence)
	}
	if !approx(chained.Tier1Factor, 0.56) {
		t.Fatalf("expected factor 0.56, got %f", chained.Tier1Factor)
	}
}

func TestNoTier1IsIdentity(t *testing.T) {
	p := testProfile()
	r := Apply(p, Input{Base: baseOf(42)})

	if r.Sentence != base.Scalar(42) || r.Tier1Factor != 1 {
		t.Fatalf("expected identity, got %+v factor %f", r.Sentence, r.Tier1Factor)
	}
	if len(r.Trace) != 0 {
		t.Fatalf("expected empty trace, got %v", r.Trace)
	}
}

func TestTier2SumsBeforeApplying(t *testing.T) {
	p := testProfile()
	r := Apply(p, Input{Base: baseOf(100), Circumstances: facts.Tags(facts.TruthfulConfession, facts.Restitution)})

	if !approx(r.Sentence.Low, 80) {
		t.Fatalf("expected 80 (summed), got %f", r.Sentence.Low)
	}
	if r.Tier2Percent != -20 {
		t.Fatalf("expected -20%%, got %f", r.Tier2Percent)
	}
}

func TestTier2FixedMonths(t *testing.T) {
	p := testProfile()
	r := Apply(p, Input{Base: baseOf(100), Circumstances: facts.Tags(facts.TruthfulConfession, facts.PriorRecord)})

	if !approx(r.Sentence.Low, 93) {
		t.Fatalf("expected 100*0.9+3 = 93, got %f", r.Sentence.Low)
	}
}

func TestCompoundingRuleAppliesAfterSum(t *testing.T) {
	p := testProfile()
	r := Apply(p, Input{Base: baseOf(100), Circumstances: facts.Tags(facts.TruthfulConfession, facts.MajorMeritoriousService)})

	if !approx(r.Sentence.Low, 45) {
		t.Fatalf("expected 100*0.9*0.5 = 45, got %f", r.Sentence.Low)
	}
	if r.Tier2Percent != -10 {
		t.Fatalf("compounding rule must stay out of the sum, got %f", r.Tier2Percent)
	}
}

func TestTier2AfterTier1(t *testing.T) {
	p := testProfile()
	r := Apply(p, Input{Base: baseOf(100), Circumstances: facts.Tags(facts.MinorOffender, facts.TruthfulConfession)})

	if !approx(r.Sentence.Low, 63) {
		t.Fatalf("expected 100*0.7*0.9 = 63, got %f", r.Sentence.Low)
	}
}

func TestFloorClampIsFlagged(t *testing.T) {
	p := defaultProfile(t, "theft")
	in := Input{
		Base: base.Result{Sentence: base.Scalar(7), Statutory: rules.Range{Min: 6, Max: 36}},
		Circumstances: facts.NewSet(
			facts.Circumstance{Tag: facts.TruthfulConfession},
			facts.Circumstance{Tag: facts.Restitution, Amount: facts.Float(2800)},
			facts.Circumstance{Tag: facts.VictimForgiveness},
			facts.Circumstance{Tag: facts.PleaAndAcceptance},
		),
		CaseAmount: facts.Float(3320),
	}

	r := Apply(p, in)

	if r.Sentence != base.Scalar(6) {
		t.Fatalf("expected floor 6, got %+v", r.Sentence)
	}
	if diff := cmp.Diff([]diagnostics.IssueCode{diagnostics.IssueClampFloor}, issueCodes(r.Issues)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	last := r.Trace[len(r.Trace)-1]
	if last.RuleID != "clamp.floor" {
		t.Fatalf("expected clamp.floor last in trace, got %v", r.Trace)
	}
	for _, tag := range []facts.Tag{facts.TruthfulConfession, facts.Restitution, facts.VictimForgiveness, facts.PleaAndAcceptance} {
		found := false
		for _, e := range r.Trace {
			if e.RuleID == "tier2."+string(tag) {
				found = true
			}
		}
		if !found {
			t.Errorf("trace missing %s", tag)
		}
	}
}

func TestReductionPermittedLowersFloor(t *testing.T) {
	p := defaultProfile(t, "theft")
	in := Input{
		Base:          base.Result{Sentence: base.Scalar(7), Statutory: rules.Range{Min: 6, Max: 36}},
		Circumstances: facts.Tags(facts.VoluntarySurrender),
	}

	r := Apply(p, in)

	if !approx(r.Sentence.Low, 5.25) {
		t.Fatalf("expected 5.25, got %f", r.Sentence.Low)
	}
	if !r.ReductionPermitted || r.Floor != 1 {
		t.Fatalf("expected floor 1 with reduction, got %f", r.Floor)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("unexpected issues %v", r.Issues)
	}
}

func TestCeilingClamp(t *testing.T) {
	p := defaultProfile(t, "theft")
	in := Input{
		Base:          base.Result{Sentence: base.Scalar(180), Statutory: rules.Range{Min: 120, Max: 180}},
		Circumstances: facts.Tags(facts.Recidivism),
	}

	r := Apply(p, in)

	if r.Sentence != base.Scalar(180) {
		t.Fatalf("expected ceiling 180, got %+v", r.Sentence)
	}
	if diff := cmp.Diff([]diagnostics.IssueCode{diagnostics.IssueClampCeiling}, issueCodes(r.Issues)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownTagsAreIgnoredAndFlagged(t *testing.T) {
	p := defaultProfile(t, "theft")
	set := facts.NewSet(
		facts.Circumstance{Tag: facts.ExcessiveDefense},
		facts.Circumstance{Tag: facts.Tag("夜间作案")},
	)

	r := Apply(p, Input{Base: base.Result{Sentence: base.Scalar(10), Statutory: rules.Range{Min: 6, Max: 36}}, Circumstances: set})

	if r.Sentence != base.Scalar(10) {
		t.Fatalf("ignored tags must not change the sentence, got %+v", r.Sentence)
	}
	if len(r.Ignored) != 2 {
		t.Fatalf("expected 2 ignored tags, got %v", r.Ignored)
	}
	want := []diagnostics.IssueCode{diagnostics.IssueUnknownTag, diagnostics.IssueUnknownTag}
	if diff := cmp.Diff(want, issueCodes(r.Issues)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestRunawayTier2IsInvalidAdjustment(t *testing.T) {
	p := testProfile()
	r := Apply(p, Input{
		Base:          base.Result{Sentence: base.Scalar(50), Statutory: rules.Range{Min: 6, Max: 180}},
		Circumstances: facts.Tags(facts.VictimForgiveness, facts.PleaAndAcceptance),
	})

	codes := issueCodes(r.Issues)
	if len(codes) == 0 || codes[0] != diagnostics.IssueInvalidAdjustment {
		t.Fatalf("expected invalid_adjustment first, got %v", codes)
	}
	if r.Sentence != base.Scalar(6) {
		t.Fatalf("expected clamp to floor 6, got %+v", r.Sentence)
	}
}

func TestFullRestitutionUsesFullPercent(t *testing.T) {
	p := testProfile()

	partial := Apply(p, Input{
		Base:          baseOf(100),
		Circumstances: facts.NewSet(facts.Circumstance{Tag: facts.Restitution, Amount: facts.Float(2800)}),
		CaseAmount:    facts.Float(3320),
	})
	whole := Apply(p, Input{
		Base:          baseOf(100),
		Circumstances: facts.NewSet(facts.Circumstance{Tag: facts.Restitution, Amount: facts.Float(3320)}),
		CaseAmount:    facts.Float(3320),
	})
	flagged := Apply(p, Input{
		Base:          baseOf(100),
		Circumstances: facts.NewSet(facts.Circumstance{Tag: facts.Restitution, Full: true}),
	})

	if !approx(partial.Sentence.Low, 90) {
		t.Errorf("partial restitution: expected 90, got %f", partial.Sentence.Low)
	}
	if !approx(whole.Sentence.Low, 80) {
		t.Errorf("full restitution: expected 80, got %f", whole.Sentence.Low)
	}
	if !approx(flagged.Sentence.Low, 80) {
		t.Errorf("flagged restitution: expected 80, got %f", flagged.Sentence.Low)
	}
}

func TestRangeAdjustsBothEnds(t *testing.T) {
	p := testProfile()
	in := Input{
		Base:          base.Result{Sentence: base.Sentence{Low: 20, High: 30}, Statutory: rules.Range{Min: 0, Max: 180}},
		Circumstances: facts.Tags(facts.TruthfulConfession),
	}

	r := Apply(p, in)

	if !approx(r.Sentence.Low, 18) || !approx(r.Sentence.High, 27) {
		t.Fatalf("expected [18, 27], got %+v", r.Sentence)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	p := defaultProfile(t, "theft")
	in := Input{
		Base:          base.Result{Sentence: base.Scalar(40), Statutory: rules.Range{Min: 36, Max: 120}},
		Circumstances: facts.Tags(facts.Burglary, facts.Accessory, facts.Recidivism, facts.PleaAndAcceptance, facts.Tag("unknown")),
	}

	first := Apply(p, in)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Apply(p, in)); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
}
