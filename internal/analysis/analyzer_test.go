package analysis

import (
	"testing"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/power"
)

func testSpecs() []domain.ChannelSpec {
	specs := make([]domain.ChannelSpec, 0, 5)
	for _, ch := range domain.Channels() {
		specs = append(specs, domain.ChannelSpec{
			Name:        ch,
			OnThreshold: 4.6,
			LiveWindow:  100 * time.Second,
		})
	}
	return specs
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(power.NewCalculator(testSpecs()))
}

// dutySamples produces n one-second samples where ch is on for the first
// onPercent% of every 100-sample block.
func dutySamples(n int, ch domain.Channel, onPercent int) []domain.Sample {
	out := make([]domain.Sample, 0, n)
	for i := 0; i < n; i++ {
		voltages := make(map[domain.Channel]float64, 5)
		for _, c := range domain.Channels() {
			voltages[c] = 0.2
		}
		if i%100 < onPercent {
			voltages[ch] = 5.0
		}
		out = append(out, domain.Sample{
			Timestamp: time.Unix(1700000000+int64(i), 0),
			Elapsed:   time.Duration(i) * time.Second,
			Voltages:  voltages,
		})
	}
	return out
}

// fineDutySamples is dutySamples with a 10-second period: ch is on for
// onPerTen seconds out of every ten.
func fineDutySamples(n int, ch domain.Channel, onPerTen int) []domain.Sample {
	out := make([]domain.Sample, 0, n)
	for i := 0; i < n; i++ {
		voltages := make(map[domain.Channel]float64, 5)
		for _, c := range domain.Channels() {
			voltages[c] = 0.2
		}
		if i%10 < onPerTen {
			voltages[ch] = 5.0
		}
		out = append(out, domain.Sample{
			Timestamp: time.Unix(1700000000+int64(i), 0),
			Elapsed:   time.Duration(i) * time.Second,
			Voltages:  voltages,
		})
	}
	return out
}

func TestPlainAnalysisPass(t *testing.T) {
	a := newTestAnalyzer()
	strategy := PlainAnalysis{Expectations: []Expectation{
		{Channel: domain.ChannelMicrowave, Expected: 100, Tolerance: 5},
	}}

	// 97% measured against 100% expected, tolerance 5: pass.
	samples := dutySamples(100, domain.ChannelMicrowave, 97)
	out := strategy.Evaluate(a, samples, 100*time.Second, nil)

	if out.Verdict != domain.VerdictPass {
		t.Fatalf("verdict: got %s", out.Verdict)
	}
	if len(out.ChannelResults) != 1 || !out.ChannelResults[0].Valid {
		t.Fatalf("channel results: %+v", out.ChannelResults)
	}
	if got := out.ChannelResults[0].Measured; got != 97 {
		t.Fatalf("measured: got %v", got)
	}
}

func TestPlainAnalysisFail(t *testing.T) {
	a := newTestAnalyzer()
	strategy := PlainAnalysis{Expectations: []Expectation{
		{Channel: domain.ChannelMicrowave, Expected: 100, Tolerance: 5},
	}}

	samples := dutySamples(100, domain.ChannelMicrowave, 80)
	out := strategy.Evaluate(a, samples, 100*time.Second, nil)

	if out.Verdict != domain.VerdictFail {
		t.Fatalf("verdict: got %s", out.Verdict)
	}
}

func TestPlainAnalysisToleranceBoundaryInclusive(t *testing.T) {
	a := newTestAnalyzer()
	strategy := PlainAnalysis{Expectations: []Expectation{
		{Channel: domain.ChannelMicrowave, Expected: 100, Tolerance: 5},
	}}

	// Exactly on the band edge: 95 measured, |95-100| == 5.
	samples := dutySamples(100, domain.ChannelMicrowave, 95)
	out := strategy.Evaluate(a, samples, 100*time.Second, nil)

	if out.Verdict != domain.VerdictPass {
		t.Fatalf("boundary measurement should pass, got %s", out.Verdict)
	}
}

func TestPlainAnalysisInconclusiveWithoutData(t *testing.T) {
	a := newTestAnalyzer()
	strategy := PlainAnalysis{Expectations: []Expectation{
		{Channel: domain.ChannelMicrowave, Expected: 20, Tolerance: 5},
	}}

	out := strategy.Evaluate(a, nil, 10*time.Second, nil)

	if out.Verdict != domain.VerdictInconclusive {
		t.Fatalf("verdict: got %s, want inconclusive", out.Verdict)
	}
	if out.ChannelResults[0].Valid {
		t.Fatal("result without data must not be marked valid")
	}
}

func TestFatalWarningForcesFail(t *testing.T) {
	a := newTestAnalyzer()
	strategy := PlainAnalysis{Expectations: []Expectation{
		{Channel: domain.ChannelMicrowave, Expected: 100, Tolerance: 5},
	}}

	samples := dutySamples(100, domain.ChannelMicrowave, 100)
	warnings := []domain.Warning{{
		Kind:      domain.WarningDoorOpened,
		Timestamp: time.Unix(1700000060, 0),
		Fatal:     true,
	}}
	out := strategy.Evaluate(a, samples, 100*time.Second, warnings)

	if out.Verdict != domain.VerdictFail {
		t.Fatalf("fatal warning must force fail, got %s", out.Verdict)
	}
}

func TestSectorAnalysisFullRun(t *testing.T) {
	a := newTestAnalyzer()
	plan := domain.SectorPlan{
		WeightGrams: 500,
		Total:       300 * time.Second,
		Sectors: []domain.Sector{
			{Index: 0, Start: 0, End: 100 * time.Second, ExpectedPower: 40, Tolerance: 5},
			{Index: 1, Start: 100 * time.Second, End: 200 * time.Second, ExpectedPower: 40, Tolerance: 5},
			{Index: 2, Start: 200 * time.Second, End: 300 * time.Second, ExpectedPower: 40, Tolerance: 5},
		},
	}
	strategy := SectorAnalysis{Plan: plan}

	samples := dutySamples(300, domain.ChannelMicrowave, 40)
	out := strategy.Evaluate(a, samples, 300*time.Second, nil)

	if out.Verdict != domain.VerdictPass {
		t.Fatalf("verdict: got %s", out.Verdict)
	}
	if out.Plan == nil || len(out.Plan.Sectors) != 3 {
		t.Fatalf("plan missing from outcome: %+v", out.Plan)
	}
	for _, sec := range out.Plan.Sectors {
		if sec.Verdict != domain.VerdictPass || !sec.MeasuredValid {
			t.Fatalf("sector %d: %+v", sec.Index, sec)
		}
	}
}

func TestSectorAnalysisUnreachedSectorsIncomplete(t *testing.T) {
	a := newTestAnalyzer()
	plan := domain.SectorPlan{
		Total: 300 * time.Second,
		Sectors: []domain.Sector{
			{Index: 0, Start: 0, End: 100 * time.Second, ExpectedPower: 40, Tolerance: 5},
			{Index: 1, Start: 100 * time.Second, End: 200 * time.Second, ExpectedPower: 40, Tolerance: 5},
			{Index: 2, Start: 200 * time.Second, End: 300 * time.Second, ExpectedPower: 40, Tolerance: 5},
		},
	}
	strategy := SectorAnalysis{Plan: plan}

	// Stopped 150s in: sector 0 complete, sector 1 half covered, sector 2
	// untouched. The 10s duty period keeps the half-covered sector at the
	// same 40% duty as the full ones.
	samples := fineDutySamples(150, domain.ChannelMicrowave, 4)
	out := strategy.Evaluate(a, samples, 150*time.Second, nil)

	if got := out.Plan.Sectors[0].Verdict; got != domain.VerdictPass {
		t.Fatalf("sector 0: got %s", got)
	}
	if got := out.Plan.Sectors[1].Verdict; got != domain.VerdictPass {
		t.Fatalf("sector 1 judged on covered half: got %s", got)
	}
	if got := out.Plan.Sectors[2].Verdict; got != domain.VerdictIncomplete {
		t.Fatalf("sector 2: got %s, want incomplete", got)
	}
	if out.Verdict != domain.VerdictIncomplete {
		t.Fatalf("overall: got %s, want incomplete", out.Verdict)
	}
}

func TestSectorAnalysisDoesNotMutatePlan(t *testing.T) {
	a := newTestAnalyzer()
	plan := domain.SectorPlan{
		Total: 100 * time.Second,
		Sectors: []domain.Sector{
			{Index: 0, Start: 0, End: 100 * time.Second, ExpectedPower: 40, Tolerance: 5},
		},
	}
	strategy := SectorAnalysis{Plan: plan}

	samples := dutySamples(100, domain.ChannelMicrowave, 40)
	_ = strategy.Evaluate(a, samples, 100*time.Second, nil)

	if plan.Sectors[0].Verdict != domain.Verdict("") || plan.Sectors[0].MeasuredValid {
		t.Fatalf("evaluation mutated the caller's plan: %+v", plan.Sectors[0])
	}
}

func TestOverallSeverityOrder(t *testing.T) {
	cases := []struct {
		verdicts []domain.Verdict
		want     domain.Verdict
	}{
		{[]domain.Verdict{domain.VerdictPass, domain.VerdictPass}, domain.VerdictPass},
		{[]domain.Verdict{domain.VerdictPass, domain.VerdictInconclusive}, domain.VerdictInconclusive},
		{[]domain.Verdict{domain.VerdictInconclusive, domain.VerdictIncomplete}, domain.VerdictIncomplete},
		{[]domain.Verdict{domain.VerdictIncomplete, domain.VerdictFail}, domain.VerdictFail},
		{nil, domain.VerdictPass},
	}
	for _, tc := range cases {
		if got := overall(tc.verdicts, nil); got != tc.want {
			t.Fatalf("overall(%v): got %s, want %s", tc.verdicts, got, tc.want)
		}
	}
}
