package analysis

import (
	"errors"
	"math"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/power"
)

// Analyzer turns a buffer snapshot plus the session's warning list into a
// final outcome. It holds no per-session state of its own.
type Analyzer struct {
	calc *power.Calculator
}

func NewAnalyzer(calc *power.Calculator) *Analyzer {
	return &Analyzer{calc: calc}
}

// Outcome is the analyzer's result for one session.
type Outcome struct {
	Verdict        domain.Verdict
	Metrics        []domain.PowerMetric // whole-session metrics, every channel with data
	ChannelResults []domain.ChannelResult
	Plan           *domain.SectorPlan
}

// Analysis is the mode-specific strategy, chosen once at session start: a
// whole-session comparison for plain modes, per-sector comparisons for
// Defrost. Keeping the variants as types avoids mode conditionals scattered
// through the engine.
type Analysis interface {
	Evaluate(a *Analyzer, samples []domain.Sample, elapsed time.Duration, warnings []domain.Warning) Outcome
}

// Expectation is one channel's whole-session target for a plain analysis.
type Expectation struct {
	Channel   domain.Channel
	Expected  float64
	Tolerance float64
}

// PlainAnalysis compares each expected channel's whole-session power.
type PlainAnalysis struct {
	Expectations []Expectation
}

// SectorAnalysis compares each sector of a resolved Defrost plan.
type SectorAnalysis struct {
	Plan domain.SectorPlan
}

var (
	_ Analysis = PlainAnalysis{}
	_ Analysis = SectorAnalysis{}
)

// Evaluate implements Analysis. The whole session is one window [0, elapsed).
// Tolerance bounds are inclusive: a measurement exactly on the boundary
// passes. InsufficientData degrades the channel, and therefore the session,
// to Inconclusive, never to Pass.
func (p PlainAnalysis) Evaluate(a *Analyzer, samples []domain.Sample, elapsed time.Duration, warnings []domain.Warning) Outcome {
	out := Outcome{Metrics: a.sessionMetrics(samples, elapsed)}

	for _, exp := range p.Expectations {
		res := domain.ChannelResult{
			Channel:   exp.Channel,
			Expected:  exp.Expected,
			Tolerance: exp.Tolerance,
		}
		m, err := a.metric(samples, exp.Channel, power.Window{Start: 0, End: elapsed})
		switch {
		case errors.Is(err, domain.ErrInsufficientData):
			res.Verdict = domain.VerdictInconclusive
		case err != nil:
			res.Verdict = domain.VerdictInconclusive
		default:
			res.Measured = m.OnPercent
			res.Valid = true
			res.Verdict = compare(m.OnPercent, exp.Expected, exp.Tolerance)
		}
		out.ChannelResults = append(out.ChannelResults, res)
	}

	out.Verdict = overall(channelVerdicts(out.ChannelResults), warnings)
	return out
}

// Evaluate implements Analysis. Each sector is measured over its own window,
// clipped to the data actually collected: a sector the run never reached is
// Incomplete, a partially covered sector is judged on what was measured, and
// only a truly empty sector window is Inconclusive.
func (s SectorAnalysis) Evaluate(a *Analyzer, samples []domain.Sample, elapsed time.Duration, warnings []domain.Warning) Outcome {
	plan := s.Plan
	plan.Sectors = append([]domain.Sector(nil), s.Plan.Sectors...)

	verdicts := make([]domain.Verdict, len(plan.Sectors))
	for i := range plan.Sectors {
		sec := &plan.Sectors[i]

		if sec.Start >= elapsed {
			sec.Verdict = domain.VerdictIncomplete
			verdicts[i] = sec.Verdict
			continue
		}
		end := sec.End
		if end > elapsed {
			end = elapsed
		}

		m, err := a.metric(samples, domain.ChannelMicrowave, power.Window{Start: sec.Start, End: end})
		if err != nil {
			sec.Verdict = domain.VerdictInconclusive
		} else {
			sec.MeasuredPower = m.OnPercent
			sec.MeasuredValid = true
			sec.Verdict = compare(m.OnPercent, sec.ExpectedPower, sec.Tolerance)
		}
		verdicts[i] = sec.Verdict
	}

	return Outcome{
		Metrics: a.sessionMetrics(samples, elapsed),
		Plan:    &plan,
		Verdict: overall(verdicts, warnings),
	}
}

func (a *Analyzer) metric(samples []domain.Sample, ch domain.Channel, w power.Window) (domain.PowerMetric, error) {
	return a.calc.Metric(samples, ch, w)
}

func (a *Analyzer) sessionMetrics(samples []domain.Sample, elapsed time.Duration) []domain.PowerMetric {
	if elapsed <= 0 {
		return nil
	}
	var out []domain.PowerMetric
	for _, ch := range domain.Channels() {
		m, err := a.calc.Metric(samples, ch, power.Window{Start: 0, End: elapsed})
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// compare applies the inclusive tolerance band.
func compare(measured, expected, tolerance float64) domain.Verdict {
	if math.Abs(measured-expected) <= tolerance {
		return domain.VerdictPass
	}
	return domain.VerdictFail
}

func channelVerdicts(results []domain.ChannelResult) []domain.Verdict {
	out := make([]domain.Verdict, len(results))
	for i, r := range results {
		out[i] = r.Verdict
	}
	return out
}

// overall folds per-scope verdicts and the warning list into the session
// verdict. A fatal warning forces Fail regardless of measured power; after
// that the severity order is Fail, Incomplete, Inconclusive, Pass.
func overall(verdicts []domain.Verdict, warnings []domain.Warning) domain.Verdict {
	if domain.HasFatal(warnings) {
		return domain.VerdictFail
	}

	result := domain.VerdictPass
	for _, v := range verdicts {
		switch v {
		case domain.VerdictFail:
			return domain.VerdictFail
		case domain.VerdictIncomplete:
			result = domain.VerdictIncomplete
		case domain.VerdictInconclusive:
			if result != domain.VerdictIncomplete {
				result = domain.VerdictInconclusive
			}
		}
	}
	return result
}
