package domain

import "time"

// Verdict is the outcome of a pass/fail comparison. It is deliberately not a
// boolean: "not enough data" and "never reached" must stay distinguishable
// from a genuine failure.
type Verdict string

const (
	VerdictPass         Verdict = "pass"
	VerdictFail         Verdict = "fail"
	VerdictInconclusive Verdict = "inconclusive"
	VerdictIncomplete   Verdict = "incomplete"
)

// PowerMetric is the on-time percentage of one channel over one window.
// Windows are expressed in session running time (see Sample.Elapsed), so a
// metric is a pure, recomputable function of the buffer contents.
type PowerMetric struct {
	Channel     Channel       `json:"channel"`
	WindowStart time.Duration `json:"window_start"`
	WindowEnd   time.Duration `json:"window_end"`
	OnPercent   float64       `json:"on_percent"`
	SampleCount int           `json:"sample_count"`
}

// Sector is one contiguous sub-interval of a Defrost run. Start/End are
// offsets from session start; MeasuredValid is false until the analyzer has
// filled in a measurement (or decided there is none to fill).
type Sector struct {
	Index         int           `json:"index"`
	Start         time.Duration `json:"start"`
	End           time.Duration `json:"end"`
	ExpectedPower float64       `json:"expected_power"`
	Tolerance     float64       `json:"tolerance"`
	MeasuredPower float64       `json:"measured_power"`
	MeasuredValid bool          `json:"measured_valid"`
	Verdict       Verdict       `json:"verdict"`
}

// Duration returns the sector's length.
func (s Sector) Duration() time.Duration { return s.End - s.Start }

// SectorPlan is the ordered, contiguous set of sectors for one Defrost
// session. Computed once at session start and never re-evaluated.
type SectorPlan struct {
	WeightGrams int           `json:"weight_grams"`
	Total       time.Duration `json:"total"`
	Sectors     []Sector      `json:"sectors"`
}

// ChannelResult is the whole-session comparison for one channel in a plain
// (non-Defrost) analysis.
type ChannelResult struct {
	Channel   Channel `json:"channel"`
	Expected  float64 `json:"expected"`
	Tolerance float64 `json:"tolerance"`
	Measured  float64 `json:"measured"`
	Valid     bool    `json:"valid"`
	Verdict   Verdict `json:"verdict"`
}
