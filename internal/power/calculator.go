// Package power derives duty-cycle metrics from buffered samples. Everything
// here is a pure function of the snapshot it is given: re-running a
// calculation on an unchanged buffer yields bitwise-identical results.
package power

import (
	"fmt"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

// Window is a half-open interval [Start, End) in session running time.
type Window struct {
	Start time.Duration
	End   time.Duration
}

func (w Window) Duration() time.Duration { return w.End - w.Start }

// Calculator computes on-time percentages against configured channel specs.
type Calculator struct {
	specs map[domain.Channel]domain.ChannelSpec
}

func NewCalculator(specs []domain.ChannelSpec) *Calculator {
	m := make(map[domain.Channel]domain.ChannelSpec, len(specs))
	for _, s := range specs {
		m[s.Name] = s
	}
	return &Calculator{specs: m}
}

// Metric computes the on-time percentage of ch over w. A sample holds its
// voltage until the next sample (step function); the stretch of a window not
// covered by any sample contributes nothing to on-time. A window covered by
// no sample at all returns domain.ErrInsufficientData, never 0% or 100%.
func (c *Calculator) Metric(samples []domain.Sample, ch domain.Channel, w Window) (domain.PowerMetric, error) {
	spec, ok := c.specs[ch]
	if !ok {
		return domain.PowerMetric{}, fmt.Errorf("power: unknown channel %q", ch)
	}
	if w.End <= w.Start {
		return domain.PowerMetric{}, fmt.Errorf("power: invalid window [%s, %s)", w.Start, w.End)
	}

	var (
		onTime  time.Duration
		covered time.Duration
		count   int
	)
	for i, s := range samples {
		segStart := s.Elapsed
		segEnd := w.End // last sample holds until the window closes
		if i+1 < len(samples) {
			segEnd = samples[i+1].Elapsed
		}
		if segStart < w.Start {
			segStart = w.Start
		}
		if segEnd > w.End {
			segEnd = w.End
		}
		if segEnd <= segStart {
			continue
		}

		covered += segEnd - segStart
		if spec.On(s.Voltages[ch]) {
			onTime += segEnd - segStart
		}
		if s.Elapsed >= w.Start && s.Elapsed < w.End {
			count++
		}
	}

	if covered == 0 {
		return domain.PowerMetric{}, domain.ErrInsufficientData
	}

	return domain.PowerMetric{
		Channel:     ch,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		OnPercent:   float64(onTime) / float64(w.Duration()) * 100,
		SampleCount: count,
	}, nil
}

// LiveMetrics computes trailing-window metrics for every configured channel,
// used for the per-tick presentation snapshot. Channels whose window is still
// empty are skipped rather than reported as zero.
func (c *Calculator) LiveMetrics(samples []domain.Sample, elapsed time.Duration) []domain.PowerMetric {
	out := make([]domain.PowerMetric, 0, len(c.specs))
	for _, ch := range domain.Channels() {
		spec, ok := c.specs[ch]
		if !ok {
			continue
		}
		start := elapsed - spec.LiveWindow
		if start < 0 {
			start = 0
		}
		m, err := c.Metric(samples, ch, Window{Start: start, End: elapsed})
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
