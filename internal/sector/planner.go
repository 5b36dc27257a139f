// Package sector turns a sample weight and the static Defrost sector table
// into concrete time boundaries and expected-power targets. Planning happens
// exactly once, at session start; nothing here is re-evaluated mid-run.
package sector

import (
	"math"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

// Definition is one row of the static sector table: the share of total
// duration it occupies plus its expected power and tolerance.
type Definition struct {
	Percentage float64 // share of total duration, all rows sum to 100
	Power      float64 // expected on-time percentage
	Tolerance  float64 // inclusive +/- band around Power
}

// CurvePoint scales expected power for sample weights up to UpToGrams.
// Points are ordered by weight; the last point covers everything above it.
type CurvePoint struct {
	UpToGrams int
	Scale     float64
}

// Planner resolves sector plans from a validated table. Table validation
// (percentages summing to 100, positive tolerances, weight range) is the
// config loader's job; the planner assumes a well-formed table.
type Planner struct {
	defs  []Definition
	curve []CurvePoint
}

func NewPlanner(defs []Definition, curve []CurvePoint) *Planner {
	return &Planner{defs: defs, curve: curve}
}

// Plan lays the sectors out over total. Boundary i is floor(total * cumulative
// percentage / 100) in whole seconds; the final sector's end is forced to
// exactly total so integer rounding never leaves a gap or an overlap.
// Expected power is the table value scaled by the weight curve, resolved here
// once into a plain number.
func (p *Planner) Plan(weightGrams int, total time.Duration) domain.SectorPlan {
	scale := p.scaleFor(weightGrams)

	plan := domain.SectorPlan{
		WeightGrams: weightGrams,
		Total:       total,
		Sectors:     make([]domain.Sector, len(p.defs)),
	}

	var cum float64
	prev := time.Duration(0)
	for i, def := range p.defs {
		cum += def.Percentage
		end := boundary(total, cum)
		if i == len(p.defs)-1 {
			end = total
		}
		plan.Sectors[i] = domain.Sector{
			Index:         i,
			Start:         prev,
			End:           end,
			ExpectedPower: def.Power * scale,
			Tolerance:     def.Tolerance,
		}
		prev = end
	}
	return plan
}

func (p *Planner) scaleFor(weightGrams int) float64 {
	for _, pt := range p.curve {
		if weightGrams <= pt.UpToGrams {
			return pt.Scale
		}
	}
	if n := len(p.curve); n > 0 {
		return p.curve[n-1].Scale
	}
	return 1.0
}

func boundary(total time.Duration, cumPercent float64) time.Duration {
	sec := math.Floor(total.Seconds() * cumPercent / 100)
	return time.Duration(sec) * time.Second
}
