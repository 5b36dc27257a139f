package mwtest

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/samplelog"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/analysis"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/app/config"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/app/session"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/power"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/sector"
)

// Replay re-analyses a recorded session log offline, applying the named
// mode's acceptance criteria to the captured samples. The oven does not
// need to be on the bench; warnings that require live observation (door
// events, relay overlap) are re-derived from the recording.
func Replay(cfg *config.Config, logPath, modeName string, weightGrams int) (*domain.Report, error) {
	sessionID, samples, err := samplelog.NewReader(logPath).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("sample log %s holds no samples", logPath)
	}

	planner := sector.NewPlanner(cfg.SectorDefinitions(), cfg.WeightCurve())
	mode, strategy, err := session.StrategyFor(cfg, planner, modeName, weightGrams)
	if err != nil {
		return nil, err
	}

	monitor := analysis.NewMonitor(analysis.MonitorConfig{
		Specs:        cfg.ChannelSpecs(),
		OverlapGrace: cfg.Warnings.OverlapGrace.Duration,
		OverlapFatal: mode.OverlapFatal,
		RangeLow:     cfg.Warnings.RangeLow,
		RangeHigh:    cfg.Warnings.RangeHigh,
	})
	var warnings []domain.Warning
	for _, s := range samples {
		warnings = append(warnings, monitor.Observe(s, true)...)
	}

	last := samples[len(samples)-1]
	elapsed := last.Elapsed + cfg.Sampling.Interval.Duration

	calc := power.NewCalculator(cfg.ChannelSpecs())
	outcome := strategy.Evaluate(analysis.NewAnalyzer(calc), samples, elapsed, warnings)

	id, err := uuid.Parse(sessionID)
	if err != nil {
		id = uuid.New()
	}

	return &domain.Report{
		SessionID:      id,
		Mode:           mode.Name,
		WeightGrams:    weightGrams,
		StartedAt:      samples[0].Timestamp,
		FinishedAt:     last.Timestamp,
		RunTime:        elapsed,
		FinalState:     "replayed",
		Samples:        samples,
		Metrics:        outcome.Metrics,
		ChannelResults: outcome.ChannelResults,
		Plan:           outcome.Plan,
		Warnings:       warnings,
		DoorOpenCount:  monitor.DoorOpenCount(),
		Verdict:        outcome.Verdict,
	}, nil
}
