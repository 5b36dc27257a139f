package mwtest

import (
	base "github.com/ziademad02153/local-automation-Microwave-app/pkg/mwtest"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/app/config"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

// Type aliases so consumers can import the module root directly.
type (
	Rig    = base.Rig
	Option = base.Option

	Config = config.Config

	Channel      = domain.Channel
	Sample       = domain.Sample
	Report       = domain.Report
	TickSnapshot = domain.TickSnapshot
	PowerMetric  = domain.PowerMetric
	Sector       = domain.Sector
	SectorPlan   = domain.SectorPlan
	Warning      = domain.Warning
	Verdict      = domain.Verdict
)

// Re-exported verdicts.
const (
	VerdictPass         = domain.VerdictPass
	VerdictFail         = domain.VerdictFail
	VerdictInconclusive = domain.VerdictInconclusive
	VerdictIncomplete   = domain.VerdictIncomplete
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Rig builder helpers.
func New(path string, opts ...Option) (*Rig, error) {
	return base.New(path, opts...)
}

func NewFromConfig(cfg *Config, opts ...Option) (*Rig, error) {
	return base.NewFromConfig(cfg, opts...)
}

// Dependency overrides.
var (
	WithLogger     = base.WithLogger
	WithDriver     = base.WithDriver
	WithPresenter  = base.WithPresenter
	WithReportSink = base.WithReportSink
	WithSampleLog  = base.WithSampleLog
)

// Replay re-analyses a recorded session log offline.
func Replay(cfg *Config, logPath, modeName string, weightGrams int) (*Report, error) {
	return base.Replay(cfg, logPath, modeName, weightGrams)
}
