// Package config loads and validates the rig configuration. Validation is
// strictly a load-time concern: a table that does not sum to 100, a negative
// duration, or an unknown channel name fails here, before any session can
// start, and is never surfaced mid-run.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/opcuadaq"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/serialdaq"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/sector"
)

// Duration wraps time.Duration so YAML can say "2s" or "3m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config is the full immutable rig configuration, constructed once and passed
// explicitly into the engine and adapters.
type Config struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Sampling SamplingConfig  `yaml:"sampling"`
	Driver   DriverConfig    `yaml:"driver"`
	Channels []ChannelConfig `yaml:"channels"`
	Warnings WarningConfig   `yaml:"warnings"`
	Modes    []ModeConfig    `yaml:"modes"`
	Defrost  DefrostConfig   `yaml:"defrost"`
	HTTP     HTTPConfig      `yaml:"http"`
	MQTT     MQTTConfig      `yaml:"mqtt"`
	Report   ReportConfig    `yaml:"report"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type SamplingConfig struct {
	Interval    Duration `yaml:"interval"`
	ReadTimeout Duration `yaml:"read_timeout"`
	LiveWindow  Duration `yaml:"live_window"`
}

type DriverConfig struct {
	Kind   string           `yaml:"kind"` // sim, serial, opcua
	Serial serialdaq.Config `yaml:"serial"`
	OPCUA  opcuadaq.Config  `yaml:"opcua"`
}

type ChannelConfig struct {
	Name       string   `yaml:"name"`
	Threshold  float64  `yaml:"threshold"`
	LiveWindow Duration `yaml:"live_window"`
}

type WarningConfig struct {
	OverlapGrace Duration `yaml:"overlap_grace"`
	RangeLow     float64  `yaml:"range_low"`
	RangeHigh    float64  `yaml:"range_high"`
}

// ModeConfig describes one selectable test mode. Expected maps channel name
// to the whole-session power percentage for plain modes; Defrost modes take
// their targets from the sector table instead.
type ModeConfig struct {
	Name         string             `yaml:"name"`
	Kind         string             `yaml:"kind"` // plain, defrost
	Duration     Duration           `yaml:"duration"`
	Expected     map[string]float64 `yaml:"expected"`
	Tolerance    float64            `yaml:"tolerance"`
	OverlapFatal bool               `yaml:"overlap_fatal"`
}

func (m ModeConfig) IsDefrost() bool { return m.Kind == "defrost" }

type SectorConfig struct {
	Percentage float64 `yaml:"percentage"`
	Power      float64 `yaml:"power"`
	Tolerance  float64 `yaml:"tolerance"`
}

type CurvePointConfig struct {
	UpToGrams int     `yaml:"up_to_grams"`
	Scale     float64 `yaml:"scale"`
}

type DefrostConfig struct {
	WeightMinGrams int                `yaml:"weight_min_grams"`
	WeightMaxGrams int                `yaml:"weight_max_grams"`
	Sectors        []SectorConfig     `yaml:"sectors"`
	WeightCurve    []CurvePointConfig `yaml:"weight_curve"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type ReportConfig struct {
	Postgres     PostgresConfig `yaml:"postgres"`
	SampleLogDir string         `yaml:"sample_log_dir"`
}

// Load reads, defaults, and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse is Load for in-memory bytes, used by tests and embedders.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Sampling.Interval.Duration == 0 {
		c.Sampling.Interval.Duration = time.Second
	}
	if c.Sampling.ReadTimeout.Duration == 0 {
		c.Sampling.ReadTimeout.Duration = 500 * time.Millisecond
	}
	if c.Sampling.LiveWindow.Duration == 0 {
		c.Sampling.LiveWindow.Duration = 100 * time.Second
	}
	if c.Driver.Kind == "" {
		c.Driver.Kind = "sim"
	}
	if c.Warnings.OverlapGrace.Duration == 0 {
		c.Warnings.OverlapGrace.Duration = 2 * time.Second
	}
	if c.Warnings.RangeLow == 0 && c.Warnings.RangeHigh == 0 {
		c.Warnings.RangeLow = -0.5
		c.Warnings.RangeHigh = 5.5
	}
	for i := range c.Channels {
		if c.Channels[i].Threshold == 0 {
			c.Channels[i].Threshold = 4.6
		}
		if c.Channels[i].LiveWindow.Duration == 0 {
			c.Channels[i].LiveWindow = c.Sampling.LiveWindow
		}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Report.Postgres.Table == "" {
		c.Report.Postgres.Table = "test_reports"
	}
	c.Driver.Serial.ApplyDefaults()
	c.Driver.OPCUA.ApplyDefaults()
}

func (c *Config) validate() error {
	if c.Sampling.Interval.Duration <= 0 {
		return &domain.ConfigurationError{Field: "sampling.interval", Reason: "must be positive"}
	}
	if c.Sampling.ReadTimeout.Duration <= 0 {
		return &domain.ConfigurationError{Field: "sampling.read_timeout", Reason: "must be positive"}
	}
	if c.Warnings.OverlapGrace.Duration < 0 {
		return &domain.ConfigurationError{Field: "warnings.overlap_grace", Reason: "must not be negative"}
	}
	if c.Warnings.RangeHigh <= c.Warnings.RangeLow {
		return &domain.ConfigurationError{Field: "warnings.range_high", Reason: "must exceed range_low"}
	}

	if err := c.validateChannels(); err != nil {
		return err
	}
	if err := c.validateModes(); err != nil {
		return err
	}
	if err := c.validateDriver(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateChannels() error {
	known := make(map[domain.Channel]bool, len(domain.Channels()))
	for _, ch := range domain.Channels() {
		known[ch] = false
	}
	for _, cc := range c.Channels {
		ch := domain.Channel(cc.Name)
		seen, ok := known[ch]
		if !ok {
			return &domain.ConfigurationError{Field: "channels", Reason: fmt.Sprintf("unknown channel %q", cc.Name)}
		}
		if seen {
			return &domain.ConfigurationError{Field: "channels", Reason: fmt.Sprintf("duplicate channel %q", cc.Name)}
		}
		known[ch] = true
		if cc.Threshold <= c.Warnings.RangeLow || cc.Threshold >= c.Warnings.RangeHigh {
			return &domain.ConfigurationError{Field: "channels", Reason: fmt.Sprintf("%s threshold %.2fV outside measurable range", cc.Name, cc.Threshold)}
		}
	}
	for ch, seen := range known {
		if !seen {
			return &domain.ConfigurationError{Field: "channels", Reason: fmt.Sprintf("channel %q not configured", ch)}
		}
	}
	return nil
}

func (c *Config) validateModes() error {
	if len(c.Modes) == 0 {
		return &domain.ConfigurationError{Field: "modes", Reason: "at least one mode is required"}
	}
	names := make(map[string]bool, len(c.Modes))
	needDefrost := false
	for _, m := range c.Modes {
		if m.Name == "" {
			return &domain.ConfigurationError{Field: "modes", Reason: "mode without a name"}
		}
		if names[m.Name] {
			return &domain.ConfigurationError{Field: "modes", Reason: fmt.Sprintf("duplicate mode %q", m.Name)}
		}
		names[m.Name] = true

		if m.Kind != "plain" && m.Kind != "defrost" {
			return &domain.ConfigurationError{Field: "modes", Reason: fmt.Sprintf("mode %q: unknown kind %q", m.Name, m.Kind)}
		}
		if m.Duration.Duration <= 0 {
			return &domain.ConfigurationError{Field: "modes", Reason: fmt.Sprintf("mode %q: duration must be positive", m.Name)}
		}
		if m.Tolerance < 0 {
			return &domain.ConfigurationError{Field: "modes", Reason: fmt.Sprintf("mode %q: tolerance must not be negative", m.Name)}
		}
		for name, pct := range m.Expected {
			if _, err := c.channelByName(name); err != nil {
				return &domain.ConfigurationError{Field: "modes", Reason: fmt.Sprintf("mode %q: %v", m.Name, err)}
			}
			if pct < 0 || pct > 100 {
				return &domain.ConfigurationError{Field: "modes", Reason: fmt.Sprintf("mode %q: expected power %.1f%% out of range", m.Name, pct)}
			}
		}
		if m.IsDefrost() {
			needDefrost = true
		} else if len(m.Expected) == 0 {
			return &domain.ConfigurationError{Field: "modes", Reason: fmt.Sprintf("mode %q: plain mode needs expected powers", m.Name)}
		}
	}

	if needDefrost {
		return c.validateDefrost()
	}
	return nil
}

func (c *Config) validateDefrost() error {
	d := c.Defrost
	if d.WeightMinGrams <= 0 || d.WeightMaxGrams <= d.WeightMinGrams {
		return &domain.ConfigurationError{Field: "defrost", Reason: "weight range must satisfy 0 < min < max"}
	}
	if len(d.Sectors) == 0 {
		return &domain.ConfigurationError{Field: "defrost.sectors", Reason: "at least one sector is required"}
	}
	var sum float64
	for i, s := range d.Sectors {
		if s.Percentage <= 0 {
			return &domain.ConfigurationError{Field: "defrost.sectors", Reason: fmt.Sprintf("sector %d: percentage must be positive", i)}
		}
		if s.Power < 0 || s.Power > 100 {
			return &domain.ConfigurationError{Field: "defrost.sectors", Reason: fmt.Sprintf("sector %d: power %.1f%% out of range", i, s.Power)}
		}
		if s.Tolerance < 0 {
			return &domain.ConfigurationError{Field: "defrost.sectors", Reason: fmt.Sprintf("sector %d: tolerance must not be negative", i)}
		}
		sum += s.Percentage
	}
	if math.Abs(sum-100) > 1e-9 {
		return &domain.ConfigurationError{Field: "defrost.sectors", Reason: fmt.Sprintf("percentages sum to %.4f, want 100", sum)}
	}
	prev := 0
	for i, pt := range d.WeightCurve {
		if pt.Scale <= 0 {
			return &domain.ConfigurationError{Field: "defrost.weight_curve", Reason: fmt.Sprintf("point %d: scale must be positive", i)}
		}
		if pt.UpToGrams <= prev {
			return &domain.ConfigurationError{Field: "defrost.weight_curve", Reason: fmt.Sprintf("point %d: weights must be strictly increasing", i)}
		}
		prev = pt.UpToGrams
	}
	return nil
}

func (c *Config) validateDriver() error {
	switch c.Driver.Kind {
	case "sim":
		return nil
	case "serial":
		if err := c.Driver.Serial.Validate(); err != nil {
			return &domain.ConfigurationError{Field: "driver.serial", Reason: err.Error()}
		}
	case "opcua":
		if err := c.Driver.OPCUA.Validate(); err != nil {
			return &domain.ConfigurationError{Field: "driver.opcua", Reason: err.Error()}
		}
	default:
		return &domain.ConfigurationError{Field: "driver.kind", Reason: fmt.Sprintf("unknown driver %q", c.Driver.Kind)}
	}
	return nil
}

func (c *Config) channelByName(name string) (ChannelConfig, error) {
	for _, cc := range c.Channels {
		if cc.Name == name {
			return cc, nil
		}
	}
	return ChannelConfig{}, fmt.Errorf("unknown channel %q", name)
}

// ChannelSpecs resolves the configured channels into immutable specs.
func (c *Config) ChannelSpecs() []domain.ChannelSpec {
	specs := make([]domain.ChannelSpec, 0, len(c.Channels))
	for _, cc := range c.Channels {
		specs = append(specs, domain.ChannelSpec{
			Name:        domain.Channel(cc.Name),
			OnThreshold: cc.Threshold,
			LiveWindow:  cc.LiveWindow.Duration,
		})
	}
	return specs
}

// Mode looks a mode up by name.
func (c *Config) Mode(name string) (ModeConfig, bool) {
	for _, m := range c.Modes {
		if m.Name == name {
			return m, true
		}
	}
	return ModeConfig{}, false
}

// SectorDefinitions converts the Defrost table for the planner.
func (c *Config) SectorDefinitions() []sector.Definition {
	defs := make([]sector.Definition, len(c.Defrost.Sectors))
	for i, s := range c.Defrost.Sectors {
		defs[i] = sector.Definition{Percentage: s.Percentage, Power: s.Power, Tolerance: s.Tolerance}
	}
	return defs
}

// WeightCurve converts the configured curve for the planner.
func (c *Config) WeightCurve() []sector.CurvePoint {
	curve := make([]sector.CurvePoint, len(c.Defrost.WeightCurve))
	for i, p := range c.Defrost.WeightCurve {
		curve[i] = sector.CurvePoint{UpToGrams: p.UpToGrams, Scale: p.Scale}
	}
	return curve
}
