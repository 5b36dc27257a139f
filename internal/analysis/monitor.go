// Package analysis compares measured power against expectations and watches
// the live sample stream for safety and consistency conditions.
package analysis

import (
	"fmt"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

// MonitorConfig carries the warning-detection knobs resolved from config.
type MonitorConfig struct {
	Specs        []domain.ChannelSpec
	OverlapGrace time.Duration // MW+Grill may overlap this long before a warning
	OverlapFatal bool          // mode-level flag: overlap forces overall Fail
	RangeLow     float64       // voltages below this are out of range
	RangeHigh    float64       // voltages above this are out of range
}

// Monitor runs once per tick, not just at verdict time. It is stateful: edge
// detection (door transitions, overlap episodes, range excursions) needs the
// previous tick's view.
type Monitor struct {
	cfg   MonitorConfig
	specs map[domain.Channel]domain.ChannelSpec

	doorWasOpen   bool
	doorOpenCount int

	overlapActive bool
	overlapStart  time.Duration
	overlapWarned bool

	outOfRange map[domain.Channel]bool
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	specs := make(map[domain.Channel]domain.ChannelSpec, len(cfg.Specs))
	for _, s := range cfg.Specs {
		specs[s.Name] = s
	}
	return &Monitor{
		cfg:        cfg,
		specs:      specs,
		outOfRange: make(map[domain.Channel]bool),
	}
}

// Observe inspects one sample and returns any warnings it raises. The running
// flag gates the door-open warning: a door opened while the rig is not
// delivering energy is not a test violation.
func (m *Monitor) Observe(s domain.Sample, running bool) []domain.Warning {
	var warnings []domain.Warning

	warnings = append(warnings, m.observeDoor(s, running)...)
	warnings = append(warnings, m.observeOverlap(s)...)
	warnings = append(warnings, m.observeRange(s)...)

	return warnings
}

// DoorOpen reports the door state as of the last observed sample.
func (m *Monitor) DoorOpen() bool { return m.doorWasOpen }

// DoorOpenCount returns how many open edges have been seen this session.
func (m *Monitor) DoorOpenCount() int { return m.doorOpenCount }

func (m *Monitor) observeDoor(s domain.Sample, running bool) []domain.Warning {
	spec, ok := m.specs[domain.ChannelDoorSwitch]
	if !ok {
		return nil
	}

	open := spec.On(s.Voltages[domain.ChannelDoorSwitch])
	defer func() { m.doorWasOpen = open }()

	if open && !m.doorWasOpen && running {
		m.doorOpenCount++
		return []domain.Warning{{
			Kind:        domain.WarningDoorOpened,
			Timestamp:   s.Timestamp,
			Description: fmt.Sprintf("door opened at %s into the run", s.Elapsed),
			Fatal:       true,
		}}
	}
	return nil
}

func (m *Monitor) observeOverlap(s domain.Sample) []domain.Warning {
	mwSpec, okMW := m.specs[domain.ChannelMicrowave]
	grSpec, okGR := m.specs[domain.ChannelGrill]
	if !okMW || !okGR {
		return nil
	}

	both := mwSpec.On(s.Voltages[domain.ChannelMicrowave]) && grSpec.On(s.Voltages[domain.ChannelGrill])
	if !both {
		m.overlapActive = false
		m.overlapWarned = false
		return nil
	}

	if !m.overlapActive {
		m.overlapActive = true
		m.overlapStart = s.Elapsed
		return nil
	}
	if m.overlapWarned {
		return nil
	}

	held := s.Elapsed - m.overlapStart
	if held <= m.cfg.OverlapGrace {
		return nil
	}
	m.overlapWarned = true
	return []domain.Warning{{
		Kind:        domain.WarningMwGrillOverlap,
		Timestamp:   s.Timestamp,
		Description: fmt.Sprintf("microwave and grill simultaneously on for %s (grace %s)", held, m.cfg.OverlapGrace),
		Fatal:       m.cfg.OverlapFatal,
	}}
}

func (m *Monitor) observeRange(s domain.Sample) []domain.Warning {
	var warnings []domain.Warning
	for _, ch := range domain.Channels() {
		v, ok := s.Voltages[ch]
		if !ok {
			continue
		}
		out := v > m.cfg.RangeHigh || v < m.cfg.RangeLow
		if out && !m.outOfRange[ch] {
			warnings = append(warnings, domain.Warning{
				Kind:        domain.WarningOutOfRange,
				Timestamp:   s.Timestamp,
				Description: fmt.Sprintf("%s voltage %.2fV outside [%.2f, %.2f]", ch, v, m.cfg.RangeLow, m.cfg.RangeHigh),
			})
		}
		m.outOfRange[ch] = out
	}
	return warnings
}
