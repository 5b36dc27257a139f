// Package daqsim is a deterministic software stand-in for the DAQ hardware.
// It generates duty-cycle waveforms per channel and lets callers script door
// openings and device faults, which makes it the driver of choice for
// development rigs and the test suite.
package daqsim

import (
	"context"
	"sync"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

const (
	onVoltage  = 5.0
	offVoltage = 0.2
)

// Profile describes one channel's synthetic waveform: on for OnTime out of
// every Period. A zero Period keeps the channel permanently off.
type Profile struct {
	Period time.Duration
	OnTime time.Duration
}

// Driver implements ports.Driver against synthetic waveforms.
type Driver struct {
	mu       sync.Mutex
	profiles map[domain.Channel]Profile
	start    time.Time
	doorOpen bool
	fault    error
	now      func() time.Time
}

var _ ports.Driver = (*Driver)(nil)

func New(profiles map[domain.Channel]Profile) *Driver {
	d := &Driver{
		profiles: profiles,
		now:      time.Now,
	}
	d.start = d.now()
	return d
}

// NewWithClock injects a clock for deterministic tests.
func NewWithClock(profiles map[domain.Channel]Profile, clock func() time.Time) *Driver {
	d := &Driver{profiles: profiles, now: clock}
	d.start = clock()
	return d
}

// ReadChannels returns the waveform values at the current instant.
func (d *Driver) ReadChannels(ctx context.Context) (map[domain.Channel]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fault != nil {
		return nil, d.fault
	}

	elapsed := d.now().Sub(d.start)
	out := make(map[domain.Channel]float64, len(domain.Channels()))
	for _, ch := range domain.Channels() {
		out[ch] = offVoltage
	}
	for ch, p := range d.profiles {
		if p.Period > 0 && elapsed%p.Period < p.OnTime {
			out[ch] = onVoltage
		}
	}
	if d.doorOpen {
		out[domain.ChannelDoorSwitch] = onVoltage
	} else {
		out[domain.ChannelDoorSwitch] = offVoltage
	}
	return out, nil
}

func (d *Driver) Close() error { return nil }

// SetDoorOpen scripts the door switch.
func (d *Driver) SetDoorOpen(open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doorOpen = open
}

// Fail makes every subsequent read return err; nil clears the fault.
func (d *Driver) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fault = err
}

// DutyProfiles builds a profile set where each listed channel runs at the
// given duty percentage over a 30s relay period, mirroring how the oven's
// PWM control actually switches.
func DutyProfiles(duty map[domain.Channel]float64) map[domain.Channel]Profile {
	const period = 30 * time.Second
	out := make(map[domain.Channel]Profile, len(duty))
	for ch, pct := range duty {
		out[ch] = Profile{
			Period: period,
			OnTime: time.Duration(float64(period) * pct / 100),
		}
	}
	return out
}
