package domain

import "time"

// Channel identifies one of the monitored oven signal lines.
type Channel string

const (
	ChannelMicrowave  Channel = "microwave"
	ChannelGrill      Channel = "grill"
	ChannelLamp       Channel = "lamp"
	ChannelDoorSwitch Channel = "door_switch"
	ChannelBuzzer     Channel = "buzzer"
)

// Channels returns all monitored channels in wiring order.
func Channels() []Channel {
	return []Channel{
		ChannelMicrowave,
		ChannelGrill,
		ChannelLamp,
		ChannelDoorSwitch,
		ChannelBuzzer,
	}
}

// Sample is one multi-channel voltage reading. Immutable once appended to a
// session buffer. Elapsed is the accumulated running time of the session at
// the instant the reading was taken; it only advances while the rig is
// Running, so analysis windows laid out in Elapsed coordinates are unaffected
// by pauses and door interruptions.
type Sample struct {
	Timestamp time.Time           `json:"ts"`
	Elapsed   time.Duration       `json:"elapsed"`
	Voltages  map[Channel]float64 `json:"voltages"`
}

// Clone returns a deep copy so callers can never mutate a buffered sample.
func (s Sample) Clone() Sample {
	v := make(map[Channel]float64, len(s.Voltages))
	for ch, volt := range s.Voltages {
		v[ch] = volt
	}
	return Sample{Timestamp: s.Timestamp, Elapsed: s.Elapsed, Voltages: v}
}

// ChannelSpec describes how a logical channel is interpreted. Supplied by
// configuration and read-only to the engine.
type ChannelSpec struct {
	Name        Channel
	OnThreshold float64       // voltage at or above which the channel counts as "on"
	LiveWindow  time.Duration // trailing window for live power readouts
}

// On reports whether a voltage meets the spec's on-threshold.
func (c ChannelSpec) On(voltage float64) bool {
	return voltage >= c.OnThreshold
}
