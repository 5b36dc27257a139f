package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks an analysis window that contained no samples.
// Callers must treat it distinctly from a genuine 0% reading: it degrades the
// affected verdict to Inconclusive instead of Pass or Fail.
var ErrInsufficientData = errors.New("insufficient data in window")

// DeviceError wraps a hardware-driver failure or read timeout. It is fatal
// for the running session and forces the state machine into Faulted.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("device error: %v", e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }

// ConfigurationError marks an invalid threshold/sector/tolerance table. It is
// raised at load time only; a session never starts against a bad config.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}
