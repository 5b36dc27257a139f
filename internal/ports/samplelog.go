package ports

import "github.com/ziademad02153/local-automation-Microwave-app/internal/domain"

// SampleLog persists raw samples as they are acquired so a rig crash does not
// lose a long run. Logs are per-session: Begin truncates, Append adds one
// record, and a completed or recovered log can be read back for offline
// re-analysis.
type SampleLog interface {
	Begin(sessionID string) error
	Append(s domain.Sample) error
	Close() error
}

// SampleLogReader reads a previously recorded run back in order.
type SampleLogReader interface {
	ReadAll() (sessionID string, samples []domain.Sample, err error)
}
