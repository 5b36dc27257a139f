package ports

import "github.com/ziademad02153/local-automation-Microwave-app/internal/domain"

// Presenter is any front end that wants live progress: a GUI, an MQTT bridge,
// a status API. Implementations must return quickly; the engine dispatches
// snapshots through a bounded queue and drops the oldest when a presenter
// cannot keep up, so a slow consumer can never stall the sampler.
type Presenter interface {
	PublishTick(snap domain.TickSnapshot)
	PublishReport(report *domain.Report)
}
