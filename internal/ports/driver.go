package ports

import (
	"context"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

// Driver is the hardware collaborator. The engine calls ReadChannels once per
// sampling tick with a bounded-timeout context; any error (including a
// deadline) is treated as a device fault. The engine knows nothing about
// wiring or device identifiers.
type Driver interface {
	ReadChannels(ctx context.Context) (map[domain.Channel]float64, error)
	Close() error
}
