package ports

import (
	"context"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

// ReportSink receives the export record exactly once per finalized session.
type ReportSink interface {
	Name() string
	WriteReport(ctx context.Context, report *domain.Report) error
}
