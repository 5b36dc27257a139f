package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/metrics"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

const snapshotQueueLen = 64

// notifier decouples the sampler from the presentation collaborators through
// a bounded FIFO. The sampler side never blocks: when a presenter falls
// behind, the newest snapshot wins and the drop is counted. Reports are few
// and must not be lost, so they get their own small buffered lane.
type notifier struct {
	logger     *zap.Logger
	presenters []ports.Presenter

	ticks   chan domain.TickSnapshot
	reports chan *domain.Report

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newNotifier(presenters []ports.Presenter, logger *zap.Logger) *notifier {
	n := &notifier{
		logger:     logger,
		presenters: presenters,
		ticks:      make(chan domain.TickSnapshot, snapshotQueueLen),
		reports:    make(chan *domain.Report, 4),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	go n.dispatch()
	return n
}

func (n *notifier) publishTick(snap domain.TickSnapshot) {
	select {
	case n.ticks <- snap:
	default:
		// Queue full: discard the oldest snapshot to make room for the
		// current one. Live views want the freshest state.
		select {
		case <-n.ticks:
			metrics.SnapshotsDropped.Inc()
		default:
		}
		select {
		case n.ticks <- snap:
		default:
			metrics.SnapshotsDropped.Inc()
		}
	}
}

func (n *notifier) publishReport(report *domain.Report) {
	select {
	case n.reports <- report:
	default:
		n.logger.Error("report queue full, report not delivered to presenters",
			zap.String("session_id", report.SessionID.String()))
	}
}

func (n *notifier) dispatch() {
	defer close(n.doneCh)
	for {
		select {
		case <-n.stopCh:
			return
		case snap := <-n.ticks:
			for _, p := range n.presenters {
				p.PublishTick(snap)
			}
		case report := <-n.reports:
			for _, p := range n.presenters {
				p.PublishReport(report)
			}
		}
	}
}

func (n *notifier) close() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
	<-n.doneCh
}
