package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

// gatedPresenter blocks inside PublishTick until released, so tests can pin
// the dispatch goroutine while they fill the queue.
type gatedPresenter struct {
	entered chan struct{}
	gate    chan struct{}

	mu      sync.Mutex
	ticks   []domain.TickSnapshot
	reports []*domain.Report
	got     chan struct{}
}

func newGatedPresenter() *gatedPresenter {
	return &gatedPresenter{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		got:     make(chan struct{}, snapshotQueueLen*2),
	}
}

func (p *gatedPresenter) PublishTick(snap domain.TickSnapshot) {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	<-p.gate

	p.mu.Lock()
	p.ticks = append(p.ticks, snap)
	p.mu.Unlock()
	p.got <- struct{}{}
}

func (p *gatedPresenter) PublishReport(report *domain.Report) {
	p.mu.Lock()
	p.reports = append(p.reports, report)
	p.mu.Unlock()
	p.got <- struct{}{}
}

func (p *gatedPresenter) snapshotStates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make([]string, len(p.ticks))
	for i, s := range p.ticks {
		states[i] = s.State
	}
	return states
}

func waitDeliveries(t *testing.T, p *gatedPresenter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
}

func TestNotifierFansOutToAllPresenters(t *testing.T) {
	first := newGatedPresenter()
	close(first.gate)
	second := newGatedPresenter()
	close(second.gate)

	n := newNotifier([]ports.Presenter{first, second}, zap.NewNop())
	defer n.close()

	n.publishTick(domain.TickSnapshot{State: "running"})
	n.publishReport(&domain.Report{Mode: "grill"})

	waitDeliveries(t, first, 2)
	waitDeliveries(t, second, 2)

	require.Len(t, first.ticks, 1)
	assert.Equal(t, "running", first.ticks[0].State)
	require.Len(t, second.reports, 1)
	assert.Equal(t, "grill", second.reports[0].Mode)
}

func TestNotifierDropsOldestWhenQueueFull(t *testing.T) {
	p := newGatedPresenter()
	n := newNotifier([]ports.Presenter{p}, zap.NewNop())
	defer n.close()

	// Pin the dispatcher on the first snapshot, then overfill the queue by
	// one. The oldest queued snapshot has to give way.
	n.publishTick(domain.TickSnapshot{State: "pinned"})
	select {
	case <-p.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never picked up the first snapshot")
	}

	for i := 0; i <= snapshotQueueLen; i++ {
		n.publishTick(domain.TickSnapshot{State: fmt.Sprintf("tick-%d", i)})
	}

	close(p.gate)
	waitDeliveries(t, p, snapshotQueueLen+1)

	states := p.snapshotStates()
	require.Len(t, states, snapshotQueueLen+1)
	assert.Equal(t, "pinned", states[0])
	assert.NotContains(t, states, "tick-0")
	assert.Equal(t, fmt.Sprintf("tick-%d", snapshotQueueLen), states[len(states)-1])
}

func TestNotifierCloseIsIdempotent(t *testing.T) {
	p := newGatedPresenter()
	close(p.gate)
	n := newNotifier([]ports.Presenter{p}, zap.NewNop())

	n.close()
	n.close()
}
