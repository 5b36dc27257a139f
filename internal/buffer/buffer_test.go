package buffer

import (
	"testing"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

func sampleAt(sec int) domain.Sample {
	return domain.Sample{
		Timestamp: time.Unix(1700000000+int64(sec), 0),
		Elapsed:   time.Duration(sec) * time.Second,
		Voltages:  map[domain.Channel]float64{domain.ChannelLamp: 5.0},
	}
}

func TestAppendAndSnapshot(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		if err := b.Append(sampleAt(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if b.Len() != 5 {
		t.Fatalf("len: got %d", b.Len())
	}

	snap := b.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("snapshot len: got %d", len(snap))
	}

	// The snapshot must not alias the buffer.
	snap[0].Voltages[domain.ChannelLamp] = 0
	if got := b.Snapshot()[0].Voltages[domain.ChannelLamp]; got != 5.0 {
		t.Fatalf("snapshot mutation leaked into buffer: %v", got)
	}
}

func TestAppendRejectsRegressions(t *testing.T) {
	b := New()
	if err := b.Append(sampleAt(3)); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := b.Append(sampleAt(3)); err == nil {
		t.Fatal("expected rejection of duplicate timestamp")
	}
	if err := b.Append(sampleAt(1)); err == nil {
		t.Fatal("expected rejection of timestamp regression")
	}
	if b.Len() != 1 {
		t.Fatalf("rejected appends changed length: %d", b.Len())
	}
}

func TestAppendRejectsElapsedRegression(t *testing.T) {
	b := New()
	if err := b.Append(sampleAt(3)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Later timestamp but stale elapsed offset.
	s := sampleAt(4)
	s.Elapsed = 2 * time.Second
	if err := b.Append(s); err == nil {
		t.Fatal("expected rejection of elapsed regression")
	}
}

func TestReset(t *testing.T) {
	b := New()
	for i := 0; i < 3; i++ {
		if err := b.Append(sampleAt(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("len after reset: %d", b.Len())
	}
	if err := b.Append(sampleAt(0)); err != nil {
		t.Fatalf("append after reset: %v", err)
	}
}
