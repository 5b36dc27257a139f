// Package buffer holds the append-only sample record for one test session.
// The buffer is owned exclusively by the active session; every other
// component works on an immutable snapshot taken at a specific instant, so
// analysis never races a concurrently growing buffer.
package buffer

import (
	"fmt"
	"sync"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

// Buffer is an ordered, append-only sequence of samples.
type Buffer struct {
	mu      sync.RWMutex
	samples []domain.Sample
}

func New() *Buffer {
	return &Buffer{samples: make([]domain.Sample, 0, 1024)}
}

// Append adds one sample. Timestamps and elapsed offsets must be strictly
// monotonic within a session; a regression is a programming error upstream
// and is rejected rather than silently reordered.
func (b *Buffer) Append(s domain.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.samples); n > 0 {
		last := b.samples[n-1]
		if !s.Timestamp.After(last.Timestamp) {
			return fmt.Errorf("buffer: non-monotonic timestamp %s after %s", s.Timestamp, last.Timestamp)
		}
		if s.Elapsed <= last.Elapsed {
			return fmt.Errorf("buffer: non-monotonic elapsed %s after %s", s.Elapsed, last.Elapsed)
		}
	}
	b.samples = append(b.samples, s.Clone())
	return nil
}

// Snapshot returns a defensive copy of the buffer contents. Samples share no
// mutable state with the buffer, so readers may hold the slice indefinitely.
func (b *Buffer) Snapshot() []domain.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Sample, len(b.samples))
	for i, s := range b.samples {
		out[i] = s.Clone()
	}
	return out
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Reset clears the buffer. Called only at session start.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
}
