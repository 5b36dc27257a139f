// Package samplelog persists every raw sample of a test session to disk.
// Logs survive a rig crash and feed the offline replay path, so a run can
// be re-analysed without the oven on the bench.
package samplelog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

// record is one line in a session log file. The first line carries only
// the session header; every following line carries a sample.
type record struct {
	SessionID string             `json:"session_id,omitempty"`
	Timestamp time.Time          `json:"ts,omitempty"`
	ElapsedMS int64              `json:"elapsed_ms,omitempty"`
	Voltages  map[string]float64 `json:"voltages,omitempty"`
}

// Writer appends session samples to a JSON-lines file under a base
// directory, one file per session.
type Writer struct {
	dir string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

var _ ports.SampleLog = (*Writer)(nil)

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sample log dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Begin opens a fresh log file for the session, closing any previous one.
func (w *Writer) Begin(sessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.closeLocked(); err != nil {
		return err
	}

	path := filepath.Join(w.dir, sessionID+".samples.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open sample log %s: %w", path, err)
	}
	w.file = f
	w.writer = bufio.NewWriterSize(f, 1<<16)

	return w.writeLocked(record{SessionID: sessionID})
}

func (w *Writer) Append(s domain.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return errors.New("sample log: no session begun")
	}

	voltages := make(map[string]float64, len(s.Voltages))
	for ch, v := range s.Voltages {
		voltages[string(ch)] = v
	}
	return w.writeLocked(record{
		Timestamp: s.Timestamp,
		ElapsedMS: s.Elapsed.Milliseconds(),
		Voltages:  voltages,
	})
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) writeLocked(r record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(b); err != nil {
		return err
	}
	return w.writer.WriteByte('\n')
}

func (w *Writer) closeLocked() error {
	if w.file == nil {
		return nil
	}
	err := w.writer.Flush()
	if e := w.file.Close(); err == nil {
		err = e
	}
	w.file = nil
	w.writer = nil
	return err
}

// Reader loads a complete session log back into memory.
type Reader struct {
	path string
}

var _ ports.SampleLogReader = (*Reader)(nil)

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadAll parses the whole file. A truncated tail line (typical after a
// crash mid-write) is dropped rather than treated as corruption.
func (r *Reader) ReadAll() (string, []domain.Sample, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return "", nil, fmt.Errorf("open sample log %s: %w", r.path, err)
	}
	defer f.Close()

	var (
		sessionID string
		samples   []domain.Sample
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			if first {
				return "", nil, fmt.Errorf("corrupt sample log header: %w", err)
			}
			break
		}
		if first {
			first = false
			if rec.SessionID == "" {
				return "", nil, errors.New("sample log missing session header")
			}
			sessionID = rec.SessionID
			continue
		}
		voltages := make(map[domain.Channel]float64, len(rec.Voltages))
		for name, v := range rec.Voltages {
			voltages[domain.Channel(name)] = v
		}
		samples = append(samples, domain.Sample{
			Timestamp: rec.Timestamp,
			Elapsed:   time.Duration(rec.ElapsedMS) * time.Millisecond,
			Voltages:  voltages,
		})
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("read sample log: %w", err)
	}
	if sessionID == "" {
		return "", nil, errors.New("sample log is empty")
	}
	return sessionID, samples, nil
}
