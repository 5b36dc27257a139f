package samplelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

func logSample(sec int, mw float64) domain.Sample {
	return domain.Sample{
		Timestamp: time.Unix(1700000000+int64(sec), 0).UTC(),
		Elapsed:   time.Duration(sec) * time.Second,
		Voltages: map[domain.Channel]float64{
			domain.ChannelMicrowave:  mw,
			domain.ChannelDoorSwitch: 0.1,
		},
	}
}

func TestWriteThenReadBack(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := w.Begin("session-42"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := w.Append(logSample(i, 5.0)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(dir, "session-42.samples.jsonl")
	sessionID, samples, err := NewReader(path).ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if sessionID != "session-42" {
		t.Fatalf("session id: got %q", sessionID)
	}
	if len(samples) != 5 {
		t.Fatalf("samples: got %d", len(samples))
	}
	for i, s := range samples {
		if s.Elapsed != time.Duration(i)*time.Second {
			t.Fatalf("sample %d elapsed: %s", i, s.Elapsed)
		}
		if s.Voltages[domain.ChannelMicrowave] != 5.0 {
			t.Fatalf("sample %d voltage lost: %v", i, s.Voltages)
		}
	}
}

func TestAppendWithoutBegin(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Append(logSample(0, 5.0)); err == nil {
		t.Fatal("expected error appending before Begin")
	}
}

func TestBeginRotatesSessions(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := w.Begin("first"); err != nil {
		t.Fatalf("begin first: %v", err)
	}
	if err := w.Append(logSample(0, 5.0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Begin("second"); err != nil {
		t.Fatalf("begin second: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The first session's file is intact and readable after rotation.
	id, samples, err := NewReader(filepath.Join(dir, "first.samples.jsonl")).ReadAll()
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if id != "first" || len(samples) != 1 {
		t.Fatalf("first session: id %q, %d samples", id, len(samples))
	}
}

func TestReadAllDropsTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Begin("crashy"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := w.Append(logSample(0, 5.0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(dir, "crashy.samples.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"ts":"2023-11-1`); err != nil {
		t.Fatalf("write torn line: %v", err)
	}
	f.Close()

	id, samples, err := NewReader(path).ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if id != "crashy" || len(samples) != 1 {
		t.Fatalf("got id %q with %d samples", id, len(samples))
	}
}

func TestReadAllRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.samples.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewReader(path).ReadAll(); err == nil {
		t.Fatal("expected error for empty log")
	}
}
