package metrics

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshot(t *testing.T) {
	m := NewManager()
	m.RecordDuration("pipeline/transcribe", "riva", 100*time.Millisecond)
	m.RecordDuration("pipeline/transcribe", "riva", 300*time.Millisecond)
	m.RecordSuccess("pipeline/transcribe", "riva")
	m.RecordFailure("pipeline/transcribe", "riva", "timeout")
	m.RecordFailure("pipeline/transcribe", "riva", "timeout")
	m.RecordFailure("pipeline/transcribe", "riva", "auth")

	snaps := m.GetSnapshot()
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %+v", snaps)
	}
	var timing, outcome Snapshot
	for _, s := range snaps {
		if s.Path != "pipeline/transcribe/riva" {
			t.Errorf("path = %q", s.Path)
		}
		switch s.Type {
		case TypeTiming:
			timing = s
		case TypeSuccessFail:
			outcome = s
		}
	}
	if timing.Count != 2 || timing.AvgMs != 200 || timing.MinMs != 100 || timing.MaxMs != 300 || timing.LastMs != 300 {
		t.Errorf("timing = %+v", timing)
	}
	if outcome.Success != 1 || outcome.Failures != 3 || outcome.SuccessRate != 25 || outcome.TopFailure != "timeout" {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metrics.db")

	first := NewManager()
	if err := first.Open(dbPath); err != nil {
		t.Fatalf("Open: %v", err)
	}
	first.RecordDuration("pipeline/synthesize", "piper", 2*time.Second)
	first.RecordSuccess("pipeline/synthesize", "piper")
	first.RecordFailure("pipeline/synthesize", "piper", "voice missing")
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := NewManager()
	second.RecordDuration("pipeline/synthesize", "piper", time.Second)
	if err := second.Open(dbPath); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	for _, s := range second.GetSnapshot() {
		switch s.Type {
		case TypeTiming:
			if s.Count != 2 || s.MinMs != 1000 || s.MaxMs != 2000 {
				t.Errorf("merged timing = %+v", s)
			}
		case TypeSuccessFail:
			if s.Success != 1 || s.Failures != 1 || s.TopFailure != "voice missing" {
				t.Errorf("restored outcome = %+v", s)
			}
		}
	}
}

func TestCloseWithoutOpen(t *testing.T) {
	if err := NewManager().Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := NewManager().Save(); err != nil {
		t.Errorf("Save: %v", err)
	}
}
