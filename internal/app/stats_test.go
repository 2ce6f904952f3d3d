package app

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/roelfdiedericks/speechkit/internal/metrics"
)

func TestFormatMs(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "0ms"},
		{12.4, "12ms"},
		{999, "999ms"},
		{1000, "1.00s"},
		{73250, "73.25s"},
	}
	for _, tt := range tests {
		if got := formatMs(tt.ms); got != tt.want {
			t.Errorf("formatMs(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

// captureStdout returns what fn writes to os.Stdout.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	out := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		out <- string(data)
	}()

	runErr := fn()
	w.Close()
	got := <-out
	r.Close()
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	return got
}

func TestStatsCmd(t *testing.T) {
	m := metrics.GetInstance()
	m.RecordDuration("statstest/transcribe", "riva", 1500*time.Millisecond)
	m.RecordDuration("statstest/transcribe", "riva", 500*time.Millisecond)
	m.RecordSuccess("statstest/result", "riva")
	m.RecordFailure("statstest/result", "riva", "timeout")
	m.RecordDuration("otherstats/speak", "piper", time.Second)

	out := captureStdout(t, func() error {
		return (&StatsCmd{Filter: "statstest/"}).Run(&Env{})
	})

	for _, want := range []string{"METRIC", "statstest/transcribe/riva", "1.00s", "500ms", "1.50s", "statstest/result/riva", "50.0%", "timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "otherstats/") {
		t.Errorf("filter let through another prefix:\n%s", out)
	}
}

func TestStatsCmdNoMatches(t *testing.T) {
	out := captureStdout(t, func() error {
		return (&StatsCmd{Filter: "nothing-recorded-here/"}).Run(&Env{})
	})
	if strings.TrimSpace(out) != "No metrics recorded yet." {
		t.Errorf("output = %q", out)
	}
}
