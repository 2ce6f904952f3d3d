package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	"github.com/roelfdiedericks/speechkit/internal/metrics"
	"github.com/roelfdiedericks/speechkit/internal/segment"
	"github.com/roelfdiedericks/speechkit/internal/stt"
	"github.com/roelfdiedericks/speechkit/internal/tts"
)

type fakeSTT struct {
	parts []string
	err   error
	got   string
}

func (f *fakeSTT) Transcribe(_ context.Context, path string) (stt.Transcript, error) {
	f.got = path
	return stt.Transcript{Parts: f.parts, Provider: "fake"}, f.err
}
func (f *fakeSTT) Name() string { return "fake" }
func (f *fakeSTT) Close() error { return nil }

type fakeTTS struct {
	req tts.Request
}

func (f *fakeTTS) Synthesize(_ context.Context, req tts.Request) ([]byte, error) {
	f.req = req
	return audio.EncodeWAV(make([]byte, 2*8000), 8000) // one second
}
func (f *fakeTTS) Name() string { return "fake" }
func (f *fakeTTS) Close() error { return nil }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestTranscribeJob(t *testing.T) {
	input := writeFile(t, "meeting.m4a", "not really audio")
	engine := &fakeSTT{parts: []string{"你好。今天天气很好", "Hello... how are you?!"}}
	r := &Runner{STT: engine}

	job := NewTranscribeJob(input)
	events := collect(r.Run(context.Background(), job))

	if len(events) < 3 {
		t.Fatalf("events = %+v", events)
	}
	last := events[len(events)-1]
	if last.Kind != EventDone {
		t.Errorf("last event = %s, want done", last.Kind)
	}
	result := events[len(events)-2]
	if result.Kind != EventResult || result.Result == nil {
		t.Fatalf("result event = %+v", result)
	}
	for _, ev := range events {
		if ev.JobID != job.ID {
			t.Errorf("event job id = %q, want %q", ev.JobID, job.ID)
		}
	}

	want := "你好。\n今天天气很好。\nHello.\nhow are you!"
	if result.Result.Text != want {
		t.Errorf("text = %q, want %q", result.Result.Text, want)
	}
	if result.Result.Sentences != 4 {
		t.Errorf("sentences = %d", result.Result.Sentences)
	}

	wantOut := filepath.Join(filepath.Dir(input), "meeting.txt")
	if result.Result.Output != wantOut {
		t.Errorf("output = %q, want %q", result.Result.Output, wantOut)
	}
	data, err := os.ReadFile(wantOut)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("file = %q", data)
	}
	if engine.got != input {
		t.Errorf("provider got %q", engine.got)
	}
}

func TestTranscribeCustomTerminator(t *testing.T) {
	input := writeFile(t, "a.wav", "x")
	r := &Runner{STT: &fakeSTT{parts: []string{"no punctuation here"}}, Segmenter: segment.Segmenter{Terminator: '.'}}

	res, err := Wait(r.Run(context.Background(), NewTranscribeJob(input)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "no punctuation here." {
		t.Errorf("text = %q", res.Text)
	}
}

func TestTranscribeEmptyWritesEmptyFile(t *testing.T) {
	input := writeFile(t, "silence.wav", "x")
	r := &Runner{STT: &fakeSTT{parts: []string{" ", "。。"}}}

	var progress []string
	res, err := Wait(r.Run(context.Background(), NewTranscribeJob(input)), func(m string) { progress = append(progress, m) })
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "" || res.Sentences != 0 {
		t.Errorf("result = %+v", res)
	}
	if info, err := os.Stat(res.Output); err != nil || info.Size() != 0 {
		t.Errorf("output stat = %v, %v", info, err)
	}
	found := false
	for _, m := range progress {
		found = found || m == "no speech recognized"
	}
	if !found {
		t.Errorf("progress = %q", progress)
	}
}

func TestTranscribeErrors(t *testing.T) {
	boom := errors.New("engine exploded")
	input := writeFile(t, "a.wav", "x")

	tests := []struct {
		name   string
		runner *Runner
		input  string
	}{
		{"no provider", &Runner{}, input},
		{"missing file", &Runner{STT: &fakeSTT{}}, filepath.Join(t.TempDir(), "gone.wav")},
		{"directory", &Runner{STT: &fakeSTT{}}, t.TempDir()},
		{"engine error", &Runner{STT: &fakeSTT{err: boom}}, input},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := collect(tt.runner.Run(context.Background(), NewTranscribeJob(tt.input)))
			if n := len(events); n < 2 || events[n-2].Kind != EventError || events[n-1].Kind != EventDone {
				t.Fatalf("events = %+v", events)
			}
		})
	}

	_, err := Wait((&Runner{STT: &fakeSTT{err: boom}}).Run(context.Background(), NewTranscribeJob(input)), nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped engine error", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(input), "a.txt")); !os.IsNotExist(err) {
		t.Error("failed job wrote a transcript")
	}
}

func TestSynthesizeJob(t *testing.T) {
	input := writeFile(t, "story.txt", "  Hello there.\n")
	engine := &fakeTTS{}
	r := &Runner{TTS: engine}

	job := NewSynthesizeJob(input)
	job.Voice = "Leo"
	res, err := Wait(r.Run(context.Background(), job), nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if engine.req.Text != "Hello there." || engine.req.Voice != "Leo" {
		t.Errorf("request = %+v", engine.req)
	}
	if filepath.Base(res.Output) != "story.wav" {
		t.Errorf("output = %q", res.Output)
	}
	if res.Duration.Seconds() < 0.99 || res.Duration.Seconds() > 1.01 {
		t.Errorf("duration = %v", res.Duration)
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	input := writeFile(t, "empty.txt", " \n\t")
	_, err := Wait((&Runner{TTS: &fakeTTS{}}).Run(context.Background(), NewSynthesizeJob(input)), nil)
	if err == nil {
		t.Error("expected error for empty text")
	}
}

func TestUnknownJobType(t *testing.T) {
	_, err := Wait((&Runner{}).Run(context.Background(), Job{Type: JobType(42)}), nil)
	if err == nil {
		t.Error("expected error for unknown job type")
	}
}

func TestJobsRecordMetrics(t *testing.T) {
	r := &Runner{TTS: &fakeTTS{}}
	if _, err := Wait(r.Run(context.Background(), NewSynthesizeJob(writeFile(t, "m.txt", "hi"))), nil); err != nil {
		t.Fatal(err)
	}
	_, _ = Wait(r.Run(context.Background(), NewSynthesizeJob(filepath.Join(t.TempDir(), "gone.txt"))), nil)

	var timing, outcome *metrics.Snapshot
	for _, s := range metrics.GetInstance().GetSnapshot() {
		if s.Path != "pipeline/synthesize/fake" {
			continue
		}
		switch s.Type {
		case metrics.TypeTiming:
			timing = &s
		case metrics.TypeSuccessFail:
			outcome = &s
		}
	}
	if timing == nil || timing.Count < 1 {
		t.Fatalf("timing not recorded: %+v", timing)
	}
	if outcome == nil || outcome.Success < 1 || outcome.Failures < 1 {
		t.Fatalf("outcome not recorded: %+v", outcome)
	}
}

func TestFailureReason(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		ctx  context.Context
		err  error
		want string
	}{
		{cancelled, errors.New("boom"), "cancelled"},
		{context.Background(), fmt.Errorf("wrap: %w", context.DeadlineExceeded), "timeout"},
		{context.Background(), fmt.Errorf("text file: %w", os.ErrNotExist), "not found"},
		{context.Background(), fmt.Errorf("convert: %w", audio.ErrFFmpegNotFound), "ffmpeg missing"},
		{context.Background(), errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := failureReason(tt.ctx, tt.err); got != tt.want {
			t.Errorf("failureReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
