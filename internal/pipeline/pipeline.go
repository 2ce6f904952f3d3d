// Package pipeline runs transcription and synthesis jobs in the background
// and reports on them through an event channel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	. "github.com/roelfdiedericks/speechkit/internal/metrics"
	"github.com/roelfdiedericks/speechkit/internal/segment"
	"github.com/roelfdiedericks/speechkit/internal/stt"
	"github.com/roelfdiedericks/speechkit/internal/tts"
)

// Kind identifies an event.
type Kind string

const (
	EventProgress Kind = "progress"
	EventResult   Kind = "result"
	EventError    Kind = "error"
	EventDone     Kind = "done" // always last
)

// JobType selects the pipeline a job runs through.
type JobType int

const (
	Transcribe JobType = iota // audio file -> .txt
	Synthesize                // text file -> .wav
)

func (t JobType) String() string {
	switch t {
	case Transcribe:
		return "transcribe"
	case Synthesize:
		return "synthesize"
	default:
		return fmt.Sprintf("JobType(%d)", int(t))
	}
}

// Job is one unit of work.
type Job struct {
	ID       string
	Type     JobType
	Input    string // audio file for Transcribe, text file for Synthesize
	Output   string // optional; defaults to Input with .txt or .wav
	Voice    string // Synthesize only
	Language string // Synthesize only; empty detects from text
}

// NewTranscribeJob returns a job that transcribes the audio file at input.
func NewTranscribeJob(input string) Job {
	return Job{ID: uuid.NewString(), Type: Transcribe, Input: input}
}

// NewSynthesizeJob returns a job that speaks the text file at input.
func NewSynthesizeJob(input string) Job {
	return Job{ID: uuid.NewString(), Type: Synthesize, Input: input}
}

// Result describes a finished job.
type Result struct {
	Input     string
	Output    string
	Text      string        // segmented transcript, or the synthesized text
	Sentences int           // Transcribe only
	Duration  time.Duration // Synthesize only: length of the audio
	Elapsed   time.Duration
}

// Event is emitted while a job runs.
type Event struct {
	JobID   string
	Kind    Kind
	Message string
	Result  *Result // set on EventResult
	Err     error   // set on EventError
}

// Runner holds the engines jobs run against. A nil provider fails the jobs
// that need it.
type Runner struct {
	STT       stt.Provider
	TTS       tts.Provider
	Segmenter segment.Segmenter
}

// eventBuffer exceeds the number of events a single job emits, so a job
// never blocks on a slow reader.
const eventBuffer = 16

// Run starts job on its own goroutine. The returned channel yields progress,
// then exactly one result or error, then done, and is closed afterwards.
func (r *Runner) Run(ctx context.Context, job Job) <-chan Event {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	events := make(chan Event, eventBuffer)

	go func() {
		defer close(events)
		defer func() { events <- Event{JobID: job.ID, Kind: EventDone} }()

		start := time.Now()
		emit := func(msg string) {
			events <- Event{JobID: job.ID, Kind: EventProgress, Message: msg}
		}

		var (
			res *Result
			err error
		)
		switch job.Type {
		case Transcribe:
			res, err = r.transcribe(ctx, job, emit)
		case Synthesize:
			res, err = r.synthesize(ctx, job, emit)
		default:
			err = fmt.Errorf("unknown job type %s", job.Type)
		}

		topic, engine := "pipeline/"+job.Type.String(), r.engineName(job.Type)
		if err != nil {
			MetricFailWithReason(topic, engine, failureReason(ctx, err))
			L_error("pipeline: job failed", "job", job.ID, "type", job.Type, "input", job.Input, "error", err)
			events <- Event{JobID: job.ID, Kind: EventError, Message: err.Error(), Err: err}
			return
		}

		res.Elapsed = time.Since(start)
		MetricDuration(topic, engine, res.Elapsed)
		MetricSuccess(topic, engine)
		L_elapsed(start, "pipeline: job complete", "job", job.ID, "type", job.Type, "output", res.Output)
		events <- Event{JobID: job.ID, Kind: EventResult, Message: res.Output, Result: res}
	}()

	return events
}

func (r *Runner) engineName(t JobType) string {
	switch {
	case t == Transcribe && r.STT != nil:
		return r.STT.Name()
	case t == Synthesize && r.TTS != nil:
		return r.TTS.Name()
	default:
		return "none"
	}
}

// failureReason is a short, low-cardinality label for err.
func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, os.ErrNotExist):
		return "not found"
	case errors.Is(err, audio.ErrFFmpegNotFound):
		return "ffmpeg missing"
	default:
		return "error"
	}
}

// Wait drains events and returns the job's result or error. progress, when
// non-nil, is called for each progress message.
func Wait(events <-chan Event, progress func(string)) (*Result, error) {
	var (
		res *Result
		err error
	)
	for ev := range events {
		switch ev.Kind {
		case EventProgress:
			if progress != nil {
				progress(ev.Message)
			}
		case EventResult:
			res = ev.Result
		case EventError:
			err = ev.Err
		}
	}
	if res == nil && err == nil {
		err = fmt.Errorf("pipeline: job ended without a result")
	}
	return res, err
}
