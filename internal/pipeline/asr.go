package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	"github.com/roelfdiedericks/speechkit/internal/config"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/paths"
)

// transcribe runs audio through the STT provider, splits the transcript into
// one sentence per line and writes it next to the original input. Providers
// convert formats themselves and remove their temp files before returning.
func (r *Runner) transcribe(ctx context.Context, job Job, emit func(string)) (*Result, error) {
	if r.STT == nil {
		return nil, fmt.Errorf("no STT provider configured")
	}
	info, err := os.Stat(job.Input)
	if err != nil {
		return nil, fmt.Errorf("audio file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("audio file: %s is a directory", job.Input)
	}
	if !audio.IsAudioFile(job.Input) {
		L_warn("pipeline: input does not look like audio, trying anyway", "input", job.Input)
	}

	emit(fmt.Sprintf("transcribing %s with %s", filepath.Base(job.Input), r.STT.Name()))
	transcript, err := r.STT.Transcribe(ctx, job.Input)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	text := r.Segmenter.FormatAll(transcript.Parts)
	sentences := 0
	if text != "" {
		sentences = strings.Count(text, "\n") + 1
		emit(fmt.Sprintf("segmented into %d sentences", sentences))
	} else {
		// An empty transcript is still written.
		emit("no speech recognized")
	}

	output := job.Output
	if output == "" {
		output = paths.Sibling(job.Input, ".txt")
	}
	if err := config.AtomicWrite(output, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("write transcript: %w", err)
	}

	return &Result{Input: job.Input, Output: output, Text: text, Sentences: sentences}, nil
}
