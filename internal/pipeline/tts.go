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
	"github.com/roelfdiedericks/speechkit/internal/tts"
)

// synthesize speaks the text file and writes the WAV next to it.
func (r *Runner) synthesize(ctx context.Context, job Job, emit func(string)) (*Result, error) {
	if r.TTS == nil {
		return nil, fmt.Errorf("no TTS provider configured")
	}
	data, err := os.ReadFile(job.Input)
	if err != nil {
		return nil, fmt.Errorf("text file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("text file %s is empty", job.Input)
	}

	emit(fmt.Sprintf("synthesizing %s with %s", filepath.Base(job.Input), r.TTS.Name()))
	wav, err := r.TTS.Synthesize(ctx, tts.Request{Text: text, Voice: job.Voice, Language: job.Language})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	output := job.Output
	if output == "" {
		output = paths.Sibling(job.Input, ".wav")
	}
	if err := config.AtomicWrite(output, wav, 0644); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}

	res := &Result{Input: job.Input, Output: output, Text: text}
	if info, err := audio.ReadWAVInfo(output); err == nil {
		res.Duration = info.Duration
	} else {
		L_debug("pipeline: could not read wav header", "output", output, "error", err)
	}
	return res, nil
}
