//go:build whisper

package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

// WhisperCppProvider implements STT using a local whisper.cpp model.
type WhisperCppProvider struct {
	model    whisper.Model
	config   WhisperCppConfig
	language string
}

// NewWhisperCppProvider loads a whisper.cpp model. language is a BCP-47 code
// or "multi".
func NewWhisperCppProvider(cfg WhisperCppConfig, language string) (*WhisperCppProvider, error) {
	if cfg.ModelsDir == "" {
		return nil, fmt.Errorf("whisper.cpp modelsDir not configured")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("whisper.cpp model not configured")
	}

	modelPath := filepath.Join(cfg.ModelsDir, cfg.Model)
	L_info("stt: loading whisper.cpp model", "path", modelPath)

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}

	L_info("stt: whisper.cpp model loaded", "multilingual", model.IsMultilingual())

	return &WhisperCppProvider{
		model:    model,
		config:   cfg,
		language: WhisperLanguage(language),
	}, nil
}

// whisperFormats are handed to ConvertToFloat32 as-is; anything else is
// converted to WAV first. Without ffmpeg only WAV and OGG decode.
var whisperFormats = []audio.Format{audio.WAV, audio.MP3, audio.OGG, audio.FLAC, audio.M4A}

// Transcribe converts an audio file to text using Whisper.cpp.
func (w *WhisperCppProvider) Transcribe(ctx context.Context, filePath string) (Transcript, error) {
	L_debug("stt: whisper.cpp transcribing", "file", filePath)

	input := filePath
	if format := audio.Detect(filePath); !format.In(whisperFormats...) {
		L_info("stt: format not supported by whisper, converting to wav", "format", format)
		wavPath, cleanup, err := audio.ConvertToWAV(ctx, filePath)
		switch {
		case err == nil:
			defer cleanup()
			input = wavPath
		case errors.Is(err, audio.ErrFFmpegNotFound):
			L_warn("stt: ffmpeg not installed, trying original file")
		default:
			return Transcript{}, fmt.Errorf("convert audio: %w", err)
		}
	}

	samples, err := audio.ConvertToFloat32(ctx, input)
	if err != nil {
		return Transcript{}, fmt.Errorf("convert audio: %w", err)
	}
	L_debug("stt: audio converted", "samples", len(samples), "duration_sec", float64(len(samples))/float64(audio.TargetSampleRate))

	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return Transcript{}, fmt.Errorf("create whisper context: %w", err)
	}

	if w.language != "" {
		if err := wctx.SetLanguage(w.language); err != nil {
			L_warn("stt: failed to set language", "language", w.language, "error", err)
		}
	} else if err := wctx.SetLanguage("auto"); err != nil {
		L_debug("stt: auto language detection not supported for this model")
	}

	if w.config.Threads > 0 {
		wctx.SetThreads(w.config.Threads)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Transcript{}, fmt.Errorf("whisper process: %w", err)
	}

	var text strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Transcript{}, fmt.Errorf("get segment: %w", err)
		}
		text.WriteString(segment.Text)
	}

	result := single(w.Name(), text.String())
	L_debug("stt: whisper.cpp transcription complete", "length", len(result.Text()))
	return result, nil
}

// Name returns the provider name.
func (w *WhisperCppProvider) Name() string {
	return "whispercpp"
}

// Close releases the whisper model.
func (w *WhisperCppProvider) Close() error {
	L_debug("stt: closing whisper.cpp model")
	return w.model.Close()
}
