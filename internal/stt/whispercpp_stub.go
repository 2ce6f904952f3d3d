//go:build !whisper

package stt

import (
	"context"
	"errors"
)

// ErrWhisperUnavailable is returned when the binary was built without the
// whisper build tag (whisper.cpp needs cgo and libwhisper).
var ErrWhisperUnavailable = errors.New("stt: built without whisper.cpp support (rebuild with -tags whisper)")

// WhisperCppProvider is unavailable in this build.
type WhisperCppProvider struct{}

// NewWhisperCppProvider always fails in builds without the whisper tag.
func NewWhisperCppProvider(cfg WhisperCppConfig, language string) (*WhisperCppProvider, error) {
	return nil, ErrWhisperUnavailable
}

func (w *WhisperCppProvider) Transcribe(ctx context.Context, filePath string) (Transcript, error) {
	return Transcript{}, ErrWhisperUnavailable
}

func (w *WhisperCppProvider) Name() string { return "whispercpp" }

func (w *WhisperCppProvider) Close() error { return nil }
