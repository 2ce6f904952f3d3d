// Package stt provides speech-to-text transcription for audio files.
package stt

import (
	"context"
	"errors"
	"strings"
)

// ErrUnknownProvider is returned for a provider name that has no implementation.
var ErrUnknownProvider = errors.New("stt: unknown provider")

// Provider is the interface for STT implementations.
type Provider interface {
	// Transcribe converts an audio file to text.
	// The file may be in any format; providers convert as needed.
	Transcribe(ctx context.Context, filePath string) (Transcript, error)

	// Name returns the provider name (e.g., "whispercpp", "riva")
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// Transcript is the raw engine output. Engines that recognise audio in
// chunks return one part per chunk, in audio order.
type Transcript struct {
	Parts    []string
	Provider string
}

// Text returns all parts joined by a space.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Empty reports whether the engine recognised no speech.
func (t Transcript) Empty() bool {
	return t.Text() == ""
}

func single(provider, text string) Transcript {
	return Transcript{Parts: []string{strings.TrimSpace(text)}, Provider: provider}
}
