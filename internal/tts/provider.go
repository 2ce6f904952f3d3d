// Package tts synthesizes speech from text into WAV audio.
package tts

import (
	"context"
	"errors"
)

// ErrUnknownProvider is returned for a provider name that has no implementation.
var ErrUnknownProvider = errors.New("tts: unknown provider")

// Request describes one synthesis.
type Request struct {
	Text     string
	Voice    string // provider-specific voice; empty selects the configured default
	Language string // BCP-47 code; empty lets the provider decide
}

// Provider is the interface for TTS implementations.
type Provider interface {
	// Synthesize returns a complete WAV file for req.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Name returns the provider name (e.g., "piper", "riva")
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}
