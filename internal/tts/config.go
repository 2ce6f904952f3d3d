package tts

import "fmt"

// Config holds TTS configuration.
type Config struct {
	Provider string       `json:"provider"` // "piper", "riva", "openai"
	Language string       `json:"language"` // BCP-47 code; empty detects from text
	Piper    PiperConfig  `json:"piper"`
	Riva     RivaConfig   `json:"riva"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// Providers lists the provider names New accepts.
var Providers = []string{"piper", "riva", "openai"}

// New creates the provider selected by cfg.Provider.
// The caller owns the provider and must Close it.
func New(cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "piper", "local":
		p, err = asProvider(NewPiperProvider(cfg.Piper))
	case "riva", "nvidia", "magpie":
		p, err = asProvider(NewRivaProvider(cfg.Riva))
	case "openai":
		p, err = asProvider(NewOpenAIProvider(cfg.OpenAI))
	case "":
		return nil, fmt.Errorf("tts: no provider configured")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("tts: failed to initialize %s: %w", cfg.Provider, err)
	}
	return p, nil
}

func asProvider[P Provider](p P, err error) (Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
