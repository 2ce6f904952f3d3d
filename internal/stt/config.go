package stt

import (
	"fmt"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/paths"
)

// Config holds STT configuration.
type Config struct {
	Provider   string           `json:"provider"`   // "whispercpp", "riva", "openai", "groq", "google"
	Language   string           `json:"language"`   // BCP-47 code, or "multi" for detection
	WhisperCpp WhisperCppConfig `json:"whispercpp"` // Local whisper.cpp
	Riva       RivaConfig       `json:"riva"`       // NVIDIA Riva on NVCF
	OpenAI     OpenAIConfig     `json:"openai"`     // OpenAI Whisper API
	Groq       GroqConfig       `json:"groq"`       // Groq Whisper API
	Google     GoogleConfig     `json:"google"`     // Google Cloud STT
}

// WhisperCppConfig holds configuration for Whisper.cpp.
type WhisperCppConfig struct {
	ModelsDir string `json:"modelsDir"` // Directory containing whisper models
	Model     string `json:"model"`     // Model file (e.g., "ggml-base.bin"); overrides Size
	Size      string `json:"size"`      // tiny, base, small, medium, large
	Threads   uint   `json:"threads"`   // Number of threads (0 = auto)
}

// Providers lists the provider names New accepts.
var Providers = []string{"whispercpp", "riva", "openai", "groq", "google"}

// New creates the provider selected by cfg.Provider.
// The caller owns the provider and must Close it.
func New(cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "whispercpp", "local":
		return newWhisperCpp(cfg)
	case "riva", "nvidia":
		p, err = asProvider(NewRivaProvider(cfg.Riva, cfg.Language))
	case "openai":
		p, err = asProvider(NewOpenAIProvider(cfg.OpenAI, cfg.Language))
	case "groq":
		p, err = asProvider(NewGroqProvider(cfg.Groq, cfg.Language))
	case "google":
		p, err = asProvider(NewGoogleProvider(cfg.Google, cfg.Language))
	case "":
		return nil, fmt.Errorf("stt: no provider configured")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("stt: failed to initialize %s: %w", cfg.Provider, err)
	}
	return p, nil
}

// asProvider keeps a failed constructor from yielding a non-nil interface
// around a nil pointer.
func asProvider[P Provider](p P, err error) (Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// newWhisperCpp resolves the model file and makes sure it exists before loading.
func newWhisperCpp(cfg Config) (Provider, error) {
	wcfg := cfg.WhisperCpp
	if wcfg.ModelsDir == "" {
		wcfg.ModelsDir = paths.DefaultWhisperModelsDir()
	}

	modelsDir, err := paths.ExpandTilde(wcfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("stt: failed to expand models dir: %w", err)
	}
	wcfg.ModelsDir = modelsDir

	model, err := ResolveModel(wcfg)
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	wcfg.Model = model

	if !IsModelDownloaded(modelsDir, model) {
		return nil, fmt.Errorf("stt: model %s not found in %s - run 'asr models download %s'", model, modelsDir, model)
	}

	provider, err := NewWhisperCppProvider(wcfg, cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("stt: failed to initialize whispercpp: %w", err)
	}

	L_info("stt: whispercpp provider initialized", "model", model)
	return provider, nil
}
