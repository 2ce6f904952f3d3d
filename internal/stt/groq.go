package stt

import "fmt"

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqConfig holds Groq Whisper configuration.
type GroqConfig struct {
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`   // "whisper-large-v3", "whisper-large-v3-turbo", "distil-whisper-large-v3-en"
	BaseURL string `json:"baseUrl"` // defaults to the public Groq endpoint
}

// NewGroqProvider creates a Groq Whisper STT provider. Groq serves the
// OpenAI transcription API, so this is an OpenAIProvider under another name.
func NewGroqProvider(cfg GroqConfig, language string) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key not configured")
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-large-v3"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	return newOpenAICompatible("groq", cfg.APIKey, baseURL, model, language), nil
}
