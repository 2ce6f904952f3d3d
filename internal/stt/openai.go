package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

// OpenAIConfig holds OpenAI Whisper configuration.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`   // "whisper-1", "gpt-4o-mini-transcribe"
	BaseURL string `json:"baseUrl"` // optional, for OpenAI-compatible servers
}

// OpenAIProvider implements STT using an OpenAI-compatible transcription API.
// Groq reuses it with a different base URL.
type OpenAIProvider struct {
	name     string
	model    string
	language string
	client   *openai.Client
}

// NewOpenAIProvider creates a new OpenAI Whisper STT provider.
func NewOpenAIProvider(cfg OpenAIConfig, language string) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return newOpenAICompatible("openai", cfg.APIKey, cfg.BaseURL, model, language), nil
}

func newOpenAICompatible(name, apiKey, baseURL, model, language string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/v1") && !strings.HasSuffix(baseURL, "/v1/") {
			baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
		}
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: 10 * time.Minute}

	L_info("stt: "+name+" provider initialized", "model", model, "baseUrl", config.BaseURL)

	return &OpenAIProvider{
		name:     name,
		model:    model,
		language: WhisperLanguage(language),
		client:   openai.NewClientWithConfig(config),
	}
}

// Transcribe uploads the file as-is; the API accepts common formats directly.
func (o *OpenAIProvider) Transcribe(ctx context.Context, filePath string) (Transcript, error) {
	L_debug("stt: "+o.name+" transcribing", "file", filePath, "model", o.model, "language", o.language)

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: filePath,
		Language: o.language,
	})
	if err != nil {
		L_error("stt: "+o.name+" request failed", "error", err)
		return Transcript{}, fmt.Errorf("%s API error: %w", o.name, err)
	}

	L_debug("stt: "+o.name+" transcription complete", "length", len(resp.Text))
	return single(o.name, resp.Text), nil
}

// Name returns the provider name.
func (o *OpenAIProvider) Name() string {
	return o.name
}

// Close releases any resources (none for HTTP client).
func (o *OpenAIProvider) Close() error {
	return nil
}
