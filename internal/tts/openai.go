package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

// OpenAIConfig holds OpenAI speech API configuration.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`   // "tts-1", "tts-1-hd", "gpt-4o-mini-tts"
	Voice   string `json:"voice"`   // "alloy", "nova", ...
	BaseURL string `json:"baseUrl"` // optional, for OpenAI-compatible servers
}

// OpenAIProvider implements TTS using the OpenAI speech endpoint.
type OpenAIProvider struct {
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI TTS provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: 5 * time.Minute}

	model := openai.SpeechModel(cfg.Model)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(cfg.Voice)
	if voice == "" {
		voice = openai.VoiceAlloy
	}

	L_info("tts: openai provider initialized", "model", model, "voice", voice)
	return &OpenAIProvider{model: model, voice: voice, client: openai.NewClientWithConfig(config)}, nil
}

// Synthesize asks for WAV output directly. The language is implied by the text.
func (o *OpenAIProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	voice := o.voice
	if req.Voice != "" {
		voice = openai.SpeechVoice(req.Voice)
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          req.Text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		L_error("tts: openai request failed", "error", err)
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	L_debug("tts: openai synthesis complete", "bytes", len(data))
	return data, nil
}

// Name returns the provider name.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Close releases any resources (none for HTTP client).
func (o *OpenAIProvider) Close() error {
	return nil
}
