package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

const googleEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

// GoogleConfig holds Google Cloud STT configuration.
type GoogleConfig struct {
	APIKey       string `json:"apiKey"`       // Simple API key
	LanguageCode string `json:"languageCode"` // overrides the global language, e.g. "en-ZA"
	Endpoint     string `json:"endpoint"`     // optional override of the recognize URL
}

// GoogleProvider implements STT using Google Cloud Speech-to-Text API.
type GoogleProvider struct {
	config GoogleConfig
	client *http.Client
}

// NewGoogleProvider creates a new Google Cloud STT provider.
// Google has no automatic detection on this endpoint; "multi" falls back to en-US.
func NewGoogleProvider(cfg GoogleConfig, language string) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key not configured")
	}

	lang := cfg.LanguageCode
	if lang == "" && !IsAuto(language) {
		lang = language
	}
	if lang == "" {
		lang = "en-US"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = googleEndpoint
	}

	L_info("stt: google provider initialized", "language", lang)

	return &GoogleProvider{
		config: GoogleConfig{
			APIKey:       cfg.APIKey,
			LanguageCode: lang,
			Endpoint:     endpoint,
		},
		client: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// googleEncoding picks the RecognitionConfig encoding and sample rate for a
// file. A zero rate lets Google read it from the file header.
func googleEncoding(filePath string) (string, int) {
	format := audio.Detect(filePath)
	switch {
	case format.IsOgg():
		rate := audio.OggSampleRate(filePath)
		if rate == 0 {
			rate = 48000
		}
		return "OGG_OPUS", rate
	case format == audio.WAV:
		return "LINEAR16", 0
	case format == audio.MP3:
		return "MP3", 0
	case format == audio.FLAC:
		return "FLAC", 0
	default:
		return "", 0
	}
}

// Transcribe converts an audio file to text using Google Cloud Speech-to-Text.
// OGG/Opus, WAV, MP3 and FLAC are sent directly; anything else is converted
// to WAV first.
func (g *GoogleProvider) Transcribe(ctx context.Context, filePath string) (Transcript, error) {
	L_debug("stt: google transcribing", "file", filePath)

	encoding, sampleRate := googleEncoding(filePath)
	if encoding == "" {
		wavPath, cleanup, err := audio.ConvertToWAV(ctx, filePath)
		if err != nil {
			return Transcript{}, fmt.Errorf("convert audio: %w", err)
		}
		defer cleanup()
		filePath = wavPath
		encoding, sampleRate = "LINEAR16", audio.TargetSampleRate
	}

	audioData, err := os.ReadFile(filePath)
	if err != nil {
		return Transcript{}, fmt.Errorf("read audio file: %w", err)
	}

	config := map[string]interface{}{
		"encoding":                   encoding,
		"languageCode":               g.config.LanguageCode,
		"model":                      "default",
		"enableAutomaticPunctuation": true,
	}
	if sampleRate > 0 {
		config["sampleRateHertz"] = sampleRate
	}

	reqBody := map[string]interface{}{
		"config": config,
		"audio": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(audioData),
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return Transcript{}, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := g.config.Endpoint + "?key=" + url.QueryEscape(g.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(jsonBody))
	if err != nil {
		return Transcript{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	L_debug("stt: sending to google", "encoding", encoding, "language", g.config.LanguageCode)

	resp, err := g.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcript{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		L_error("stt: google request failed", "status", resp.StatusCode, "body", string(body))

		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return Transcript{}, fmt.Errorf("google API error: %s", errResp.Error.Message)
		}
		return Transcript{}, fmt.Errorf("google API error: status %d", resp.StatusCode)
	}

	var result struct {
		Results []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Transcript{}, fmt.Errorf("parse response: %w", err)
	}

	transcript := Transcript{Provider: g.Name()}
	for _, r := range result.Results {
		if len(r.Alternatives) > 0 {
			transcript.Parts = append(transcript.Parts, r.Alternatives[0].Transcript)
		}
	}

	L_debug("stt: google transcription complete", "results", len(transcript.Parts), "length", len(transcript.Text()))
	return transcript, nil
}

// Name returns the provider name.
func (g *GoogleProvider) Name() string {
	return "google"
}

// Close releases any resources (none for HTTP client).
func (g *GoogleProvider) Close() error {
	return nil
}
