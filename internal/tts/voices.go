package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/speechkit/internal/paths"
)

const magpiePrefix = "Magpie-Multilingual.EN-US."

// MagpieVoices are the voices served by the Riva Magpie TTS function.
var MagpieVoices = []string{
	magpiePrefix + "Aria",
	magpiePrefix + "Jason",
	magpiePrefix + "Leo",
	magpiePrefix + "Sofia",
	magpiePrefix + "Mia",
	magpiePrefix + "Aria.Neutral",
	magpiePrefix + "Aria.Happy",
	magpiePrefix + "Aria.Sad",
	magpiePrefix + "Aria.Calm",
}

// DefaultMagpieVoice is used when no voice is configured.
var DefaultMagpieVoice = MagpieVoices[0]

// MagpieVoice accepts a full voice name or its short form ("Leo", "Aria.Calm").
func MagpieVoice(name string) (string, error) {
	if name == "" {
		return DefaultMagpieVoice, nil
	}
	for _, v := range MagpieVoices {
		if strings.EqualFold(v, name) || strings.EqualFold(strings.TrimPrefix(v, magpiePrefix), name) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown magpie voice %q", name)
}

// ListPiperVoices returns the .onnx voice files in modelsDir, sorted.
// The directory is created when it does not exist yet.
func ListPiperVoices(modelsDir string) ([]string, error) {
	dir, err := paths.ExpandTilde(modelsDir)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create voices directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read voices directory: %w", err)
	}
	var voices []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".onnx") {
			voices = append(voices, e.Name())
		}
	}
	sort.Strings(voices)
	return voices, nil
}

// openAIVoices are the built-in OpenAI speech voices.
var openAIVoices = []string{
	string(openai.VoiceAlloy), string(openai.VoiceEcho), string(openai.VoiceFable),
	string(openai.VoiceOnyx), string(openai.VoiceNova), string(openai.VoiceShimmer),
}

// ListVoices returns the voices available to the configured provider.
func ListVoices(cfg Config) ([]string, error) {
	switch cfg.Provider {
	case "piper", "local":
		dir := cfg.Piper.ModelsDir
		if dir == "" {
			dir = DefaultPiperModelsDir
		}
		return ListPiperVoices(dir)
	case "riva", "nvidia", "magpie":
		return append([]string(nil), MagpieVoices...), nil
	case "openai":
		return append([]string(nil), openAIVoices...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
