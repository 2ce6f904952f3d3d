package stt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const whisperModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// WhisperModel represents an available whisper.cpp model.
type WhisperModel struct {
	Name      string // Filename: "ggml-tiny.bin"
	Size      string // tiny, base, small, medium, large
	Label     string // Display name: "Tiny Multilingual"
	SizeBytes int64  // For progress calculation
	URL       string // Download URL
}

func whisperModel(name, size, label string, bytes int64) WhisperModel {
	return WhisperModel{Name: name, Size: size, Label: label, SizeBytes: bytes, URL: whisperModelBaseURL + name}
}

// WhisperModels is the catalog of available whisper.cpp models.
// Models from: https://huggingface.co/ggerganov/whisper.cpp
var WhisperModels = []WhisperModel{
	whisperModel("ggml-tiny.bin", "tiny", "Tiny Multilingual", 77_700_000),
	whisperModel("ggml-tiny.en.bin", "tiny.en", "Tiny English", 77_700_000),
	whisperModel("ggml-base.bin", "base", "Base Multilingual", 147_900_000),
	whisperModel("ggml-base.en.bin", "base.en", "Base English", 147_900_000),
	whisperModel("ggml-small.bin", "small", "Small Multilingual", 487_600_000),
	whisperModel("ggml-small.en.bin", "small.en", "Small English", 487_600_000),
	whisperModel("ggml-medium.bin", "medium", "Medium Multilingual", 1_533_800_000),
	whisperModel("ggml-large-v3.bin", "large", "Large V3 Multilingual", 3_095_000_000),
	whisperModel("ggml-large-v3-turbo.bin", "turbo", "Large V3 Turbo Multilingual", 1_624_600_000),
}

// DefaultWhisperSize is the model size used when none is configured.
const DefaultWhisperSize = "base"

// GetModel returns the model with the given file name or size, or nil if not found.
func GetModel(nameOrSize string) *WhisperModel {
	key := strings.ToLower(strings.TrimSpace(nameOrSize))
	for i := range WhisperModels {
		if WhisperModels[i].Name == key || WhisperModels[i].Size == key {
			return &WhisperModels[i]
		}
	}
	return nil
}

// ResolveModel returns the model file name for cfg: Model if set, else the
// catalog entry for Size (default "base").
func ResolveModel(cfg WhisperCppConfig) (string, error) {
	if cfg.Model != "" {
		return cfg.Model, nil
	}
	size := cfg.Size
	if size == "" {
		size = DefaultWhisperSize
	}
	m := GetModel(size)
	if m == nil {
		return "", fmt.Errorf("unknown whisper model size %q", size)
	}
	return m.Name, nil
}

// IsModelDownloaded checks if a model file exists in the given directory.
func IsModelDownloaded(modelsDir, name string) bool {
	if modelsDir == "" || name == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(modelsDir, name))
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// ModelStatus is a catalog entry with its local download state.
type ModelStatus struct {
	WhisperModel
	Downloaded bool
}

// ListModels returns the catalog annotated with download state.
func ListModels(modelsDir string) []ModelStatus {
	out := make([]ModelStatus, 0, len(WhisperModels))
	for _, m := range WhisperModels {
		out = append(out, ModelStatus{WhisperModel: m, Downloaded: IsModelDownloaded(modelsDir, m.Name)})
	}
	return out
}
