package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/paths"
)

// DefaultPiperModelsDir holds .onnx voices, relative to the working directory.
const DefaultPiperModelsDir = "models"

// PiperConfig holds configuration for local Piper synthesis.
type PiperConfig struct {
	Binary    string `json:"binary"`    // piper executable, default "piper"
	ModelsDir string `json:"modelsDir"` // directory of .onnx voices, default ./models
	Voice     string `json:"voice"`     // default voice file, e.g. "en_US-lessac-medium.onnx"
}

// PiperProvider runs the piper executable for each synthesis.
type PiperProvider struct {
	binary    string
	modelsDir string
	voice     string
}

// NewPiperProvider creates a Piper provider. The voices directory is created
// when missing so users know where to drop .onnx files.
func NewPiperProvider(cfg PiperConfig) (*PiperProvider, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = "piper"
	}
	dir := cfg.ModelsDir
	if dir == "" {
		dir = DefaultPiperModelsDir
	}
	dir, err := paths.ExpandTilde(dir)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create voices directory: %w", err)
	}

	L_info("tts: piper provider initialized", "binary", binary, "modelsDir", dir)
	return &PiperProvider{binary: binary, modelsDir: dir, voice: cfg.Voice}, nil
}

// voicePath resolves a voice name to an .onnx file: first inside the models
// directory, then as a path of its own.
func (p *PiperProvider) voicePath(voice string) (string, error) {
	if voice == "" {
		voice = p.voice
	}
	if voice == "" {
		voices, err := ListPiperVoices(p.modelsDir)
		if err != nil {
			return "", err
		}
		if len(voices) == 0 {
			return "", fmt.Errorf("no .onnx voices in %s", p.modelsDir)
		}
		voice = voices[0]
	}

	candidate := filepath.Join(p.modelsDir, voice)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	if _, err := os.Stat(voice); err == nil {
		L_debug("tts: using voice path outside models dir", "voice", voice)
		return voice, nil
	}
	return "", fmt.Errorf("voice model not found: %s", candidate)
}

// Synthesize feeds the text to piper on stdin and returns the WAV it writes.
func (p *PiperProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	model, err := p.voicePath(req.Voice)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "speechkit-tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	L_debug("tts: running piper", "model", model, "chars", len(req.Text))

	// #nosec G204 - binary and model come from local configuration
	cmd := exec.CommandContext(ctx, p.binary, "--model", model, "--output_file", tmpPath)
	cmd.Stdin = strings.NewReader(req.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("piper executable %q not found", p.binary)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("piper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read piper output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("piper produced no audio")
	}
	return data, nil
}

// Voices lists the installed .onnx voices.
func (p *PiperProvider) Voices() ([]string, error) {
	return ListPiperVoices(p.modelsDir)
}

// Name returns the provider name.
func (p *PiperProvider) Name() string {
	return "piper"
}

// Close releases any resources (none; piper runs per request).
func (p *PiperProvider) Close() error {
	return nil
}
