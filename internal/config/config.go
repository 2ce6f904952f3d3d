// Package config loads speechkit settings from JSON, .env files and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"dario.cat/mergo"
	"github.com/joho/godotenv"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/paths"
	"github.com/roelfdiedericks/speechkit/internal/riva"
	"github.com/roelfdiedericks/speechkit/internal/segment"
	"github.com/roelfdiedericks/speechkit/internal/stt"
	"github.com/roelfdiedericks/speechkit/internal/tts"
)

// Config is the merged speechkit configuration.
type Config struct {
	LogLevel   string      `json:"logLevel"`   // trace, debug, info, warn, error
	Terminator string      `json:"terminator"` // appended to unterminated trailing text
	Watch      WatchConfig `json:"watch"`
	STT        stt.Config  `json:"stt"`
	TTS        tts.Config  `json:"tts"`
	MetricsDB  string      `json:"metricsDb,omitempty"` // default ~/.speechkit/metrics.db

	// Path is the file the config was read from, empty when only defaults apply.
	Path string `json:"-"`
}

// WatchConfig controls directory watching.
type WatchConfig struct {
	DebounceMs int `json:"debounceMs"` // quiet period before a new file is processed
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:   "info",
		Terminator: string(segment.DefaultTerminator),
		Watch:      WatchConfig{DebounceMs: 500},
		STT: stt.Config{
			Provider: "whispercpp",
			Language: stt.AutoLanguage,
			WhisperCpp: stt.WhisperCppConfig{
				ModelsDir: paths.DefaultWhisperModelsDir(),
				Size:      stt.DefaultWhisperSize,
			},
			Riva: stt.RivaConfig{
				Config: riva.Config{Server: riva.DefaultServer, FunctionID: stt.DefaultRivaFunctionID},
			},
		},
		TTS: tts.Config{
			Provider: "piper",
			Piper:    tts.PiperConfig{ModelsDir: tts.DefaultPiperModelsDir},
			Riva: tts.RivaConfig{
				Config:     riva.Config{Server: riva.DefaultServer, FunctionID: tts.DefaultRivaFunctionID},
				Voice:      tts.DefaultMagpieVoice,
				SampleRate: tts.DefaultRivaSampleRate,
			},
		},
	}
}

// Load reads path, or the first config found by paths.ConfigPath when path
// is empty, and fills unset fields from Defaults. Credentials from .env files
// and the environment override the file.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := paths.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Path = path
		L_debug("config: loaded", "path", path)
	} else {
		L_debug("config: no config file, using defaults")
	}

	if err := mergo.Merge(cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("config: apply defaults: %w", err)
	}

	if err := applyEnv(cfg, envLookup(paths.EnvFiles())); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if utf8.RuneCountInString(c.Terminator) != 1 || !segment.IsTerminator(c.TerminatorRune()) {
		return fmt.Errorf("config: terminator %q must be one of %q", c.Terminator, segment.Terminators)
	}
	return nil
}

// envLookup reads the existing .env files (later files win) and returns a
// lookup where the process environment takes precedence over them.
func envLookup(files []string) func(string) string {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	fileEnv := map[string]string{}
	if len(existing) > 0 {
		m, err := godotenv.Read(existing...)
		if err != nil {
			L_warn("config: failed to read .env", "files", existing, "error", err)
		} else {
			fileEnv = m
			L_debug("config: loaded .env", "files", existing, "keys", len(m))
		}
	}

	return func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}
}

// applyEnv overlays the credential variables onto cfg. Unset variables leave
// the file values alone.
func applyEnv(cfg *Config, getenv func(string) string) error {
	server := getenv("NVIDIA_SERVER")
	nvidiaKey := getenv("NVIDIA_API_KEY")
	openaiKey := getenv("OPENAI_API_KEY")

	env := Config{
		STT: stt.Config{
			Riva: stt.RivaConfig{Config: riva.Config{
				Server:     server,
				FunctionID: getenv("NVIDIA_FUNCTION_ID"),
				APIKey:     nvidiaKey,
			}},
			OpenAI: stt.OpenAIConfig{APIKey: openaiKey},
			Groq:   stt.GroqConfig{APIKey: getenv("GROQ_API_KEY")},
			Google: stt.GoogleConfig{APIKey: getenv("GOOGLE_API_KEY")},
		},
		TTS: tts.Config{
			Riva: tts.RivaConfig{Config: riva.Config{
				Server:     server,
				FunctionID: getenv("NVIDIA_TTS_FUNCTION_ID"),
				APIKey:     nvidiaKey,
			}},
			OpenAI: tts.OpenAIConfig{APIKey: openaiKey},
		},
	}
	if err := mergo.Merge(cfg, env, mergo.WithOverride); err != nil {
		return fmt.Errorf("config: apply environment: %w", err)
	}
	return nil
}

// Save writes cfg to path, keeping rotated backups of the previous file.
func Save(cfg *Config, path string) error {
	if err := writeJSONWithBackups(path, cfg, DefaultBackupCount); err != nil {
		return fmt.Errorf("config: save %s: %w", path, err)
	}
	L_info("config: saved", "path", path)
	return nil
}

// TerminatorRune returns the configured terminator, or the default when the
// setting is empty.
func (c *Config) TerminatorRune() rune {
	for _, r := range c.Terminator {
		return r
	}
	return segment.DefaultTerminator
}
