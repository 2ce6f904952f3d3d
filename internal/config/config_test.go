package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/roelfdiedericks/speechkit/internal/riva"
	"github.com/roelfdiedericks/speechkit/internal/stt"
)

// isolate points HOME and the working directory at empty temp dirs and
// clears the credential variables.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"NVIDIA_API_KEY", "NVIDIA_SERVER", "NVIDIA_FUNCTION_ID", "NVIDIA_TTS_FUNCTION_ID",
		"OPENAI_API_KEY", "GROQ_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("path = %q, want none", cfg.Path)
	}
	if cfg.STT.Provider != "whispercpp" || cfg.STT.Language != stt.AutoLanguage {
		t.Errorf("stt = %+v", cfg.STT)
	}
	if cfg.STT.Riva.Server != riva.DefaultServer || cfg.STT.Riva.FunctionID != stt.DefaultRivaFunctionID {
		t.Errorf("stt riva = %+v", cfg.STT.Riva)
	}
	if cfg.TTS.Riva.FunctionID == cfg.STT.Riva.FunctionID {
		t.Error("tts and stt should use different riva functions")
	}
	if cfg.TerminatorRune() != '。' {
		t.Errorf("terminator = %q", cfg.TerminatorRune())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	data := `{
		"terminator": ".",
		"stt": {"provider": "riva", "language": "zh-CN", "riva": {"apiKey": "from-file"}},
		"tts": {"provider": "openai", "openai": {"voice": "nova"}}
	}`
	if err := os.WriteFile(filepath.Join(dir, "speechkit.json"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if filepath.Base(cfg.Path) != "speechkit.json" {
		t.Errorf("path = %q", cfg.Path)
	}
	if cfg.STT.Provider != "riva" || cfg.STT.Language != "zh-CN" || cfg.STT.Riva.APIKey != "from-file" {
		t.Errorf("stt = %+v", cfg.STT)
	}
	// Unset nested fields still come from defaults.
	if cfg.STT.Riva.Server != riva.DefaultServer {
		t.Errorf("server = %q", cfg.STT.Riva.Server)
	}
	if cfg.TTS.OpenAI.Voice != "nova" || cfg.TTS.Provider != "openai" {
		t.Errorf("tts = %+v", cfg.TTS)
	}
	if cfg.TerminatorRune() != '.' {
		t.Errorf("terminator = %q", cfg.TerminatorRune())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "speechkit.json"), []byte(`{"stt":{"riva":{"apiKey":"from-file"}}}`), 0600); err != nil {
		t.Fatal(err)
	}
	env := "NVIDIA_API_KEY=from-dotenv\nGROQ_API_KEY=gsk-dotenv\nNVIDIA_TTS_FUNCTION_ID=tts-fn\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GROQ_API_KEY", "gsk-process")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.STT.Riva.APIKey != "from-dotenv" || cfg.TTS.Riva.APIKey != "from-dotenv" {
		t.Errorf("nvidia keys = %q / %q", cfg.STT.Riva.APIKey, cfg.TTS.Riva.APIKey)
	}
	if cfg.STT.Groq.APIKey != "gsk-process" {
		t.Errorf("process env should beat .env, got %q", cfg.STT.Groq.APIKey)
	}
	if cfg.TTS.Riva.FunctionID != "tts-fn" {
		t.Errorf("tts function = %q", cfg.TTS.Riva.FunctionID)
	}
	if cfg.STT.Riva.FunctionID != stt.DefaultRivaFunctionID {
		t.Errorf("stt function = %q", cfg.STT.Riva.FunctionID)
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	isolate(t)
	if _, err := Load("/nonexistent/speechkit.json"); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(path, []byte("{not json"), 0600)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadRejectsBadTerminator(t *testing.T) {
	dir := isolate(t)
	for _, term := range []string{"X", "。。", " "} {
		path := filepath.Join(dir, "speechkit.json")
		data := `{"terminator":` + strconv.Quote(term) + `}`
		if err := os.WriteFile(path, []byte(data), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil {
			t.Errorf("terminator %q: expected error", term)
			continue
		}
		if !strings.HasPrefix(err.Error(), "config:") {
			t.Errorf("terminator %q: error %q lacks config prefix", term, err)
		}
	}
}

func TestSaveRotatesBackups(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "speechkit.json")

	cfg := Defaults()
	for i := 0; i < 3; i++ {
		cfg.LogLevel = []string{"info", "debug", "warn"}[i]
		if err := Save(&cfg, path); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.LogLevel != "warn" {
		t.Errorf("log level = %q", loaded.LogLevel)
	}
	for _, name := range []string{"speechkit.json.bak", "speechkit.json.bak.1"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing backup %s", name)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.txt")
	if err := AtomicWrite(path, []byte("hello。"), 0644); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 || entries[0].Name() != "out.txt" {
		t.Errorf("dir entries = %v", entries)
	}
}
