package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSibling(t *testing.T) {
	tests := []struct {
		in, ext, want string
	}{
		{"/data/talk.m4a", ".txt", "/data/talk.txt"},
		{"/data/talk.m4a", "txt", "/data/talk.txt"},
		{"notes.txt", ".wav", "notes.wav"},
		{"/data/noext", ".txt", "/data/noext.txt"},
		{"/data/archive.tar.gz", ".txt", "/data/archive.tar.txt"},
	}
	for _, tt := range tests {
		if got := Sibling(tt.in, tt.ext); got != tt.want {
			t.Errorf("Sibling(%q, %q) = %q, want %q", tt.in, tt.ext, got, tt.want)
		}
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ExpandTilde("~/.speechkit/stt")
	if err != nil {
		t.Fatalf("ExpandTilde: %v", err)
	}
	if want := filepath.Join(home, ".speechkit/stt"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, _ = ExpandTilde("/abs/path")
	if got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
}

func TestConfigPathPrefersLocal(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(ConfigFileName, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	want, _ := filepath.Abs(ConfigFileName)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
