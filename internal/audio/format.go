package audio

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

// Format is a lower-case file extension including the dot, e.g. ".wav".
type Format string

const (
	WAV  Format = ".wav"
	MP3  Format = ".mp3"
	OGG  Format = ".ogg"
	OGA  Format = ".oga"
	Opus Format = ".opus"
	FLAC Format = ".flac"
	M4A  Format = ".m4a"
	WebM Format = ".webm"
	AAC  Format = ".aac"
)

var knownFormats = []Format{WAV, MP3, OGG, OGA, Opus, FLAC, M4A, WebM, AAC}

// IsOgg reports whether f is an OGG container (Opus voice notes and the like).
func (f Format) IsOgg() bool {
	return f == OGG || f == OGA || f == Opus
}

// In reports whether f is one of the given formats.
func (f Format) In(formats ...Format) bool {
	return slices.Contains(formats, f)
}

func (f Format) String() string {
	if f == "" {
		return "(unknown)"
	}
	return string(f)
}

// Detect returns the audio format of a file. A recognised extension is
// trusted as-is; otherwise the content is sniffed.
func Detect(path string) Format {
	ext := Format(strings.ToLower(filepath.Ext(path)))
	if slices.Contains(knownFormats, ext) {
		return ext
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		L_debug("audio: format sniffing failed", "file", path, "error", err)
		return ext
	}
	sniffed := Format(mtype.Extension())
	if sniffed == "" {
		return ext
	}
	L_debug("audio: sniffed format", "file", path, "mime", mtype.String(), "format", sniffed)
	return sniffed
}

// IsAudioFile reports whether path looks like audio: a known extension, or
// content sniffed as audio/*.
func IsAudioFile(path string) bool {
	ext := Format(strings.ToLower(filepath.Ext(path)))
	if slices.Contains(knownFormats, ext) {
		return true
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}
