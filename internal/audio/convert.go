// Package audio prepares audio files for speech engines: format detection,
// ffmpeg conversion, PCM decoding and WAV encoding.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

const (
	// TargetSampleRate is what whisper.cpp and the Riva ASR config expect.
	TargetSampleRate = 16000

	// ConvertTimeout bounds a single ffmpeg run.
	ConvertTimeout = 5 * time.Minute
)

// FFmpegBinary is the ffmpeg executable name or path.
var FFmpegBinary = "ffmpeg"

// ErrFFmpegNotFound is returned when ffmpeg is not installed.
// Callers usually fall back to handing the original file to the engine.
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// FFmpegAvailable checks if ffmpeg is installed.
func FFmpegAvailable() bool {
	_, err := exec.LookPath(FFmpegBinary)
	return err == nil
}

// ConvertToWAV converts inputPath to a 16 kHz mono WAV temp file.
// The returned cleanup func removes the temp file and is safe to call more than once.
func ConvertToWAV(ctx context.Context, inputPath string) (string, func(), error) {
	if !FFmpegAvailable() {
		return "", func() {}, ErrFFmpegNotFound
	}

	tmp, err := os.CreateTemp("", "speechkit-*.wav")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	removed := false
	cleanup := func() {
		if removed {
			return
		}
		removed = true
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			L_warn("audio: failed to remove temp file", "path", tmpPath, "error", err)
			return
		}
		L_debug("audio: removed temp file", "path", tmpPath)
	}

	L_debug("audio: converting to wav", "input", inputPath, "output", tmpPath)
	if err := runFFmpeg(ctx,
		"-i", inputPath,
		"-ar", strconv.Itoa(TargetSampleRate),
		"-ac", "1",
		"-y",
		tmpPath,
	); err != nil {
		cleanup()
		return "", func() {}, err
	}

	return tmpPath, cleanup, nil
}

// runFFmpeg runs ffmpeg with ConvertTimeout applied on top of ctx.
func runFFmpeg(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, ConvertTimeout)
	defer cancel()

	// #nosec G204 - arguments are file paths chosen by the local user
	cmd := exec.CommandContext(ctx, FFmpegBinary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg conversion timed out after %s", ConvertTimeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		L_debug("audio: ffmpeg output", "output", string(output))
		return fmt.Errorf("ffmpeg conversion failed: %w: %s", err, lastLine(string(output)))
	}
	return nil
}

// lastLine returns the last non-empty line of ffmpeg's output, which is
// normally the actual error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
