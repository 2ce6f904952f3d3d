package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestDetect(t *testing.T) {
	dir := t.TempDir()

	wavBytes, err := EncodeWAV(make([]byte, 320), 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	noExt := filepath.Join(dir, "recording")
	if err := os.WriteFile(noExt, wavBytes, 0600); err != nil {
		t.Fatal(err)
	}
	if got := Detect(noExt); got != WAV {
		t.Errorf("Detect(no extension) = %q, want %q", got, WAV)
	}
	if !IsAudioFile(noExt) {
		t.Error("IsAudioFile(no extension wav) = false")
	}

	// A known extension is trusted without reading the file.
	if got := Detect(filepath.Join(dir, "missing.M4A")); got != M4A {
		t.Errorf("Detect(.M4A) = %q, want %q", got, M4A)
	}

	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("just some text\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if IsAudioFile(text) {
		t.Error("IsAudioFile(text file) = true")
	}
}

func TestFormatIn(t *testing.T) {
	if !Opus.IsOgg() || !OGA.IsOgg() || WAV.IsOgg() {
		t.Error("IsOgg misclassifies")
	}
	if !FLAC.In(WAV, Opus, FLAC) {
		t.Error("FLAC.In should be true")
	}
	if MP3.In(WAV, Opus, FLAC) {
		t.Error("MP3.In should be false")
	}
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	const rate = 22050
	pcm := make([]byte, rate*2) // one second of silence
	pcm[0], pcm[1] = 0xff, 0x7f

	out, err := EncodeWAV(pcm, rate)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("RIFF")) || !bytes.Equal(out[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header: %q", out[:12])
	}

	info, err := readWAVInfo(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("readWAVInfo: %v", err)
	}
	if info.SampleRate != rate || info.Channels != 1 || info.BitDepth != 16 {
		t.Errorf("info = %+v", info)
	}
	if info.Duration < 900*time.Millisecond || info.Duration > 1100*time.Millisecond {
		t.Errorf("duration = %s, want ~1s", info.Duration)
	}

	if _, err := EncodeWAV(pcm, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestPCM16(t *testing.T) {
	got := PCM16([]byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80, 0x7f})
	want := []int16{1, -1, -32768}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestToMono(t *testing.T) {
	got := toMono([]int16{100, 200, -50, 50}, 2)
	if len(got) != 2 || got[0] != 150 || got[1] != 0 {
		t.Errorf("toMono = %v", got)
	}
}

func fakeFFmpeg(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0700); err != nil {
		t.Fatal(err)
	}
	old := FFmpegBinary
	FFmpegBinary = path
	t.Cleanup(func() { FFmpegBinary = old })
}

func TestConvertToWAV(t *testing.T) {
	// Writes a marker to the last argument (the output path).
	fakeFFmpeg(t, `for a; do out="$a"; done; printf converted > "$out"`)

	out, cleanup, err := ConvertToWAV(context.Background(), "/some/input.amr")
	if err != nil {
		t.Fatalf("ConvertToWAV: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "converted" {
		t.Errorf("output = %q", data)
	}
	if filepath.Ext(out) != ".wav" {
		t.Errorf("temp file %q should end in .wav", out)
	}

	cleanup()
	cleanup()
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("temp file not removed: %v", err)
	}
}

func TestConvertToWAVFailure(t *testing.T) {
	fakeFFmpeg(t, `echo "header noise" >&2; echo "Invalid data found when processing input" >&2; exit 1`)

	_, _, err := ConvertToWAV(context.Background(), "/some/input.bin")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "Invalid data found when processing input"; !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Errorf("error %q should contain %q", err, want)
	}
}

func TestConvertToWAVMissingFFmpeg(t *testing.T) {
	old := FFmpegBinary
	FFmpegBinary = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	t.Cleanup(func() { FFmpegBinary = old })

	_, cleanup, err := ConvertToWAV(context.Background(), "x.amr")
	cleanup()
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("err = %v, want ErrFFmpegNotFound", err)
	}
}

func writeTestWAV(t *testing.T, samples []int16, rate int) string {
	t.Helper()
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(uint16(s) >> 8)
	}
	data, err := EncodeWAV(pcm, rate)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertToFloat32WAVWithoutFFmpeg(t *testing.T) {
	old := FFmpegBinary
	FFmpegBinary = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	t.Cleanup(func() { FFmpegBinary = old })

	path := writeTestWAV(t, []int16{0, 16384, -16384, 32767}, TargetSampleRate)
	got, err := ConvertToFloat32(context.Background(), path)
	if err != nil {
		t.Fatalf("ConvertToFloat32: %v", err)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0}
	if len(got) != len(want) {
		t.Fatalf("samples = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestConvertToFloat32WAVResamples(t *testing.T) {
	old := FFmpegBinary
	FFmpegBinary = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	t.Cleanup(func() { FFmpegBinary = old })

	path := writeTestWAV(t, make([]int16, 800), 8000)
	got, err := ConvertToFloat32(context.Background(), path)
	if err != nil {
		t.Fatalf("ConvertToFloat32: %v", err)
	}
	if len(got) < 1400 || len(got) > 1800 {
		t.Errorf("samples = %d, want about 1600", len(got))
	}
}

func TestConvertToFloat32UnsupportedWithoutFFmpeg(t *testing.T) {
	old := FFmpegBinary
	FFmpegBinary = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	t.Cleanup(func() { FFmpegBinary = old })

	_, err := ConvertToFloat32(context.Background(), "/some/input.mp3")
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("err = %v, want ErrFFmpegNotFound", err)
	}
}
