package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

const wavFormatPCM = 1

// EncodeWAV wraps raw 16-bit little-endian mono PCM in a RIFF/WAV container.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	samples := PCM16(pcm)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, 16, 1, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}

	out, err := io.ReadAll(ws.Reader())
	if err != nil {
		return nil, fmt.Errorf("read encoded wav: %w", err)
	}
	return out, nil
}

// WAVInfo describes a WAV file.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// ReadWAVInfo reads the header of a WAV file.
func ReadWAVInfo(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer f.Close()
	return readWAVInfo(f)
}

func readWAVInfo(r io.ReadSeeker) (WAVInfo, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return WAVInfo{}, fmt.Errorf("not a valid wav file")
	}
	dur, err := dec.Duration()
	if err != nil {
		return WAVInfo{}, fmt.Errorf("wav duration: %w", err)
	}
	return WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   dur,
	}, nil
}

// decodeWAV decodes a PCM WAV file to 16kHz mono float32 without ffmpeg.
func decodeWAV(filePath string) ([]float32, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported wav encoding %d", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}
	if len(buf.Data) == 0 {
		return nil, fmt.Errorf("no audio samples decoded from %s", filePath)
	}

	depth := int(dec.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case depth == 8:
			v = (v - 128) << 8 // 8-bit WAV is unsigned
		case depth > 16:
			v >>= depth - 16
		}
		samples[i] = int16(v) // #nosec G115 - scaled to 16 bits above
	}

	sampleRate := int(dec.SampleRate)
	samples = toMono(samples, int(dec.NumChans))
	if sampleRate != TargetSampleRate {
		L_debug("audio: resampling", "from", sampleRate, "to", TargetSampleRate)
		samples = resampleInt16(samples, sampleRate, TargetSampleRate)
	}

	L_debug("audio: wav decoded", "file", filePath, "sampleRate", sampleRate, "channels", dec.NumChans, "bitDepth", depth)
	return int16ToFloat32(samples), nil
}
