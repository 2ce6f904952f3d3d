package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
	"github.com/zeozeozeo/gomplerate"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

const maxFrameSize = 5760 // Max Opus frame size (120ms at 48kHz)

// ConvertToFloat32 converts an audio file to 16kHz mono float32 samples,
// the input format of whisper.cpp.
// ffmpeg is preferred for every format. Without it only PCM WAV and
// OGG/Opus can be decoded, in pure Go.
func ConvertToFloat32(ctx context.Context, filePath string) ([]float32, error) {
	format := Detect(filePath)

	if FFmpegAvailable() {
		L_debug("audio: decoding with ffmpeg", "file", filePath, "format", format)
		return decodeWithFFmpeg(ctx, filePath)
	}

	if format == WAV {
		samples, err := decodeWAV(filePath)
		if err != nil {
			return nil, fmt.Errorf("WAV decoding failed (%v) - install ffmpeg for non-PCM WAV files", err)
		}
		return samples, nil
	}

	if format.IsOgg() {
		// pion/opus panics on some files
		samples, err := decodeOggOpusSafe(filePath)
		if err != nil {
			return nil, fmt.Errorf("OGG decoding failed (%v) - install ffmpeg for reliable audio conversion", err)
		}
		return samples, nil
	}

	return nil, fmt.Errorf("unsupported audio format %s (install ffmpeg for formats other than WAV and OGG): %w", format, ErrFFmpegNotFound)
}

// decodeOggOpusSafe wraps decodeOggOpus with panic recovery.
func decodeOggOpusSafe(filePath string) (samples []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			L_warn("audio: pure Go decoder panicked, recovered", "panic", r)
			err = fmt.Errorf("decoder panic: %v", r)
			samples = nil
		}
	}()
	return decodeOggOpus(filePath)
}

// decodeOggOpus decodes OGG/Opus to 16kHz mono float32 using pure Go.
func decodeOggOpus(filePath string) ([]float32, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	ogg, header, err := oggreader.NewWith(file)
	if err != nil {
		return nil, fmt.Errorf("parse OGG container: %w", err)
	}

	sampleRate := int(header.SampleRate)
	channels := int(header.Channels)
	L_debug("audio: OGG header", "sampleRate", sampleRate, "channels", channels)

	decoder := opus.NewDecoder()
	outBuf := make([]byte, maxFrameSize*channels*2) // 16-bit samples

	var all []int16
	for {
		segments, _, err := ogg.ParseNextPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse OGG page: %w", err)
		}

		for _, segment := range segments {
			if len(segment) == 0 {
				continue
			}
			if _, _, err := decoder.Decode(segment, outBuf); err != nil {
				L_trace("audio: skipping packet", "error", err, "len", len(segment))
				continue
			}
			all = append(all, bytesToInt16(outBuf)...)
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no audio samples decoded from %s", filePath)
	}

	if channels > 1 {
		all = toMono(all, channels)
	}
	if sampleRate != TargetSampleRate {
		L_debug("audio: resampling", "from", sampleRate, "to", TargetSampleRate)
		all = resampleInt16(all, sampleRate, TargetSampleRate)
	}

	result := int16ToFloat32(all)
	L_debug("audio: decode complete", "samples", len(result), "duration_sec", float64(len(result))/float64(TargetSampleRate))
	return result, nil
}

// OggSampleRate reads the sample rate from an OGG file header.
// Returns 0 if it cannot be determined.
func OggSampleRate(filePath string) int {
	file, err := os.Open(filePath)
	if err != nil {
		return 0
	}
	defer file.Close()

	_, header, err := oggreader.NewWith(file)
	if err != nil {
		return 0
	}
	return int(header.SampleRate)
}

// bytesToInt16 converts decoder output to int16 samples (little-endian),
// stopping at the all-zero tail of the buffer.
func bytesToInt16(buf []byte) []int16 {
	samples := make([]int16, 0, len(buf)/2)

	for i := 0; i < len(buf)-1; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(buf[i : i+2])) // #nosec G115 - safe: uint16 to int16 for audio samples
		if sample == 0 && i > 0 {
			allZero := true
			for j := i; j < len(buf)-1; j += 2 {
				if binary.LittleEndian.Uint16(buf[j:j+2]) != 0 {
					allZero = false
					break
				}
			}
			if allZero {
				break
			}
		}
		samples = append(samples, sample)
	}
	return samples
}

// toMono converts multi-channel audio to mono by averaging channels.
func toMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}

	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(samples[i*channels+ch])
		}
		mono[i] = int16(sum / int32(channels)) // #nosec G115 - safe: channels is small (1-8)
	}
	return mono
}

// resampleInt16 converts mono audio from one sample rate to another.
func resampleInt16(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate {
		return samples
	}

	resampler, err := gomplerate.NewResampler(1, fromRate, toRate)
	if err != nil {
		L_warn("audio: resampler creation failed, skipping resample", "error", err)
		return samples
	}
	return resampler.ResampleInt16(samples)
}

// int16ToFloat32 converts int16 samples to float32 normalized to [-1, 1].
func int16ToFloat32(samples []int16) []float32 {
	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = float32(s) / 32768.0
	}
	return result
}

// decodeWithFFmpeg uses ffmpeg to convert audio to 16kHz mono float32.
func decodeWithFFmpeg(ctx context.Context, inputPath string) ([]float32, error) {
	tmpFile, err := os.CreateTemp("", "speechkit-*.raw")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := runFFmpeg(ctx,
		"-i", inputPath,
		"-ar", strconv.Itoa(TargetSampleRate),
		"-ac", "1",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-y",
		tmpPath,
	); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read converted audio: %w", err)
	}
	return int16ToFloat32(PCM16(raw)), nil
}

// PCM16 interprets raw bytes as 16-bit little-endian samples.
// A trailing odd byte is ignored.
func PCM16(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:])) // #nosec G115 - reinterpretation of PCM bits
	}
	return samples
}
