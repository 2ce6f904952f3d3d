package stt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"google.golang.org/grpc"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/riva"
)

// DefaultRivaFunctionID is the NVCF function serving Whisper large-v3 on Riva.
const DefaultRivaFunctionID = "b702f636-f60c-4a3d-a6f4-f3568c13bd7d"

// RivaConfig holds NVIDIA Riva ASR configuration.
type RivaConfig struct {
	riva.Config
	SampleRate int `json:"sampleRate"` // default 16000
}

// RivaProvider implements STT using NVIDIA Riva offline recognition.
type RivaProvider struct {
	client     *riva.Client
	language   string
	sampleRate int
}

// rivaFormats are sent as-is; everything else is converted to 16 kHz mono WAV.
var rivaFormats = []audio.Format{audio.WAV, audio.Opus, audio.FLAC}

// NewRivaProvider connects to Riva. dialOpts are passed through to gRPC.
func NewRivaProvider(cfg RivaConfig, language string, dialOpts ...grpc.DialOption) (*RivaProvider, error) {
	if cfg.FunctionID == "" {
		cfg.FunctionID = DefaultRivaFunctionID
	}
	if language == "" {
		language = AutoLanguage
	}
	rate := cfg.SampleRate
	if rate == 0 {
		rate = audio.TargetSampleRate
	}

	client, err := riva.Dial(cfg.Config, dialOpts...)
	if err != nil {
		return nil, err
	}

	L_info("stt: riva provider initialized", "server", cfg.Server, "functionId", cfg.FunctionID, "language", language)
	return &RivaProvider{client: client, language: language, sampleRate: rate}, nil
}

func rivaEncoding(format audio.Format) riva.AudioEncoding {
	switch format {
	case audio.Opus:
		return riva.EncodingOggOpus
	case audio.FLAC:
		return riva.EncodingFLAC
	default:
		return riva.EncodingLinearPCM
	}
}

// Transcribe runs offline recognition. Each Riva result becomes one part.
func (r *RivaProvider) Transcribe(ctx context.Context, filePath string) (Transcript, error) {
	format := audio.Detect(filePath)
	if !format.In(rivaFormats...) {
		L_info("stt: format not supported by riva, converting to wav", "format", format)
		wavPath, cleanup, err := audio.ConvertToWAV(ctx, filePath)
		switch {
		case err == nil:
			defer cleanup()
			filePath, format = wavPath, audio.WAV
		case errors.Is(err, audio.ErrFFmpegNotFound):
			// Riva may still reject it, but the original is all we have
			L_warn("stt: ffmpeg not installed, trying original file")
		default:
			return Transcript{}, fmt.Errorf("convert audio: %w", err)
		}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return Transcript{}, fmt.Errorf("read audio file: %w", err)
	}
	L_debug("stt: riva audio loaded", "size", humanize.Bytes(uint64(len(data))), "format", format)

	cfg := riva.RecognitionConfig{
		Encoding:                   rivaEncoding(format),
		SampleRateHertz:            int32(r.sampleRate), // #nosec G115 - sample rates fit in int32
		LanguageCode:               r.language,
		MaxAlternatives:            1,
		ProfanityFilter:            false,
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: true,
	}

	resp, err := r.client.Recognize(ctx, cfg, data)
	if err != nil {
		return Transcript{}, err
	}

	t := Transcript{Parts: resp.Transcripts(), Provider: r.Name()}
	L_debug("stt: riva transcription complete", "results", len(resp.Results), "parts", len(t.Parts))
	return t, nil
}

// Name returns the provider name.
func (r *RivaProvider) Name() string {
	return "riva"
}

// Close closes the gRPC connection.
func (r *RivaProvider) Close() error {
	return r.client.Close()
}
