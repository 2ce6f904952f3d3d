package tts

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"google.golang.org/grpc"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/riva"
)

const (
	// DefaultRivaFunctionID is the NVCF function serving Magpie TTS.
	DefaultRivaFunctionID = "877104f7-e885-42b9-8de8-f6e4c6303969"

	// DefaultRivaSampleRate is the rate Magpie is asked to synthesize at.
	DefaultRivaSampleRate = 22050
)

// RivaConfig holds NVIDIA Riva TTS configuration.
type RivaConfig struct {
	riva.Config
	Voice      string `json:"voice"`      // Magpie voice, full or short name
	SampleRate int    `json:"sampleRate"` // default 22050
}

// RivaProvider implements TTS using the Riva Magpie voices.
type RivaProvider struct {
	client     *riva.Client
	voice      string
	sampleRate int
}

// NewRivaProvider connects to Riva. dialOpts are passed through to gRPC.
func NewRivaProvider(cfg RivaConfig, dialOpts ...grpc.DialOption) (*RivaProvider, error) {
	if cfg.FunctionID == "" {
		cfg.FunctionID = DefaultRivaFunctionID
	}
	voice, err := MagpieVoice(cfg.Voice)
	if err != nil {
		return nil, err
	}
	rate := cfg.SampleRate
	if rate == 0 {
		rate = DefaultRivaSampleRate
	}

	client, err := riva.Dial(cfg.Config, dialOpts...)
	if err != nil {
		return nil, err
	}

	L_info("tts: riva provider initialized", "server", cfg.Server, "functionId", cfg.FunctionID, "voice", voice)
	return &RivaProvider{client: client, voice: voice, sampleRate: rate}, nil
}

// Synthesize requests 16-bit PCM and wraps it as a mono WAV. The language is
// detected from the text unless the request names one.
func (r *RivaProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	voice := r.voice
	if req.Voice != "" {
		v, err := MagpieVoice(req.Voice)
		if err != nil {
			return nil, err
		}
		voice = v
	}
	language := req.Language
	if language == "" {
		language = DetectLanguage(req.Text)
		L_debug("tts: detected language", "language", language)
	}

	resp, err := r.client.Synthesize(ctx, riva.SynthesizeRequest{
		Text:         req.Text,
		LanguageCode: language,
		Encoding:     riva.EncodingLinearPCM,
		SampleRateHz: int32(r.sampleRate), // #nosec G115 - sample rates fit in int32
		VoiceName:    voice,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Audio) == 0 {
		return nil, fmt.Errorf("riva returned no audio")
	}

	L_debug("tts: riva synthesis complete", "voice", voice, "pcm", humanize.Bytes(uint64(len(resp.Audio))))
	return audio.EncodeWAV(resp.Audio, r.sampleRate)
}

// Name returns the provider name.
func (r *RivaProvider) Name() string {
	return "riva"
}

// Close closes the gRPC connection.
func (r *RivaProvider) Close() error {
	return r.client.Close()
}
