package riva

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

const recognizeMethod = "/nvidia.riva.asr.RivaSpeechRecognition/Recognize"

// AudioEncoding mirrors nvidia.riva.AudioEncoding.
type AudioEncoding int32

const (
	EncodingUnspecified AudioEncoding = 0
	EncodingLinearPCM   AudioEncoding = 1
	EncodingFLAC        AudioEncoding = 2
	EncodingMulaw       AudioEncoding = 3
	EncodingOggOpus     AudioEncoding = 4
	EncodingAlaw        AudioEncoding = 20
)

func (e AudioEncoding) String() string {
	switch e {
	case EncodingLinearPCM:
		return "LINEAR_PCM"
	case EncodingFLAC:
		return "FLAC"
	case EncodingMulaw:
		return "MULAW"
	case EncodingOggOpus:
		return "OGGOPUS"
	case EncodingAlaw:
		return "ALAW"
	default:
		return "ENCODING_UNSPECIFIED"
	}
}

// RecognitionConfig is the subset of nvidia.riva.asr.RecognitionConfig speechkit sets.
type RecognitionConfig struct {
	Encoding                   AudioEncoding
	SampleRateHertz            int32
	LanguageCode               string
	MaxAlternatives            int32
	ProfanityFilter            bool
	EnableWordTimeOffsets      bool
	EnableAutomaticPunctuation bool
}

func (c RecognitionConfig) marshalWire() []byte {
	var b []byte
	b = appendInt32(b, 1, int32(c.Encoding))
	b = appendInt32(b, 2, c.SampleRateHertz)
	b = appendString(b, 3, c.LanguageCode)
	b = appendInt32(b, 4, c.MaxAlternatives)
	b = appendBool(b, 5, c.ProfanityFilter)
	b = appendBool(b, 8, c.EnableWordTimeOffsets)
	b = appendBool(b, 11, c.EnableAutomaticPunctuation)
	return b
}

type recognizeRequest struct {
	Config RecognitionConfig
	Audio  []byte
}

func (r *recognizeRequest) marshalWire() []byte {
	var b []byte
	b = appendBytes(b, 1, r.Config.marshalWire())
	b = appendBytes(b, 2, r.Audio)
	return b
}

// Alternative is one hypothesis for a result.
type Alternative struct {
	Transcript string
	Confidence float32
}

// Result is one recognized chunk of the audio.
type Result struct {
	Alternatives []Alternative
	ChannelTag   int32
}

// RecognizeResponse holds the offline recognition results in audio order.
type RecognizeResponse struct {
	Results []Result
}

func (r *RecognizeResponse) unmarshalWire(b []byte) error {
	r.Results = r.Results[:0]
	return eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num != 1 || typ != protowire.BytesType {
			return nil
		}
		raw, err := consumeBytes(val)
		if err != nil {
			return err
		}
		var res Result
		if err := res.unmarshalWire(raw); err != nil {
			return fmt.Errorf("result: %w", err)
		}
		r.Results = append(r.Results, res)
		return nil
	})
}

func (r *Result) unmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			raw, err := consumeBytes(val)
			if err != nil {
				return err
			}
			var alt Alternative
			if err := alt.unmarshalWire(raw); err != nil {
				return fmt.Errorf("alternative: %w", err)
			}
			r.Alternatives = append(r.Alternatives, alt)
		case num == 2 && typ == protowire.VarintType:
			v, err := consumeVarint(val)
			if err != nil {
				return err
			}
			r.ChannelTag = int32(v) // #nosec G115 - int32 field on the wire
		}
		return nil
	})
}

func (a *Alternative) unmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			raw, err := consumeBytes(val)
			if err != nil {
				return err
			}
			a.Transcript = string(raw)
		case num == 2 && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(val)
			if n < 0 {
				return protowire.ParseError(n)
			}
			a.Confidence = math.Float32frombits(v)
		}
		return nil
	})
}

// Transcripts returns the first alternative of every result that has one.
func (r *RecognizeResponse) Transcripts() []string {
	out := make([]string, 0, len(r.Results))
	for i, res := range r.Results {
		if len(res.Alternatives) == 0 {
			L_debug("riva: result has no alternatives", "index", i)
			continue
		}
		out = append(out, res.Alternatives[0].Transcript)
	}
	return out
}

// Recognize runs offline (batch) recognition over a complete audio file.
func (c *Client) Recognize(ctx context.Context, cfg RecognitionConfig, audio []byte) (*RecognizeResponse, error) {
	L_debug("riva: recognize", "bytes", len(audio), "encoding", cfg.Encoding.String(), "language", cfg.LanguageCode)

	resp := &RecognizeResponse{}
	if err := c.invoke(ctx, recognizeMethod, &recognizeRequest{Config: cfg, Audio: audio}, resp); err != nil {
		return nil, fmt.Errorf("riva: recognize: %w", err)
	}

	L_debug("riva: recognize complete", "results", len(resp.Results))
	return resp, nil
}
