package riva

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

const synthesizeMethod = "/nvidia.riva.tts.RivaSpeechSynthesis/Synthesize"

// SynthesizeRequest mirrors nvidia.riva.tts.SynthesizeSpeechRequest.
type SynthesizeRequest struct {
	Text         string
	LanguageCode string
	Encoding     AudioEncoding
	SampleRateHz int32
	VoiceName    string
}

func (r *SynthesizeRequest) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, r.Text)
	b = appendString(b, 2, r.LanguageCode)
	b = appendInt32(b, 3, int32(r.Encoding))
	b = appendInt32(b, 4, r.SampleRateHz)
	b = appendString(b, 5, r.VoiceName)
	return b
}

// SynthesizeResponse holds the synthesized audio. With LINEAR_PCM encoding
// Audio is headerless 16-bit little-endian mono PCM.
type SynthesizeResponse struct {
	Audio []byte
}

func (r *SynthesizeResponse) unmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num != 1 || typ != protowire.BytesType {
			return nil
		}
		raw, err := consumeBytes(val)
		if err != nil {
			return err
		}
		r.Audio = append(r.Audio[:0], raw...)
		return nil
	})
}

// Synthesize converts text to speech in a single unary call.
func (c *Client) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResponse, error) {
	if req.Encoding == EncodingUnspecified {
		req.Encoding = EncodingLinearPCM
	}
	L_debug("riva: synthesize", "chars", len([]rune(req.Text)), "voice", req.VoiceName, "language", req.LanguageCode, "rate", req.SampleRateHz)

	resp := &SynthesizeResponse{}
	if err := c.invoke(ctx, synthesizeMethod, &req, resp); err != nil {
		return nil, fmt.Errorf("riva: synthesize: %w", err)
	}

	L_debug("riva: synthesize complete", "bytes", len(resp.Audio))
	return resp, nil
}
