package riva

import (
	"context"
	"math"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protowire"
)

// fakeServer answers any method with a canned, pre-encoded response and
// records what it received.
type fakeServer struct {
	method   string
	request  rawFrame
	md       metadata.MD
	response rawFrame
}

func (f *fakeServer) handle(_ any, stream grpc.ServerStream) error {
	f.method, _ = grpc.MethodFromServerStream(stream)
	f.md, _ = metadata.FromIncomingContext(stream.Context())
	if err := stream.RecvMsg(&f.request); err != nil {
		return err
	}
	return stream.SendMsg(&f.response)
}

func startFake(t *testing.T, fake *fakeServer, cfg Config) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(
		grpc.ForceServerCodec(wireCodec{}),
		grpc.UnknownServiceHandler(fake.handle),
	)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cfg.Server = "passthrough:///bufnet"
	cfg.Insecure = true
	client, err := Dial(cfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func encodeAlternative(transcript string, confidence float32) []byte {
	var b []byte
	b = appendString(b, 1, transcript)
	b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(confidence))
	return b
}

func encodeResult(alts ...[]byte) []byte {
	var b []byte
	for _, a := range alts {
		b = appendBytes(b, 1, a)
	}
	return b
}

func TestRecognize(t *testing.T) {
	var resp []byte
	resp = appendBytes(resp, 1, encodeResult(encodeAlternative("Hello. How are", 0.9)))
	// An empty result still goes on the wire as a zero-length field.
	resp = protowire.AppendTag(resp, 1, protowire.BytesType)
	resp = protowire.AppendBytes(resp, nil)
	resp = appendBytes(resp, 1, encodeResult(encodeAlternative("you?", 0.8), encodeAlternative("ewe?", 0.1)))

	fake := &fakeServer{response: resp}
	client := startFake(t, fake, Config{FunctionID: "fn-123", APIKey: "secret"})

	cfg := RecognitionConfig{
		Encoding:                   EncodingLinearPCM,
		SampleRateHertz:            16000,
		LanguageCode:               "en-US",
		MaxAlternatives:            1,
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: true,
	}
	got, err := client.Recognize(context.Background(), cfg, []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if fake.method != recognizeMethod {
		t.Errorf("method = %q, want %q", fake.method, recognizeMethod)
	}
	if v := fake.md.Get("function-id"); len(v) != 1 || v[0] != "fn-123" {
		t.Errorf("function-id metadata = %v", v)
	}
	if v := fake.md.Get("authorization"); len(v) != 1 || v[0] != "Bearer secret" {
		t.Errorf("authorization metadata = %v", v)
	}

	if len(got.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(got.Results))
	}
	if c := got.Results[0].Alternatives[0].Confidence; c < 0.89 || c > 0.91 {
		t.Errorf("confidence = %v", c)
	}

	transcripts := got.Transcripts()
	want := []string{"Hello. How are", "you?"}
	if len(transcripts) != len(want) {
		t.Fatalf("transcripts = %q, want %q", transcripts, want)
	}
	for i := range want {
		if transcripts[i] != want[i] {
			t.Errorf("transcripts[%d] = %q, want %q", i, transcripts[i], want[i])
		}
	}

	// The request must carry the config and the raw audio.
	var sawAudio, sawLang bool
	err = eachField(fake.request, func(num protowire.Number, _ protowire.Type, val []byte) error {
		raw, err := consumeBytes(val)
		if err != nil {
			return err
		}
		switch num {
		case 1:
			return eachField(raw, func(num protowire.Number, _ protowire.Type, val []byte) error {
				if num == 3 {
					lang, _ := consumeBytes(val)
					sawLang = string(lang) == "en-US"
				}
				return nil
			})
		case 2:
			sawAudio = string(raw) == "RIFFdata"
		}
		return nil
	})
	if err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if !sawAudio || !sawLang {
		t.Errorf("request missing fields: audio=%v lang=%v", sawAudio, sawLang)
	}
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	fake := &fakeServer{response: appendBytes(nil, 1, pcm)}
	client := startFake(t, fake, Config{FunctionID: "tts-fn"})

	got, err := client.Synthesize(context.Background(), SynthesizeRequest{
		Text:         "你好",
		LanguageCode: "zh-CN",
		SampleRateHz: 22050,
		VoiceName:    "Magpie-Multilingual.EN-US.Aria",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if fake.method != synthesizeMethod {
		t.Errorf("method = %q", fake.method)
	}
	if string(got.Audio) != string(pcm) {
		t.Errorf("audio = %v, want %v", got.Audio, pcm)
	}
	if v := fake.md.Get("authorization"); len(v) != 0 {
		t.Errorf("unexpected authorization metadata without key: %v", v)
	}

	// Encoding defaults to LINEAR_PCM.
	var encoding uint64
	_ = eachField(fake.request, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num == 3 && typ == protowire.VarintType {
			encoding, _ = consumeVarint(val)
		}
		return nil
	})
	if AudioEncoding(encoding) != EncodingLinearPCM {
		t.Errorf("encoding = %d, want LINEAR_PCM", encoding)
	}
}

func TestDialRequiresKey(t *testing.T) {
	if _, err := Dial(Config{FunctionID: "x"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestEachFieldRejectsTruncated(t *testing.T) {
	b := appendString(nil, 1, "hello")
	if err := eachField(b[:len(b)-2], func(protowire.Number, protowire.Type, []byte) error { return nil }); err == nil {
		t.Fatal("expected parse error for truncated message")
	}
}
