// Package riva is a small client for NVIDIA Riva speech services hosted on NVCF.
// It speaks the Riva gRPC API directly with hand-encoded protobuf messages,
// covering only the offline ASR and TTS calls speechkit needs.
package riva

import (
	"context"
	"crypto/tls"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

// DefaultServer is the NVCF gRPC endpoint.
const DefaultServer = "grpc.nvcf.nvidia.com:443"

// Config holds connection settings for one NVCF function.
type Config struct {
	Server     string `json:"server"`     // host:port, default grpc.nvcf.nvidia.com:443
	FunctionID string `json:"functionId"` // NVCF function id selecting the model
	APIKey     string `json:"apiKey"`     // sent as "authorization: Bearer <key>"
	Insecure   bool   `json:"insecure"`   // plaintext, for self-hosted Riva
}

// Client is a connection to a Riva server.
type Client struct {
	conn   *grpc.ClientConn
	config Config
}

// Dial creates a client. The connection is established lazily on first call.
// Extra options are appended after the transport credentials.
func Dial(cfg Config, opts ...grpc.DialOption) (*Client, error) {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.APIKey == "" && !cfg.Insecure {
		return nil, fmt.Errorf("riva: API key not configured")
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)

	target := cfg.Server
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("riva: dial %s: %w", target, err)
	}

	L_debug("riva: client created", "server", cfg.Server, "functionId", cfg.FunctionID, "insecure", cfg.Insecure)
	return &Client{conn: conn, config: cfg}, nil
}

// withAuth attaches the NVCF routing and auth metadata.
func (c *Client) withAuth(ctx context.Context) context.Context {
	kv := make([]string, 0, 4)
	if c.config.FunctionID != "" {
		kv = append(kv, "function-id", c.config.FunctionID)
	}
	if c.config.APIKey != "" {
		kv = append(kv, "authorization", "Bearer "+c.config.APIKey)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

func (c *Client) invoke(ctx context.Context, method string, req message, resp unmarshaler) error {
	return c.conn.Invoke(c.withAuth(ctx), method, req, resp, grpc.ForceCodec(wireCodec{}))
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
