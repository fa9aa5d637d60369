package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

type Verifier interface {
	Verify(ctx context.Context, req InboundRequest) error
}

// HeaderHMACVerifier checks an HMAC-SHA256 signature carried in a request
// header against the shared secret, using a constant-time compare. The
// upstream reference implementation stubbed this check out; it is enforced
// here deliberately.
type HeaderHMACVerifier struct {
	Header   string
	Prefix   string
	Secret   string
	Encoding string // hex | base64
}

func (v HeaderHMACVerifier) Verify(_ context.Context, req InboundRequest) error {
	header := req.Header(v.Header)
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", strings.TrimSpace(v.Header))
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}
	signature := strings.TrimSpace(strings.TrimPrefix(header, strings.TrimSpace(v.Prefix)))
	if signature == "" {
		return fmt.Errorf("webhooks: signature value is required")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(req.Body)
	expected := mac.Sum(nil)

	var decoded []byte
	var err error
	switch strings.ToLower(strings.TrimSpace(v.Encoding)) {
	case "base64":
		decoded, err = base64.StdEncoding.DecodeString(signature)
		if err != nil {
			return fmt.Errorf("webhooks: decode base64 signature: %w", err)
		}
	default:
		decoded, err = hex.DecodeString(signature)
		if err != nil {
			return fmt.Errorf("webhooks: decode hex signature: %w", err)
		}
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

// NewPolarVerifier verifies the Polar-Signature header (hex HMAC-SHA256).
func NewPolarVerifier(secret string) HeaderHMACVerifier {
	return HeaderHMACVerifier{
		Header: HeaderPolarSignature,
		Secret: strings.TrimSpace(secret),
	}
}

// NewGitHubVerifier verifies the X-Hub-Signature-256 header
// ("sha256=<hex>").
func NewGitHubVerifier(secret string) HeaderHMACVerifier {
	return HeaderHMACVerifier{
		Header: HeaderGitHubSignature,
		Prefix: "sha256=",
		Secret: strings.TrimSpace(secret),
	}
}

// SourceVerifier routes verification by request source so one dispatcher
// can serve both provider and GitHub callbacks.
type SourceVerifier map[string]Verifier

func (v SourceVerifier) Verify(ctx context.Context, req InboundRequest) error {
	if len(v) == 0 {
		return fmt.Errorf("webhooks: no verifiers configured")
	}
	verifier, ok := v[strings.TrimSpace(req.Source)]
	if !ok {
		return fmt.Errorf("webhooks: no verifier for source %q", req.Source)
	}
	return verifier.Verify(ctx, req)
}
