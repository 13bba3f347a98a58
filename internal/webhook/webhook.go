// Package webhook builds and verifies the signed event envelope spec.md §6
// describes for pushing events (decision traces, urgency changes, workflow
// status) to a caller-registered endpoint: X-Webhook-Event,
// X-Webhook-Signature (sha256=<hex hmac>), X-Webhook-Timestamp, and
// X-Webhook-Test when the event was generated by a test-environment token.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderTest      = "X-Webhook-Test"
)

// Envelope is one outbound webhook delivery: an event name, the raw JSON
// body already marshaled by the caller, and whether it originated from a
// test-environment token.
type Envelope struct {
	Event string
	Body  []byte
	Test  bool
}

// Sign computes sha256=<hex(hmac_sha256(secret, body))> and returns the
// full header set a delivery should carry.
func Sign(secret string, env Envelope, at time.Time) map[string]string {
	headers := map[string]string{
		HeaderEvent:     env.Event,
		HeaderSignature: signature(secret, env.Body),
		HeaderTimestamp: fmt.Sprintf("%d", at.Unix()),
	}
	if env.Test {
		headers[HeaderTest] = "true"
	}
	return headers
}

func signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signatureHeader matches the HMAC-SHA256 of body
// under secret, using a constant-time comparison so a timing side channel
// can't leak the correct signature byte by byte.
func Verify(secret string, body []byte, signatureHeader string) bool {
	expected := signature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
