package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSign_ProducesVerifiableSignature(t *testing.T) {
	secret := "shh-its-a-secret"
	env := Envelope{Event: "decision_trace", Body: []byte(`{"url":"https://example.com"}`)}
	at := time.Unix(1700000000, 0)

	headers := Sign(secret, env, at)
	assert.Equal(t, "decision_trace", headers[HeaderEvent])
	assert.Equal(t, "1700000000", headers[HeaderTimestamp])
	assert.NotContains(t, headers, HeaderTest)
	assert.True(t, Verify(secret, env.Body, headers[HeaderSignature]))
}

func TestSign_SetsTestHeaderWhenTestEnvelope(t *testing.T) {
	env := Envelope{Event: "workflow_status", Body: []byte(`{}`), Test: true}
	headers := Sign("secret", env, time.Now())
	assert.Equal(t, "true", headers[HeaderTest])
}

func TestVerify_RejectsTamperedBody(t *testing.T) {
	secret := "secret"
	body := []byte(`{"amount":100}`)
	headers := Sign(secret, Envelope{Event: "x", Body: body}, time.Now())

	tampered := []byte(`{"amount":1000000}`)
	assert.False(t, Verify(secret, tampered, headers[HeaderSignature]))
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	body := []byte(`{"a":1}`)
	headers := Sign("correct-secret", Envelope{Event: "x", Body: body}, time.Now())
	assert.False(t, Verify("wrong-secret", body, headers[HeaderSignature]))
}
