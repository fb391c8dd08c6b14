package httpapi

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestEnvelopeDecryptRoundTrip(t *testing.T) {
	env, err := NewEnvelope()
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	type payload struct {
		Username string `json:"username"`
	}
	plaintext, err := json.Marshal(payload{Username: "alice"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &env.key.PublicKey, plaintext, nil)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	body, err := json.Marshal(encryptedBody{Payload: base64.StdEncoding.EncodeToString(ciphertext)})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	var got payload
	if err := env.decrypt(body, &got); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("got %q, want alice", got.Username)
	}
}

func TestEnvelopeDecryptRejectsMalformedPayload(t *testing.T) {
	env, err := NewEnvelope()
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	var out struct{}
	if err := env.decrypt([]byte(`{"payload": "not-base64!!"}`), &out); err == nil {
		t.Fatal("expected decrypt to reject invalid base64")
	}
}

func TestPublicKeyPEMIsWellFormed(t *testing.T) {
	env, err := NewEnvelope()
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	pemBytes := env.PublicKeyPEM()
	if len(pemBytes) == 0 {
		t.Fatal("expected non-empty PEM")
	}
}
