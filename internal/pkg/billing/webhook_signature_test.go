package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
)

func signWebhook(t *testing.T, secret []byte, msgID, timestamp string, payload []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(key)
	payload := []byte(`{"type":"subscription.active","data":{"subscription_id":"sub_1"}}`)
	msgID := "msg_2a7b"
	timestamp := "1717171717"

	sig := signWebhook(t, key, msgID, timestamp, payload)

	if err := VerifyWebhookSignature(payload, msgID, timestamp, sig, secret); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	// Any single-byte mutation of the body must flip the result.
	mutated := append([]byte(nil), payload...)
	mutated[10] ^= 0x01
	if err := VerifyWebhookSignature(mutated, msgID, timestamp, sig, secret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for mutated body, got %v", err)
	}

	// Mutating the signed headers must fail too.
	if err := VerifyWebhookSignature(payload, "msg_2a7c", timestamp, sig, secret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for changed msg id, got %v", err)
	}
	if err := VerifyWebhookSignature(payload, msgID, "1717171718", sig, secret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for changed timestamp, got %v", err)
	}
}

func TestVerifyWebhookSignature_MultipleEntries(t *testing.T) {
	key := []byte("another-webhook-key-material-32b")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(key)
	payload := []byte(`{"type":"checkout.session.completed","data":{"id":"cs_1"}}`)

	good := signWebhook(t, key, "msg_1", "1700000000", payload)
	header := "v1,Zm9vYmFy " + good

	if err := VerifyWebhookSignature(payload, "msg_1", "1700000000", header, secret); err != nil {
		t.Fatalf("expected one matching entry to satisfy verification, got %v", err)
	}
}

func TestVerifyWebhookSignature_Prerequisites(t *testing.T) {
	payload := []byte(`{}`)

	if err := VerifyWebhookSignature(payload, "msg", "ts", "v1,abc", ""); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if err := VerifyWebhookSignature(payload, "", "ts", "v1,abc", "whsec_c2VjcmV0"); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature for empty id, got %v", err)
	}
	if err := VerifyWebhookSignature(payload, "msg", "ts", "", "whsec_c2VjcmV0"); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature for empty header, got %v", err)
	}
}

func TestVerifyWebhookSignature_UnversionedEntry(t *testing.T) {
	key := []byte("plain-secret")
	payload := []byte(`{"ok":true}`)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("m.1."))
	mac.Write(payload)
	bare := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if err := VerifyWebhookSignature(payload, "m", "1", bare, "plain-secret"); err != nil {
		t.Fatalf("expected bare signature with plain secret to verify, got %v", err)
	}
}
