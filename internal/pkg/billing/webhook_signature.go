package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// webhookSecretPrefix marks Standard-Webhooks-style secrets. The remainder
// is base64 encoded key material.
const webhookSecretPrefix = "whsec_"

// VerifyWebhookSignature checks a Standard Webhooks signature as sent by
// Dodo Payments. The signed content is "{id}.{timestamp}.{payload}" and the
// signature header carries one or more space-separated "v1,<base64>"
// entries. Verification is bound to the raw body bytes, so callers must
// pass the unparsed request body.
func VerifyWebhookSignature(payload []byte, msgID, timestamp, signatureHeader, webhookSecret string) error {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return ErrMissingSecret
	}
	msgID = strings.TrimSpace(msgID)
	timestamp = strings.TrimSpace(timestamp)
	sigHeader := strings.TrimSpace(signatureHeader)
	if msgID == "" || timestamp == "" || sigHeader == "" {
		return ErrMissingSignature
	}

	key := decodeWebhookSecret(secret)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(sigHeader) {
		candidate := entry
		// Entries are versioned as "v1,<sig>"; bare signatures are accepted too.
		if idx := strings.IndexByte(entry, ','); idx >= 0 {
			if entry[:idx] != "v1" {
				continue
			}
			candidate = entry[idx+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func decodeWebhookSecret(secret string) []byte {
	raw := strings.TrimPrefix(secret, webhookSecretPrefix)
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return key
	}
	// Secrets configured as plain strings are used as-is.
	return []byte(raw)
}
