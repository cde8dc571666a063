package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const signaturePrefix = "sha256="

// VerifySignature checks an event delivery's signature header against the
// HMAC-SHA256 of the raw body. The comparison runs in constant time and
// only when lengths match. Fails closed: an empty secret or empty header is
// never valid.
func VerifySignature(secret string, header string, body []byte) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := signaturePrefix + hex.EncodeToString(mac.Sum(nil))
	if len(want) != len(header) {
		return false
	}
	return hmac.Equal([]byte(want), []byte(header))
}
