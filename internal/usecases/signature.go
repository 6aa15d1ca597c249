package usecases

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the webhook protocol fixes HMAC-SHA1 for this header
	"encoding/hex"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// VerifySignature reports whether provided equals "sha1=" followed by the hex
// HMAC-SHA1 of body keyed with secret. An empty body or signature never verifies.
// The comparison runs in constant time.
func VerifySignature(body []byte, provided, secret string) bool {
	if len(body) == 0 || provided == "" {
		return false
	}
	return hmac.Equal([]byte(provided), []byte(ComputeSignature(body, secret)))
}

// ComputeSignature returns the tagged signature header value for body.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return domain.SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
