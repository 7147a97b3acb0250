// Package webhook implements signed outbound change notifications: HMAC
// payload signing, a durable delivery ledger, consent-driven dispatch
// with per-recipient isolation, and a bounded retry worker.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultTolerance is the replay window for signed timestamps.
const DefaultTolerance = 300 * time.Second

// Sign computes the hex-encoded HMAC-SHA256 of the payload under the
// given secret. The payload must be the exact bytes that go on the
// wire; re-serializing a decoded structure is not guaranteed to be
// byte-identical.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature against the payload. The timestamp
// is checked first: a value that fails to parse as unix seconds, or
// whose age exceeds the tolerance in either direction, fails
// verification regardless of the signature. The signature comparison is
// constant time.
func Verify(payload []byte, signature, timestamp, secret string, tolerance time.Duration) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := time.Now().Unix() - ts
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > tolerance {
		return false
	}

	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
