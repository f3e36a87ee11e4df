package utils // package utils provides helper functions for token generation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for stored token digests
	"encoding/hex"  // hex encoding of random bytes and digests
)

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  It backs verification and
// password-reset tokens.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hash of a token as a hex string.  Only
// digests are persisted so stolen database rows cannot be replayed as
// live tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
