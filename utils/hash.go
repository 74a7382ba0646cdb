package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash fingerprints uploaded bytes for logs and traces.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash is the first 12 hex characters of ContentHash.
func ShortHash(data []byte) string {
	return ContentHash(data)[:12]
}
