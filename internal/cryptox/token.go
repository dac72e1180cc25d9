package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex-encoded SHA-256 digest of a high-entropy token.
// Only the digest is ever persisted; the plaintext token is transmitted to
// the user and then discarded.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
