package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex hashes the input and returns the digest as lowercase hex. Email
// identifiers are derived this way so identical content maps to one id.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
