package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex SHA-256 of s. Logs carry it instead of raw text.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
