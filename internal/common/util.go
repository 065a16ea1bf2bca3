package common

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NormalizeUsername is the canonical form used for storage and lookup:
// surrounding whitespace trimmed, lower-cased.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
