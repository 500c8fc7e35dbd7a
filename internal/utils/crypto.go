package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func SHA256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// OTPDigest is the stored form of a one-time code.
func OTPDigest(code string) string {
	return SHA256Hex(strings.TrimSpace(code))
}
