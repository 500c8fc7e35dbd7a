package utils

import (
	"crypto/rand"
	"math/big"
)

const otpDigits = "0123456789"

// GenerateOTP returns an n-digit numeric code (6 when n <= 0).
func GenerateOTP(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		idxBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(otpDigits))))
		if err != nil {
			return "", err
		}
		b[i] = otpDigits[idxBig.Int64()]
	}
	return string(b), nil
}
