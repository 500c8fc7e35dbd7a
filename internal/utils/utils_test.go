package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP(0)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "non-digit %q in %s", r, code)
	}
}

func TestPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hashed)
	assert.True(t, CheckPassword(hashed, "s3cret!"))
	assert.False(t, CheckPassword(hashed, "wrong"))
}

func TestOTPDigest_TrimsInput(t *testing.T) {
	assert.Equal(t, OTPDigest("123456"), OTPDigest(" 123456\n"))
	assert.NotEqual(t, OTPDigest("123456"), OTPDigest("123457"))
}

func TestActionToken_RoundTrip(t *testing.T) {
	tok, err := SignActionToken("secret", "gp-1", time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseActionToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "gp-1", claims.GatepassID)
	assert.NotEmpty(t, claims.ID)
}

func TestActionToken_Rejects(t *testing.T) {
	tok, err := SignActionToken("secret", "gp-1", time.Hour, time.Now())
	require.NoError(t, err)

	_, err = ParseActionToken("other-secret", tok)
	assert.ErrorIs(t, err, ErrInvalidActionToken)

	expired, err := SignActionToken("secret", "gp-1", time.Minute, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ParseActionToken("secret", expired)
	assert.ErrorIs(t, err, ErrInvalidActionToken)

	_, err = ParseActionToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidActionToken)
}
