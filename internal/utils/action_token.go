package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actionTokenIssuer = "college-portal/gatepass"

var ErrInvalidActionToken = errors.New("invalid or expired action token")

// ActionClaims authorise a single guardian decision on one gatepass.
type ActionClaims struct {
	GatepassID string `json:"gatepass_id"`
	jwt.RegisteredClaims
}

func SignActionToken(secret, gatepassID string, ttl time.Duration, now time.Time) (string, error) {
	claims := ActionClaims{
		GatepassID: gatepassID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    actionTokenIssuer,
			Subject:   gatepassID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseActionToken(secret, tokenStr string) (*ActionClaims, error) {
	claims := &ActionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(actionTokenIssuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidActionToken
	}
	if claims.GatepassID == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidActionToken
	}
	return claims, nil
}
