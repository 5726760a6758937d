package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateJWT(7, true)
	require.NoError(t, err)

	claims, err := ParseJWT(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.True(t, claims.Admin)
}

func TestJWTRejectsForeignAndExpired(t *testing.T) {
	InitJWT("test-secret")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err = expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseJWT("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
