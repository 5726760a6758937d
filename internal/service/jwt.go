package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

var jwtSecret []byte

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrJWTNotReady  = errors.New("jwt secret is not set")
)

// Claims carried by every session token.
type Claims struct {
	UserID int64 `json:"user_id"`
	Admin  bool  `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

func InitJWT(secret string) {
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	jwtSecret = []byte(secret)
}

// GenerateJWT issues a token for userID. Admin tokens unlock /api/admin.
func GenerateJWT(userID int64, admin bool) (string, error) {
	if len(jwtSecret) == 0 {
		return "", ErrJWTNotReady
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Admin:  admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*Claims, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrJWTNotReady
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, errors.New("user_id not found")
	}
	return claims, nil
}
