package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"plantaton/internal/domain"
)

const (
	// no 0/O or 1/I so codes survive being read aloud
	referralAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	ReferralCodeLength = 8
	referralCodeTries  = 5
)

// GenerateReferralCode generates a random referral code
func GenerateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralAlphabet)))
	code := make([]byte, ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralAlphabet[n.Int64()]
	}
	return string(code), nil
}

// EnsureReferralCode returns the user's code, assigning a new one when the
// user has none. Collisions are retried a few times.
func EnsureReferralCode(ctx context.Context, q UserQueries, u *domain.User) (string, error) {
	if u.ReferralCode != nil && *u.ReferralCode != "" {
		return *u.ReferralCode, nil
	}

	var err error
	for i := 0; i < referralCodeTries; i++ { // Try up to 5 times in case of collision
		var code string
		code, err = GenerateReferralCode()
		if err != nil {
			return "", err
		}
		err = q.SetReferralCode(ctx, u.ID, code)
		if err == nil {
			u.ReferralCode = &code
			return code, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return "", err
		}
	}
	return "", err
}
