package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository"
)

type PromoResult struct {
	Code       string        `json:"code"`
	Reward     ledger.Amount `json:"reward"`
	NewBalance ledger.Amount `json:"new_balance"`
}

// PromoService redeems capped-use promo codes.
type PromoService struct {
	store repository.Store
	now   func() time.Time
}

func NewPromoService(store repository.Store) *PromoService {
	return &PromoService{store: store, now: time.Now}
}

// NormalizePromoCode is the stored form of a code: trimmed, upper case.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeem takes one use of the code and credits its reward. The use
// counter is bumped with a conditional update, so the cap holds under
// concurrent redemptions by different users.
func (s *PromoService) Redeem(ctx context.Context, userID int64, code string) (*PromoResult, error) {
	code = NormalizePromoCode(code)
	if code == "" {
		return nil, ErrInvalidPromo
	}

	now := s.now()
	res := &PromoResult{Code: code}
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		promo, err := q.GetPromoCodeByCode(ctx, code)
		if err != nil {
			return mapNotFound(err, ErrPromoNotFound)
		}
		used, err := q.HasRedeemedPromo(ctx, userID, promo.ID)
		if err != nil {
			return err
		}
		if used {
			return ErrPromoUnavailable
		}

		ok, err := q.ConsumePromoCode(ctx, promo.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPromoUnavailable
		}

		res.Reward = promo.Reward
		if res.NewBalance, err = credit(ctx, q, userID, promo.Reward, domain.TxPromoCode, map[string]any{"code": code}); err != nil {
			return err
		}
		if err := q.RecordPromoRedemption(ctx, userID, promo.ID, now); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrPromoUnavailable
			}
			return err
		}
		return nil
	})
	if err != nil {
		rejectClaim(err)
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return res, nil
}
