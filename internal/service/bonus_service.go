package service

import (
	"context"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository"
)

// DailyBonusCooldown is the minimum gap between two daily bonus claims.
const DailyBonusCooldown = 24 * time.Hour

// DailyBonusStatus is the eligibility view of the daily bonus. Reading it
// never changes state.
type DailyBonusStatus struct {
	CanClaim       bool          `json:"can_claim"`
	Disabled       bool          `json:"disabled,omitempty"`
	Amount         ledger.Amount `json:"amount"`
	LastClaimed    *time.Time    `json:"last_claimed,omitempty"`
	NextClaimTime  *time.Time    `json:"next_claim_time,omitempty"`
	RemainingHours int64         `json:"remaining_hours"`
}

type DailyBonusResult struct {
	Amount        ledger.Amount `json:"amount"`
	NewBalance    ledger.Amount `json:"new_balance"`
	NextClaimTime time.Time     `json:"next_claim_time"`
}

// BonusService pays the daily bonus.
type BonusService struct {
	store    repository.Store
	settings *SettingsService
	now      func() time.Time
}

func NewBonusService(store repository.Store, settings *SettingsService) *BonusService {
	return &BonusService{store: store, settings: settings, now: time.Now}
}

func (s *BonusService) Status(ctx context.Context, userID int64) (*DailyBonusStatus, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	st := &DailyBonusStatus{CanClaim: true, Amount: settings.DailyBonusAmount, LastClaimed: user.LastDailyBonus}
	if !settings.DailyBonusAmount.IsPositive() {
		st.CanClaim = false
		st.Disabled = true
	}
	if user.LastDailyBonus != nil {
		next := user.LastDailyBonus.Add(DailyBonusCooldown)
		now := s.now()
		if now.Before(next) {
			st.CanClaim = false
			st.NextClaimTime = &next
			st.RemainingHours = int64(next.Sub(now).Hours())
		}
	}
	return st, nil
}

// Claim stamps the claim time with a conditional update and credits the
// bonus in the same transaction, so concurrent claims pay at most once per
// cooldown window.
func (s *BonusService) Claim(ctx context.Context, userID int64) (*DailyBonusResult, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	amount := settings.DailyBonusAmount
	if !amount.IsPositive() {
		return nil, ErrDailyBonusDisabled
	}

	now := s.now()
	res := &DailyBonusResult{Amount: amount, NextClaimTime: now.Add(DailyBonusCooldown)}
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		ok, err := q.ClaimDailyBonus(ctx, userID, now, DailyBonusCooldown)
		if err != nil {
			return err
		}
		if !ok {
			details := map[string]any{}
			if user.LastDailyBonus != nil {
				details["nextClaimTime"] = user.LastDailyBonus.Add(DailyBonusCooldown).UTC().Format(time.RFC3339)
			}
			return ErrDailyBonusClaimed.WithDetails(details)
		}
		res.NewBalance, err = credit(ctx, q, userID, amount, domain.TxDailyBonus, nil)
		return err
	})
	if err != nil {
		rejectClaim(err)
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return res, nil
}
