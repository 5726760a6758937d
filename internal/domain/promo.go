package domain

import (
	"time"

	"plantaton/internal/ledger"
)

type PromoCode struct {
	ID          int64         `db:"id" json:"id"`
	Code        string        `db:"code" json:"code"`
	Reward      ledger.Amount `db:"reward" json:"reward"`
	MaxUses     int           `db:"max_uses" json:"max_uses"`
	CurrentUses int           `db:"current_uses" json:"current_uses"`
	IsActive    bool          `db:"is_active" json:"is_active"`
	ExpiresAt   *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// Redeemable reports whether one more redemption fits at now.
func (p *PromoCode) Redeemable(now time.Time) bool {
	if !p.IsActive || p.CurrentUses >= p.MaxUses {
		return false
	}
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}

type PromoRedemption struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	PromoCodeID int64     `db:"promo_code_id" json:"promo_code_id"`
	UsedAt      time.Time `db:"used_at" json:"used_at"`
}
