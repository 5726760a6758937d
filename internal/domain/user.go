package domain

import (
	"time"

	"plantaton/internal/ledger"
)

type User struct {
	ID                   int64         `db:"id" json:"id"`
	TelegramID           *int64        `db:"telegram_id" json:"telegram_id,omitempty"`
	Username             string        `db:"username" json:"username"`
	FirstName            string        `db:"first_name" json:"first_name,omitempty"`
	LastName             string        `db:"last_name" json:"last_name,omitempty"`
	PhotoURL             string        `db:"photo_url" json:"photo_url,omitempty"`
	Email                *string       `db:"email" json:"email,omitempty"`
	Balance              ledger.Amount `db:"balance" json:"balance"`
	ReferralCode         *string       `db:"referral_code" json:"referral_code,omitempty"`
	ReferredBy           *int64        `db:"referred_by" json:"referred_by,omitempty"`
	CompletedHarvests    int           `db:"completed_harvests" json:"completed_harvests"`
	ReferralBonusClaimed bool          `db:"referral_bonus_claimed" json:"referral_bonus_claimed"`
	LastDailyBonus       *time.Time    `db:"last_daily_bonus" json:"last_daily_bonus,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
}

// Member is the admin view of a user.
type Member struct {
	User
	ReferralCount int        `json:"referral_count"`
	IsBanned      bool       `json:"is_banned"`
	BanReason     string     `json:"ban_reason,omitempty"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// MemberSort orders the admin member list.
type MemberSort string

const (
	MemberSortNewest    MemberSort = "newest"
	MemberSortBalance   MemberSort = "balance"
	MemberSortHarvests  MemberSort = "harvests"
	MemberSortReferrals MemberSort = "referrals"
)

func (s MemberSort) Valid() bool {
	switch s {
	case MemberSortNewest, MemberSortBalance, MemberSortHarvests, MemberSortReferrals:
		return true
	}
	return false
}

type MemberFilter struct {
	Search string
	Sort   MemberSort
	Limit  int
	Offset int
}

// UserTotals aggregates the user table for the admin dashboard.
type UserTotals struct {
	TotalUsers   int           `json:"total_users"`
	NewUsers     int           `json:"new_users"`
	TotalBalance ledger.Amount `json:"total_balance"`
	Harvests     int64         `json:"total_harvests"`
}

// UserBan marks a user as suspended. One row per banned user.
type UserBan struct {
	UserID   int64     `db:"user_id" json:"user_id"`
	Reason   string    `db:"reason" json:"reason,omitempty"`
	BannedAt time.Time `db:"banned_at" json:"banned_at"`
}
