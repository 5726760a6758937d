package domain

import (
	"time"

	"plantaton/internal/ledger"
)

// ReferralThreshold is the number of harvests a referred user needs before
// the referrer is paid.
const ReferralThreshold = 9

type ReferralEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Harvests  int       `json:"harvests"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

type ReferralStats struct {
	Total         int           `json:"total"`
	Pending       int           `json:"pending"`
	Completed     int           `json:"completed"`
	TotalEarnings ledger.Amount `json:"total_earnings"`
}

type ReferralSummary struct {
	Code       string          `json:"code"`
	Link       string          `json:"link"`
	Bonus      ledger.Amount   `json:"bonus"`
	Percentage int             `json:"percentage"`
	Stats      ReferralStats   `json:"stats"`
	Referrals  []ReferralEntry `json:"referrals"`
}
