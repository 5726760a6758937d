package domain

import (
	"time"

	"plantaton/internal/ledger"
)

// TransactionType labels a balance movement.
type TransactionType string

const (
	TxHarvest          TransactionType = "harvest"
	TxTaskReward       TransactionType = "task_reward"
	TxDailyBonus       TransactionType = "daily_bonus"
	TxPromoCode        TransactionType = "promo_code"
	TxReferralBonus    TransactionType = "referral_bonus"
	TxWithdrawal       TransactionType = "withdrawal"
	TxWithdrawalRefund TransactionType = "withdrawal_refund"
	TxAdminCredit      TransactionType = "admin_credit"
)

// Transaction is one ledger row. Amount is signed.
type Transaction struct {
	ID           int64           `db:"id" json:"id"`
	UserID       int64           `db:"user_id" json:"user_id"`
	Type         TransactionType `db:"type" json:"type"`
	Amount       ledger.Amount   `db:"amount" json:"amount"`
	BalanceAfter ledger.Amount   `db:"balance_after" json:"balance_after"`
	Meta         map[string]any  `db:"meta" json:"meta,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
