package domain

import (
	"time"

	"plantaton/internal/ledger"
)

// WithdrawalStatus represents withdrawal processing status
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusApproved || s == WithdrawalStatusRejected
}

func (s WithdrawalStatus) Valid() bool {
	return s == WithdrawalStatusPending || s.Terminal()
}

// Withdrawal is a user's request to pay out part of their balance.
// The amount is debited when the request is created.
type Withdrawal struct {
	ID          int64            `db:"id" json:"id"`
	UserID      int64            `db:"user_id" json:"user_id"`
	Amount      ledger.Amount    `db:"amount" json:"amount"`
	Address     string           `db:"address" json:"address"`
	Status      WithdrawalStatus `db:"status" json:"status"`
	Note        string           `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
}

// AdminWithdrawal joins the owner's username for the admin queue.
type AdminWithdrawal struct {
	Withdrawal
	Username string `json:"username"`
}

type WithdrawalTotals struct {
	PendingCount   int           `json:"pending_count"`
	PendingAmount  ledger.Amount `json:"pending_amount"`
	ApprovedAmount ledger.Amount `json:"approved_amount"`
}
