package service

import (
	"context"
	"errors"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
)

// BalanceService handles all balance operations
type BalanceService struct {
	store repository.Store
}

// NewBalanceService creates a new balance service
func NewBalanceService(store repository.Store) *BalanceService {
	return &BalanceService{store: store}
}

// GetUser returns the user's profile with its current balance.
func (s *BalanceService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return u, nil
}

// History returns the user's most recent ledger rows.
func (s *BalanceService) History(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	txs, err := s.store.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return txs, nil
}

// credit adds a positive amount inside an open transaction.
func credit(ctx context.Context, q repository.Queries, userID int64, amount ledger.Amount, txType domain.TransactionType, meta map[string]any) (ledger.Amount, error) {
	if !amount.IsPositive() {
		return ledger.Zero(), ErrInvalidAmount
	}
	balance, err := q.ApplyBalance(ctx, userID, amount, txType, meta)
	if err != nil {
		return ledger.Zero(), mapNotFound(err, ErrUserNotFound)
	}
	rewardsCredited.WithLabelValues(string(txType)).Inc()
	logBalanceChange(ctx, userID, amount, balance, txType)
	return balance, nil
}

// debit removes a positive amount inside an open transaction. The balance
// never goes below zero.
func debit(ctx context.Context, q repository.Queries, userID int64, amount ledger.Amount, txType domain.TransactionType, meta map[string]any) (ledger.Amount, error) {
	if !amount.IsPositive() {
		return ledger.Zero(), ErrInvalidAmount
	}
	balance, err := q.ApplyBalance(ctx, userID, amount.Neg(), txType, meta)
	switch {
	case errors.Is(err, repository.ErrInsufficientFunds):
		return ledger.Zero(), ErrInsufficientBalance
	case err != nil:
		return ledger.Zero(), mapNotFound(err, ErrUserNotFound)
	}
	logBalanceChange(ctx, userID, amount.Neg(), balance, txType)
	return balance, nil
}

func logBalanceChange(ctx context.Context, userID int64, delta, balance ledger.Amount, txType domain.TransactionType) {
	logger.WithContext(ctx).Info("balance changed",
		"user_id", userID,
		"amount", delta.String(),
		"new_balance", balance.String(),
		"source", string(txType),
	)
}

// mapNotFound turns repository.ErrNotFound into the given application
// error and anything unexpected into an internal error.
func mapNotFound(err error, nf *apperr.Error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nf
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}
