package service

import (
	"context"
	"fmt"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
	"plantaton/internal/ton"
)

// WithdrawalNotifier is told about every new withdrawal request.
type WithdrawalNotifier interface {
	NotifyNewWithdrawal(ctx context.Context, w *domain.Withdrawal, username string)
}

// WithdrawalOverview is the user's withdrawal page.
type WithdrawalOverview struct {
	Balance           ledger.Amount       `json:"balance"`
	MinimumWithdrawal ledger.Amount       `json:"minimum_withdrawal"`
	History           []domain.Withdrawal `json:"history"`
}

type WithdrawalResult struct {
	Withdrawal *domain.Withdrawal `json:"withdrawal"`
	NewBalance ledger.Amount      `json:"new_balance"`
}

// WithdrawalService reserves funds on request and refunds them when an
// admin rejects the payout.
type WithdrawalService struct {
	store    repository.Store
	settings *SettingsService
	audit    *AuditService
	notifier WithdrawalNotifier
	now      func() time.Time
}

func NewWithdrawalService(store repository.Store, settings *SettingsService, audit *AuditService) *WithdrawalService {
	return &WithdrawalService{store: store, settings: settings, audit: audit, now: time.Now}
}

// SetNotifier wires the admin notification channel. nil disables it.
func (s *WithdrawalService) SetNotifier(n WithdrawalNotifier) {
	s.notifier = n
}

func (s *WithdrawalService) Overview(ctx context.Context, userID int64) (*WithdrawalOverview, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	history, err := s.store.ListUserWithdrawals(ctx, userID, 50)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if history == nil {
		history = []domain.Withdrawal{}
	}
	return &WithdrawalOverview{Balance: user.Balance, MinimumWithdrawal: settings.MinimumWithdrawal, History: history}, nil
}

// Request debits the amount and records a pending withdrawal as one unit.
func (s *WithdrawalService) Request(ctx context.Context, userID int64, amount ledger.Amount, address string) (*WithdrawalResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount.WithMessage("Amount must be a positive number")
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if amount.LessThan(settings.MinimumWithdrawal) {
		return nil, ErrBelowMinimum.
			WithMessage(fmt.Sprintf("Minimum withdrawal is %s TON", settings.MinimumWithdrawal)).
			WithDetails(map[string]any{"minimumWithdrawal": settings.MinimumWithdrawal.String()})
	}
	address = ton.NormalizeAddress(address)
	if !ton.ValidateAddress(address) {
		return nil, ErrInvalidAddress
	}

	var (
		res      = &WithdrawalResult{}
		username string
	)
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		username = user.Username

		w := &domain.Withdrawal{
			UserID:    userID,
			Amount:    amount,
			Address:   address,
			Status:    domain.WithdrawalStatusPending,
			CreatedAt: s.now(),
		}
		if err := q.CreateWithdrawal(ctx, w); err != nil {
			return err
		}
		balance, err := debit(ctx, q, userID, amount, domain.TxWithdrawal, map[string]any{"withdrawal_id": w.ID})
		if err != nil {
			return err
		}
		res.Withdrawal = w
		res.NewBalance = balance
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	withdrawalsTotal.WithLabelValues(string(domain.WithdrawalStatusPending)).Inc()
	logger.WithContext(ctx).Info("withdrawal requested",
		"user_id", userID,
		"withdrawal_id", res.Withdrawal.ID,
		"amount", amount.String(),
		"address", address,
	)
	if s.notifier != nil {
		s.notifier.NotifyNewWithdrawal(ctx, res.Withdrawal, username)
	}
	return res, nil
}

// List is the admin queue. An empty status lists every withdrawal.
func (s *WithdrawalService) List(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.AdminWithdrawal, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidWithdrawStatus
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	list, err := s.store.ListWithdrawals(ctx, status, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if list == nil {
		list = []domain.AdminWithdrawal{}
	}
	return list, nil
}

// UpdateStatus moves a pending withdrawal to approved or rejected. A
// rejection refunds the amount in the same transaction. Terminal
// withdrawals are never processed again.
func (s *WithdrawalService) UpdateStatus(ctx context.Context, actorID, id int64, status domain.WithdrawalStatus, note string) (*domain.Withdrawal, error) {
	if !status.Terminal() {
		return nil, ErrInvalidWithdrawStatus
	}

	now := s.now()
	var updated *domain.Withdrawal
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		w, err := q.LockWithdrawal(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrWithdrawalNotFound)
		}
		if w.Status != domain.WithdrawalStatusPending {
			return ErrWithdrawalProcessed.WithDetails(map[string]any{"status": string(w.Status)})
		}

		ok, err := q.TransitionWithdrawal(ctx, id, domain.WithdrawalStatusPending, status, note, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWithdrawalProcessed
		}

		if status == domain.WithdrawalStatusRejected {
			if _, err := credit(ctx, q, w.UserID, w.Amount, domain.TxWithdrawalRefund, map[string]any{"withdrawal_id": w.ID}); err != nil {
				return err
			}
		}

		w.Status = status
		w.Note = note
		w.ProcessedAt = &now
		updated = w
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err, ErrWithdrawalNotFound)
	}

	withdrawalsTotal.WithLabelValues(string(status)).Inc()
	s.audit.LogWithdrawDecision(ctx, actorID, updated)
	logger.WithContext(ctx).Info("withdrawal processed", "withdrawal_id", id, "status", string(status), "actor_id", actorID)
	return updated, nil
}
