package memory

import (
	"context"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository"
)

func (q *queries) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	st, done := q.begin()
	defer done()

	if _, ok := st.users[w.UserID]; !ok {
		return repository.ErrNotFound
	}
	if w.Status == "" {
		w.Status = domain.WithdrawalStatusPending
	}
	w.ID = st.nextID()
	w.CreatedAt = stamp(w.CreatedAt)
	st.withdrawals[w.ID] = *w
	return nil
}

func (q *queries) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	st, done := q.begin()
	defer done()

	w, ok := st.withdrawals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (q *queries) LockWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	return q.GetWithdrawal(ctx, id)
}

func (q *queries) ListUserWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	st, done := q.begin()
	defer done()

	var result []domain.Withdrawal
	for _, w := range st.withdrawals {
		if w.UserID == userID {
			result = append(result, w)
		}
	}
	newestFirst(result, func(w domain.Withdrawal) time.Time { return w.CreatedAt }, func(w domain.Withdrawal) int64 { return w.ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (q *queries) ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.AdminWithdrawal, error) {
	st, done := q.begin()
	defer done()

	var result []domain.AdminWithdrawal
	for _, w := range st.withdrawals {
		if status != "" && w.Status != status {
			continue
		}
		result = append(result, domain.AdminWithdrawal{Withdrawal: w, Username: st.users[w.UserID].Username})
	}
	newestFirst(result,
		func(w domain.AdminWithdrawal) time.Time { return w.CreatedAt },
		func(w domain.AdminWithdrawal) int64 { return w.ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (q *queries) TransitionWithdrawal(ctx context.Context, id int64, from, to domain.WithdrawalStatus, note string, now time.Time) (bool, error) {
	st, done := q.begin()
	defer done()

	w, ok := st.withdrawals[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	w.Note = note
	w.ProcessedAt = ptr(now)
	st.withdrawals[id] = w
	return true, nil
}

func (q *queries) WithdrawalTotals(ctx context.Context) (*domain.WithdrawalTotals, error) {
	st, done := q.begin()
	defer done()

	t := domain.WithdrawalTotals{PendingAmount: ledger.Zero(), ApprovedAmount: ledger.Zero()}
	for _, w := range st.withdrawals {
		switch w.Status {
		case domain.WithdrawalStatusPending:
			t.PendingCount++
			t.PendingAmount = t.PendingAmount.Add(w.Amount)
		case domain.WithdrawalStatusApproved:
			t.ApprovedAmount = t.ApprovedAmount.Add(w.Amount)
		}
	}
	return &t, nil
}
