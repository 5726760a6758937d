package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"

	"github.com/stretchr/testify/require"
)

var testAddress = "EQD4FPq-PRDieyQKkizFTRtSDyucUIqrj0v_zXJmqaDp6_0t"

type recordingNotifier struct {
	got []int64
}

func (n *recordingNotifier) NotifyNewWithdrawal(_ context.Context, w *domain.Withdrawal, _ string) {
	n.got = append(n.got, w.ID)
}

func TestWithdrawal_RequestRejectRefund(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")
	e.fund(t, u.ID, "10")
	notifier := &recordingNotifier{}
	e.withdrawals.SetNotifier(notifier)

	res, err := e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("5"), testAddress)
	require.NoError(t, err)
	require.Equal(t, "5.0000", res.NewBalance.String())
	require.Equal(t, domain.WithdrawalStatusPending, res.Withdrawal.Status)
	require.Equal(t, "5.0000", res.Withdrawal.Amount.String())
	require.Equal(t, []int64{res.Withdrawal.ID}, notifier.got)

	w, err := e.withdrawals.UpdateStatus(e.ctx, 1, res.Withdrawal.ID, domain.WithdrawalStatusRejected, "wrong address")
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalStatusRejected, w.Status)
	require.Equal(t, "10.0000", e.balanceOf(t, u.ID))

	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, res.Withdrawal.ID, domain.WithdrawalStatusRejected, "again")
	require.ErrorIs(t, err, ErrWithdrawalProcessed)
	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, res.Withdrawal.ID, domain.WithdrawalStatusApproved, "")
	require.ErrorIs(t, err, ErrWithdrawalProcessed)
	require.Equal(t, "10.0000", e.balanceOf(t, u.ID))

	stored, err := e.store.GetWithdrawal(e.ctx, res.Withdrawal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalStatusRejected, stored.Status)
	require.Equal(t, "wrong address", stored.Note)
	require.NotNil(t, stored.ProcessedAt)
}

func TestWithdrawal_ApproveKeepsBalance(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")
	e.fund(t, u.ID, "1")

	res, err := e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("0.4"), testAddress)
	require.NoError(t, err)
	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, res.Withdrawal.ID, domain.WithdrawalStatusApproved, "paid")
	require.NoError(t, err)
	require.Equal(t, "0.6000", e.balanceOf(t, u.ID))

	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, res.Withdrawal.ID, domain.WithdrawalStatusRejected, "")
	require.ErrorIs(t, err, ErrWithdrawalProcessed)
	require.Equal(t, "0.6000", e.balanceOf(t, u.ID))
}

func TestWithdrawal_ConcurrentRejectRefundsOnce(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")
	e.fund(t, u.ID, "2")
	res, err := e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("2"), testAddress)
	require.NoError(t, err)

	ok, _ := runConcurrently(10, func(int) error {
		_, err := e.withdrawals.UpdateStatus(e.ctx, 1, res.Withdrawal.ID, domain.WithdrawalStatusRejected, "")
		return err
	})
	require.Equal(t, 1, ok)
	require.Equal(t, "2.0000", e.balanceOf(t, u.ID))
}

func TestWithdrawal_Validation(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")
	e.fund(t, u.ID, "1")

	_, err := e.withdrawals.Request(e.ctx, u.ID, ledger.Zero(), testAddress)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("0.05"), testAddress)
	require.ErrorIs(t, err, ErrBelowMinimum)
	_, err = e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("0.5"), "short")
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("0.5"), strings.Repeat("A", 39)+"!")
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("1.0001"), testAddress)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, 999, domain.WithdrawalStatusApproved, "")
	require.ErrorIs(t, err, ErrWithdrawalNotFound)
	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, 999, domain.WithdrawalStatusPending, "")
	require.ErrorIs(t, err, ErrInvalidWithdrawStatus)

	require.Equal(t, "1.0000", e.balanceOf(t, u.ID))
	overview, err := e.withdrawals.Overview(e.ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, overview.History)
	require.Equal(t, "0.1000", overview.MinimumWithdrawal.String())
}

func TestWithdrawal_ConcurrentRequestsNeverOverdraw(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")
	e.fund(t, u.ID, "1")

	ok, errs := runConcurrently(10, func(int) error {
		_, err := e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("0.3"), testAddress)
		return err
	})
	require.Equal(t, 3, ok)
	for _, err := range errs {
		require.ErrorIs(t, err, ErrInsufficientBalance)
	}
	require.Equal(t, "0.1000", e.balanceOf(t, u.ID))

	list, err := e.withdrawals.List(e.ctx, domain.WithdrawalStatusPending, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "alice", list[0].Username)
}

// Balances plus pending withdrawals always equal credits issued minus
// approved payouts.
func TestConservation(t *testing.T) {
	e := newTestEnv(t)
	a := e.createUser(t, "a")
	b := e.createUser(t, "b")
	issued := ledger.Zero()

	for _, u := range []*domain.User{a, b} {
		e.fund(t, u.ID, "3")
		issued = issued.Add(ledger.MustParse("3"))
		_, err := e.bonus.Claim(e.ctx, u.ID)
		require.NoError(t, err)
		issued = issued.Add(ledger.MustParse("0.0001"))
		_, err = e.farm.Plant(e.ctx, u.ID, 0)
		require.NoError(t, err)
	}
	newPromo(t, e, "BOTH", 5)
	for _, u := range []*domain.User{a, b} {
		_, err := e.promos.Redeem(e.ctx, u.ID, "BOTH")
		require.NoError(t, err)
		issued = issued.Add(ledger.MustParse("0.05"))
	}
	e.clock.Advance(time.Minute)
	for _, u := range []*domain.User{a, b} {
		_, err := e.farm.Harvest(e.ctx, u.ID, 0)
		require.NoError(t, err)
		issued = issued.Add(ledger.MustParse("0.0001"))
	}

	w1, err := e.withdrawals.Request(e.ctx, a.ID, ledger.MustParse("1"), testAddress)
	require.NoError(t, err)
	w2, err := e.withdrawals.Request(e.ctx, b.ID, ledger.MustParse("2"), testAddress)
	require.NoError(t, err)
	_, err = e.withdrawals.Request(e.ctx, b.ID, ledger.MustParse("0.5"), testAddress)
	require.NoError(t, err)

	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, w1.Withdrawal.ID, domain.WithdrawalStatusRejected, "")
	require.NoError(t, err)
	_, err = e.withdrawals.UpdateStatus(e.ctx, 1, w2.Withdrawal.ID, domain.WithdrawalStatusApproved, "")
	require.NoError(t, err)
	approved := ledger.MustParse("2")

	pending := ledger.Zero()
	all, err := e.withdrawals.List(e.ctx, "", 0)
	require.NoError(t, err)
	for _, w := range all {
		if w.Status == domain.WithdrawalStatusPending {
			pending = pending.Add(w.Amount)
		}
	}
	balances := ledger.Zero()
	for _, u := range []*domain.User{a, b} {
		user, err := e.store.GetUser(e.ctx, u.ID)
		require.NoError(t, err)
		balances = balances.Add(user.Balance)
	}

	require.Equal(t, issued.Sub(approved).String(), balances.Add(pending).String())
}
