package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository"

	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, s *Store, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NoError(t, s.CreatePlots(context.Background(), u.ID, domain.PlotCount))
	return u
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "alice")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(q repository.Queries) error {
		if _, err := q.ApplyBalance(ctx, u.ID, ledger.MustParse("5"), domain.TxAdminCredit, nil); err != nil {
			return err
		}
		if _, err := q.PlantPlot(ctx, u.ID, 0, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.IsZero())

	plots, err := s.ListPlots(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PlotStatusEmpty, plots[0].Status)

	txs, err := s.ListTransactions(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestInTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "bob")

	require.NoError(t, s.InTx(ctx, func(q repository.Queries) error {
		_, err := q.ApplyBalance(ctx, u.ID, ledger.MustParse("1.25"), domain.TxAdminCredit, map[string]any{"by": "test"})
		return err
	}))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "1.2500", got.Balance.String())

	txs, err := s.ListTransactions(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "1.2500", txs[0].BalanceAfter.String())
}

func TestApplyBalanceRejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "carol")

	_, err := s.ApplyBalance(ctx, u.ID, ledger.MustParse("-0.0001"), domain.TxWithdrawal, nil)
	require.ErrorIs(t, err, repository.ErrInsufficientFunds)

	_, err = s.ApplyBalance(ctx, 999, ledger.MustParse("1"), domain.TxAdminCredit, nil)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateUserDuplicates(t *testing.T) {
	ctx := context.Background()
	s := New()
	tg := int64(42)
	require.NoError(t, s.CreateUser(ctx, &domain.User{Username: "dave", TelegramID: &tg}))
	require.ErrorIs(t, s.CreateUser(ctx, &domain.User{Username: "dave"}), repository.ErrDuplicate)
	require.ErrorIs(t, s.CreateUser(ctx, &domain.User{Username: "other", TelegramID: &tg}), repository.ErrDuplicate)
}

func TestConcurrentTransactionsSerialise(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "erin")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.InTx(ctx, func(q repository.Queries) error {
				_, err := q.ApplyBalance(ctx, u.ID, ledger.MustParse("0.0001"), domain.TxHarvest, nil)
				return err
			})
		}()
	}
	wg.Wait()

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "0.0050", got.Balance.String())
}

func TestSharedIPUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newUser(t, s, "a")
	b := newUser(t, s, "b")
	c := newUser(t, s, "c")

	for _, l := range []domain.UserLogin{
		{UserID: a.ID, IPAddress: "10.0.0.1", LoginType: domain.LoginTypeRegister},
		{UserID: a.ID, IPAddress: "10.0.0.1", LoginType: domain.LoginTypeLogin},
		{UserID: b.ID, IPAddress: "10.0.0.1", LoginType: domain.LoginTypeRegister},
		{UserID: c.ID, IPAddress: "10.0.0.2", LoginType: domain.LoginTypeRegister},
		{UserID: c.ID, IPAddress: "", LoginType: domain.LoginTypeLogin},
		{UserID: a.ID, IPAddress: "", LoginType: domain.LoginTypeLogin},
	} {
		l := l
		require.NoError(t, s.RecordLogin(ctx, &l))
	}
	require.NoError(t, s.BanUser(ctx, &domain.UserBan{UserID: b.ID, Reason: "multi"}))

	rows, err := s.SharedIPUsers(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "10.0.0.1", rows[0].IPAddress)
	require.Equal(t, a.ID, rows[0].ID)
	require.False(t, rows[0].IsBanned)
	require.Equal(t, b.ID, rows[1].ID)
	require.True(t, rows[1].IsBanned)
	require.NotNil(t, rows[0].LastLogin)
}
