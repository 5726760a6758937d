package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository"
	"plantaton/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tonAddress = "UQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0XggGG"

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "migrations")
	files, err := os.ReadDir(migDir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(migDir, name))
		require.NoError(t, err)
		_, err = db.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", name)
	}
}

type env struct {
	ctx         context.Context
	pool        *pgxpool.Pool
	store       *repository.PostgresStore
	auth        *service.AuthService
	farm        *service.FarmService
	withdrawals *service.WithdrawalService
	settings    *service.SettingsService
	promos      *service.PromoService
	bonus       *service.BonusService
	admin       *service.AdminService
}

func setup(t *testing.T) *env {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applyMigrations(t, pool)
	service.InitJWT("integration-secret")

	store := repository.NewPostgresStore(pool)
	audit := service.NewAuditService(store)
	settings := service.NewSettingsService(store, nil, domain.DefaultSettings(), audit)
	antiAbuse := service.NewAntiAbuseService(store)

	return &env{
		ctx:         context.Background(),
		pool:        pool,
		store:       store,
		auth:        service.NewAuthService(store, antiAbuse, service.AuthConfig{}),
		farm:        service.NewFarmService(store, settings),
		withdrawals: service.NewWithdrawalService(store, settings, audit),
		settings:    settings,
		promos:      service.NewPromoService(store),
		bonus:       service.NewBonusService(store, settings),
		admin:       service.NewAdminService(store, antiAbuse, audit),
	}
}

// newUser registers a fresh account; usernames are unique per run.
func (e *env) newUser(t *testing.T, prefix string) *domain.User {
	t.Helper()
	name := fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	res, err := e.auth.DevLogin(e.ctx, name, "", service.LoginMeta{IPAddress: "10.1.2.3"})
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.User
}

func (e *env) credit(t *testing.T, userID int64, amount string) {
	t.Helper()
	_, err := e.store.ApplyBalance(e.ctx, userID, ledger.MustParse(amount), domain.TxAdminCredit, nil)
	require.NoError(t, err)
}

func TestRegisterCreatesPlotsAndReferralCode(t *testing.T) {
	e := setup(t)
	u := e.newUser(t, "reg")

	plots, err := e.store.ListPlots(e.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, plots, domain.PlotCount)
	for i, p := range plots {
		require.Equal(t, i, p.PlotIndex)
		require.Equal(t, domain.PlotStatusEmpty, p.Status)
	}
	require.NotNil(t, u.ReferralCode)

	ref := *u.ReferralCode
	res, err := e.auth.DevLogin(e.ctx, fmt.Sprintf("invitee_%d", time.Now().UnixNano()), ref, service.LoginMeta{})
	require.NoError(t, err)
	require.NotNil(t, res.User.ReferredBy)
	require.Equal(t, u.ID, *res.User.ReferredBy)
}

func TestConcurrentHarvestPaysOnce(t *testing.T) {
	e := setup(t)
	u := e.newUser(t, "harvest")

	_, err := e.farm.Plant(e.ctx, u.ID, 0)
	require.NoError(t, err)
	_, err = e.pool.Exec(e.ctx,
		`UPDATE plots SET planted_at = NOW() - INTERVAL '7 days' WHERE user_id = $1 AND plot_index = 0`, u.ID)
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.farm.Harvest(e.ctx, u.ID, 0); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)

	settings, err := e.settings.Get(e.ctx)
	require.NoError(t, err)
	got, err := e.store.GetUser(e.ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(settings.Box(0).HarvestReward), "balance %s", got.Balance)
	require.Equal(t, 1, got.CompletedHarvests)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	e := setup(t)
	u := e.newUser(t, "wd")
	e.credit(t, u.ID, "10")

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("3"), tonAddress); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 3, successes)

	got, err := e.store.GetUser(e.ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "1.0000", got.Balance.String())
}

func TestConcurrentRejectRefundsOnce(t *testing.T) {
	e := setup(t)
	u := e.newUser(t, "refund")
	e.credit(t, u.ID, "10")

	res, err := e.withdrawals.Request(e.ctx, u.ID, ledger.MustParse("4"), tonAddress)
	require.NoError(t, err)
	require.Equal(t, "6.0000", res.NewBalance.String())

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.withdrawals.UpdateStatus(e.ctx, 0, res.Withdrawal.ID, domain.WithdrawalStatusRejected, "bad address")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, service.ErrWithdrawalProcessed)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)

	got, err := e.store.GetUser(e.ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "10.0000", got.Balance.String())

	w, err := e.store.GetWithdrawal(e.ctx, res.Withdrawal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalStatusRejected, w.Status)
	require.NotNil(t, w.ProcessedAt)
}

func (e *env) newPromo(t *testing.T, reward string, maxUses int) string {
	t.Helper()
	code := fmt.Sprintf("P%d", time.Now().UnixNano()%1e12)
	_, err := e.admin.CreatePromoCode(e.ctx, 0, service.PromoInput{
		Code:    code,
		Reward:  ledger.MustParse(reward),
		MaxUses: maxUses,
	})
	require.NoError(t, err)
	return code
}

// runConcurrently starts n calls of fn at once and counts the ones that
// returned nil.
func runConcurrently(n int, fn func(i int) error) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			if fn(i) == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()
	return successes
}

func TestConcurrentPromoLastSlot(t *testing.T) {
	e := setup(t)
	code := e.newPromo(t, "0.5", 1)

	const players = 50
	users := make([]*domain.User, players)
	for i := range users {
		users[i] = e.newUser(t, fmt.Sprintf("promo%d", i))
	}

	successes := runConcurrently(players, func(i int) error {
		_, err := e.promos.Redeem(e.ctx, users[i].ID, code)
		if err != nil {
			assert.ErrorIs(t, err, service.ErrPromoUnavailable)
		}
		return err
	})
	require.Equal(t, 1, successes)

	p, err := e.store.GetPromoCodeByCode(e.ctx, code)
	require.NoError(t, err)
	require.Equal(t, 1, p.CurrentUses)

	paid := 0
	for _, u := range users {
		got, err := e.store.GetUser(e.ctx, u.ID)
		require.NoError(t, err)
		switch got.Balance.String() {
		case "0.5000":
			paid++
		case "0.0000":
		default:
			t.Fatalf("unexpected balance %s for user %d", got.Balance, u.ID)
		}
	}
	require.Equal(t, 1, paid)
}

func TestConcurrentPromoSameUser(t *testing.T) {
	e := setup(t)
	code := e.newPromo(t, "0.25", 100)
	u := e.newUser(t, "promo_twice")

	successes := runConcurrently(10, func(int) error {
		_, err := e.promos.Redeem(e.ctx, u.ID, code)
		return err
	})
	require.Equal(t, 1, successes)

	// the losing redemptions rolled back their use and their credit
	p, err := e.store.GetPromoCodeByCode(e.ctx, code)
	require.NoError(t, err)
	require.Equal(t, 1, p.CurrentUses)

	got, err := e.store.GetUser(e.ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "0.2500", got.Balance.String())

	used, err := e.store.HasRedeemedPromo(e.ctx, u.ID, p.ID)
	require.NoError(t, err)
	require.True(t, used)
}

func TestConcurrentDailyBonusPaysOnce(t *testing.T) {
	e := setup(t)
	u := e.newUser(t, "daily")

	settings, err := e.settings.Get(e.ctx)
	require.NoError(t, err)
	if !settings.DailyBonusAmount.IsPositive() {
		t.Skip("daily bonus disabled in this database")
	}

	successes := runConcurrently(10, func(int) error {
		_, err := e.bonus.Claim(e.ctx, u.ID)
		if err != nil {
			assert.ErrorIs(t, err, service.ErrDailyBonusClaimed)
		}
		return err
	})
	require.Equal(t, 1, successes)

	got, err := e.store.GetUser(e.ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(settings.DailyBonusAmount), "balance %s", got.Balance)
	require.NotNil(t, got.LastDailyBonus)

	st, err := e.bonus.Status(e.ctx, u.ID)
	require.NoError(t, err)
	require.False(t, st.CanClaim)
}
