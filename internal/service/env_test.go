package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	ctx   context.Context
	store *memory.Store
	clock *fakeClock

	settings    *SettingsService
	audit       *AuditService
	balance     *BalanceService
	farm        *FarmService
	bonus       *BonusService
	tasks       *TaskService
	promos      *PromoService
	withdrawals *WithdrawalService
	referrals   *ReferralService
	antiAbuse   *AntiAbuseService
	auth        *AuthService
	admin       *AdminService
}

const testBotToken = "123456:test-token"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	InitJWT("test-secret")

	store := memory.New()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	audit := NewAuditService(store)
	settings := NewSettingsService(store, nil, domain.DefaultSettings(), audit)
	antiAbuse := NewAntiAbuseService(store)

	e := &testEnv{
		ctx:         context.Background(),
		store:       store,
		clock:       clock,
		settings:    settings,
		audit:       audit,
		balance:     NewBalanceService(store),
		farm:        NewFarmService(store, settings),
		bonus:       NewBonusService(store, settings),
		tasks:       NewTaskService(store),
		promos:      NewPromoService(store),
		withdrawals: NewWithdrawalService(store, settings, audit),
		referrals:   NewReferralService(store, settings, "https://plantaton.test/"),
		antiAbuse:   antiAbuse,
		auth: NewAuthService(store, antiAbuse, AuthConfig{
			BotToken:          testBotToken,
			AdminCode:         "letmein",
			IsAdminTelegramID: func(id int64) bool { return id == 999 },
		}),
		admin: NewAdminService(store, antiAbuse, audit),
	}
	e.settings.now = clock.Now
	e.farm.now = clock.Now
	e.bonus.now = clock.Now
	e.tasks.now = clock.Now
	e.promos.now = clock.Now
	e.withdrawals.now = clock.Now
	e.antiAbuse.now = clock.Now
	e.auth.now = clock.Now
	e.admin.now = clock.Now
	return e
}

func (e *testEnv) createUser(t *testing.T, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username}
	require.NoError(t, e.store.CreateUser(e.ctx, u))
	require.NoError(t, e.store.CreatePlots(e.ctx, u.ID, domain.PlotCount))
	return u
}

func (e *testEnv) fund(t *testing.T, userID int64, amount string) {
	t.Helper()
	_, err := e.store.ApplyBalance(e.ctx, userID, ledger.MustParse(amount), domain.TxAdminCredit, nil)
	require.NoError(t, err)
}

func (e *testEnv) balanceOf(t *testing.T, userID int64) string {
	t.Helper()
	u, err := e.store.GetUser(e.ctx, userID)
	require.NoError(t, err)
	return u.Balance.String()
}

func (e *testEnv) setSetting(t *testing.T, key, value string) {
	t.Helper()
	_, err := e.settings.Update(e.ctx, 1, map[string]string{key: value})
	require.NoError(t, err)
}

// runConcurrently starts n goroutines at once and returns how many of
// them returned nil.
func runConcurrently(n int, fn func(i int) error) (succeeded int, errs []error) {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		start = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := fn(i)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				errs = append(errs, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	return succeeded, errs
}
