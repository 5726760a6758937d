package repository

import (
	"context"
	"errors"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the persistence boundary of the service layer.
type Store interface {
	Queries
	// InTx runs fn in a single transaction. Any error from fn rolls back
	// every write fn made.
	InTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}

type Queries interface {
	UserQueries
	BalanceQueries
	PlotQueries
	TaskQueries
	WithdrawalQueries
	PromoQueries
	SettingsQueries
	LoginQueries
	BanQueries
	AuditQueries
}

type UserQueries interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// LockUser reads the user and holds a row lock until the transaction ends.
	LockUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByTelegramID(ctx context.Context, tgID int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error)
	SetReferralCode(ctx context.Context, userID int64, code string) error
	SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error)
	IncrementHarvests(ctx context.Context, userID int64) (int, error)
	MarkReferralBonusClaimed(ctx context.Context, userID int64) (bool, error)
	// ClaimDailyBonus stamps last_daily_bonus when the previous claim is
	// at least cooldown old. It reports false when the window is closed.
	ClaimDailyBonus(ctx context.Context, userID int64, now time.Time, cooldown time.Duration) (bool, error)
	ListReferrals(ctx context.Context, referrerID int64) ([]domain.User, error)
	ListMembers(ctx context.Context, f domain.MemberFilter) ([]domain.Member, int, error)
	GetMember(ctx context.Context, id int64) (*domain.Member, error)
	UserTotals(ctx context.Context, since time.Time) (*domain.UserTotals, error)
}

type BalanceQueries interface {
	// ApplyBalance adds delta to the user's balance and records a ledger
	// row. A debit that would go below zero fails with ErrInsufficientFunds.
	ApplyBalance(ctx context.Context, userID int64, delta ledger.Amount, txType domain.TransactionType, meta map[string]any) (ledger.Amount, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error)
}

type PlotQueries interface {
	CreatePlots(ctx context.Context, userID int64, count int) error
	ListPlots(ctx context.Context, userID int64) ([]domain.Plot, error)
	LockPlot(ctx context.Context, userID int64, index int) (*domain.Plot, error)
	PlantPlot(ctx context.Context, userID int64, index int, now time.Time) (bool, error)
	ClearPlot(ctx context.Context, userID int64, index int) (bool, error)
}

type TaskQueries interface {
	ListTasks(ctx context.Context, activeOnly bool) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, t *domain.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ListUserTasks(ctx context.Context, userID int64) ([]domain.UserTask, error)
	GetUserTask(ctx context.Context, userID, taskID int64) (*domain.UserTask, error)
	StartTask(ctx context.Context, ut *domain.UserTask) error
	MarkTaskClaimed(ctx context.Context, userID, taskID int64, now time.Time) (bool, error)
}

type WithdrawalQueries interface {
	CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error
	GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error)
	LockWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error)
	ListUserWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)
	// ListWithdrawals returns every withdrawal, or only those in status
	// when it is non-empty.
	ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.AdminWithdrawal, error)
	TransitionWithdrawal(ctx context.Context, id int64, from, to domain.WithdrawalStatus, note string, now time.Time) (bool, error)
	WithdrawalTotals(ctx context.Context) (*domain.WithdrawalTotals, error)
}

type PromoQueries interface {
	CreatePromoCode(ctx context.Context, p *domain.PromoCode) error
	ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error)
	GetPromoCodeByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	SetPromoCodeActive(ctx context.Context, id int64, active bool) error
	DeletePromoCode(ctx context.Context, id int64) error
	HasRedeemedPromo(ctx context.Context, userID, promoID int64) (bool, error)
	// ConsumePromoCode takes one use if the code is active, unexpired and
	// under its cap.
	ConsumePromoCode(ctx context.Context, promoID int64, now time.Time) (bool, error)
	RecordPromoRedemption(ctx context.Context, userID, promoID int64, now time.Time) error
}

type SettingsQueries interface {
	LoadSettings(ctx context.Context) (map[string]string, int64, error)
	SaveSettings(ctx context.Context, values map[string]string, now time.Time) (int64, error)
}

type LoginQueries interface {
	RecordLogin(ctx context.Context, l *domain.UserLogin) error
	ListUserLogins(ctx context.Context, userID int64, limit int) ([]domain.UserLogin, error)
	// SharedIPUsers lists every user on an IP address that more than one
	// distinct user has logged in from, ordered by IP then user id.
	SharedIPUsers(ctx context.Context) ([]domain.SharedIPUser, error)
}

type BanQueries interface {
	BanUser(ctx context.Context, b *domain.UserBan) error
	UnbanUser(ctx context.Context, userID int64) (bool, error)
	IsBanned(ctx context.Context, userID int64) (bool, error)
}

type AuditQueries interface {
	CreateAuditLog(ctx context.Context, l *domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
