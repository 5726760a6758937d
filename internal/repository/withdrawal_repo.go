package repository

import (
	"context"
	"time"

	"plantaton/internal/domain"

	"github.com/jackc/pgx/v5"
)

type WithdrawalRepository struct {
	db DBTX
}

func NewWithdrawalRepository(db DBTX) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

const withdrawalColumns = `w.id, w.user_id, w.amount::text, w.address, w.status, w.note, w.created_at, w.processed_at`

func scanWithdrawal(row pgx.Row, extra ...any) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	dest := append([]any{&w.ID, &w.UserID, &w.Amount, &w.Address, &w.Status, &w.Note, &w.CreatedAt, &w.ProcessedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// CreateWithdrawal inserts a pending withdrawal
func (r *WithdrawalRepository) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	if w.Status == "" {
		w.Status = domain.WithdrawalStatusPending
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO withdrawals (user_id, amount, address, status)
		VALUES ($1, $2::numeric, $3, $4)
		RETURNING id, created_at
	`, w.UserID, w.Amount.String(), w.Address, w.Status).Scan(&w.ID, &w.CreatedAt)
}

// GetWithdrawal retrieves withdrawal by ID
func (r *WithdrawalRepository) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	return scanWithdrawal(r.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals w WHERE w.id = $1`, id))
}

// LockWithdrawal retrieves withdrawal by ID and holds its row lock
func (r *WithdrawalRepository) LockWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	return scanWithdrawal(r.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals w WHERE w.id = $1 FOR UPDATE`, id))
}

// ListUserWithdrawals retrieves the user's withdrawals, newest first
func (r *WithdrawalRepository) ListUserWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals w
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC, w.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}

// ListWithdrawals retrieves withdrawals for the admin queue
func (r *WithdrawalRepository) ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.AdminWithdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`, u.username
		FROM withdrawals w
		JOIN users u ON u.id = w.user_id
		WHERE $1 = '' OR w.status = $1
		ORDER BY w.created_at DESC, w.id DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AdminWithdrawal
	for rows.Next() {
		var username string
		w, err := scanWithdrawal(rows, &username)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.AdminWithdrawal{Withdrawal: *w, Username: username})
	}
	return result, rows.Err()
}

// TransitionWithdrawal moves a withdrawal from one status to another. It
// reports false when the withdrawal is no longer in the from status.
func (r *WithdrawalRepository) TransitionWithdrawal(ctx context.Context, id int64, from, to domain.WithdrawalStatus, note string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE withdrawals SET status = $3, note = $4, processed_at = $5
		WHERE id = $1 AND status = $2
	`, id, from, to, note, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WithdrawalRepository) WithdrawalTotals(ctx context.Context) (*domain.WithdrawalTotals, error) {
	var t domain.WithdrawalTotals
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)::text,
		       COALESCE(SUM(amount) FILTER (WHERE status = 'approved'), 0)::text
		FROM withdrawals
	`).Scan(&t.PendingCount, &t.PendingAmount, &t.ApprovedAmount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
