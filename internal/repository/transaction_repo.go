package repository

import (
	"context"
	"encoding/json"
	"errors"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"

	"github.com/jackc/pgx/v5"
)

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ApplyBalance must run inside InTx so the balance update and its ledger
// row commit together.
func (r *TransactionRepository) ApplyBalance(ctx context.Context, userID int64, delta ledger.Amount, txType domain.TransactionType, meta map[string]any) (ledger.Amount, error) {
	var balance ledger.Amount
	err := r.db.QueryRow(ctx,
		`UPDATE users SET balance = balance + $2::numeric
		 WHERE id = $1 AND balance + $2::numeric >= 0
		 RETURNING balance::text`,
		userID, delta.String(),
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return ledger.Zero(), err
		}
		if !exists {
			return ledger.Zero(), ErrNotFound
		}
		return ledger.Zero(), ErrInsufficientFunds
	}
	if err != nil {
		return ledger.Zero(), err
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil || meta == nil {
		metaJSON = []byte("{}")
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO transactions (user_id, type, amount, balance_after, meta)
		 VALUES ($1, $2, $3::numeric, $4::numeric, $5)`,
		userID, txType, delta.String(), balance.String(), metaJSON,
	)
	if err != nil {
		return ledger.Zero(), err
	}
	return balance, nil
}

// ListTransactions returns recent ledger rows for a user
func (r *TransactionRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, amount::text, balance_after::text, meta, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		var (
			tx       domain.Transaction
			metaJSON []byte
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.BalanceAfter, &metaJSON, &tx.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &tx.Meta)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
