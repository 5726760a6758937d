package repository

import (
	"context"

	"plantaton/internal/domain"
)

type BanRepository struct {
	db DBTX
}

func NewBanRepository(db DBTX) *BanRepository {
	return &BanRepository{db: db}
}

// BanUser inserts or refreshes the ban row.
func (r *BanRepository) BanUser(ctx context.Context, b *domain.UserBan) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO user_bans (user_id, reason, banned_at)
		SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM users WHERE id = $1)
		ON CONFLICT (user_id) DO UPDATE SET reason = EXCLUDED.reason, banned_at = EXCLUDED.banned_at
	`, b.UserID, b.Reason, b.BannedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BanRepository) UnbanUser(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_bans WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BanRepository) IsBanned(ctx context.Context, userID int64) (bool, error) {
	var banned bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM user_bans WHERE user_id = $1)`, userID).Scan(&banned)
	return banned, err
}
