package repository

import (
	"context"
	"errors"
	"time"

	"plantaton/internal/domain"

	"github.com/jackc/pgx/v5"
)

type PromoRepository struct {
	db DBTX
}

func NewPromoRepository(db DBTX) *PromoRepository {
	return &PromoRepository{db: db}
}

const promoColumns = `id, code, reward::text, max_uses, current_uses, is_active, expires_at, created_at`

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var p domain.PromoCode
	if err := row.Scan(&p.ID, &p.Code, &p.Reward, &p.MaxUses, &p.CurrentUses, &p.IsActive, &p.ExpiresAt, &p.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PromoRepository) CreatePromoCode(ctx context.Context, p *domain.PromoCode) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO promo_codes (code, reward, max_uses, is_active, expires_at)
		 VALUES ($1, $2::numeric, $3, $4, $5)
		 ON CONFLICT (code) DO NOTHING
		 RETURNING id, current_uses, created_at`,
		p.Code, p.Reward.String(), p.MaxUses, p.IsActive, p.ExpiresAt,
	).Scan(&p.ID, &p.CurrentUses, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PromoRepository) ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error) {
	rows, err := r.db.Query(ctx, `SELECT `+promoColumns+` FROM promo_codes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PromoRepository) GetPromoCodeByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return scanPromo(r.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code))
}

func (r *PromoRepository) SetPromoCodeActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE promo_codes SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PromoRepository) DeletePromoCode(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PromoRepository) HasRedeemedPromo(ctx context.Context, userID, promoID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_promo_codes WHERE user_id = $1 AND promo_code_id = $2)`,
		userID, promoID,
	).Scan(&exists)
	return exists, err
}

func (r *PromoRepository) ConsumePromoCode(ctx context.Context, promoID int64, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE promo_codes SET current_uses = current_uses + 1
		 WHERE id = $1
		   AND is_active
		   AND current_uses < max_uses
		   AND (expires_at IS NULL OR expires_at > $2)`,
		promoID, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PromoRepository) RecordPromoRedemption(ctx context.Context, userID, promoID int64, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO user_promo_codes (user_id, promo_code_id, used_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, promo_code_id) DO NOTHING`,
		userID, promoID, now,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}
