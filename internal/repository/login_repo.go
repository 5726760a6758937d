package repository

import (
	"context"

	"plantaton/internal/domain"
)

// LoginRepository stores authentication events used for multi-account
// detection.
type LoginRepository struct {
	db DBTX
}

func NewLoginRepository(db DBTX) *LoginRepository {
	return &LoginRepository{db: db}
}

func (r *LoginRepository) RecordLogin(ctx context.Context, l *domain.UserLogin) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO user_logins (user_id, ip_address, user_agent, fingerprint, login_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, l.UserID, l.IPAddress, l.UserAgent, l.Fingerprint, l.LoginType, l.CreatedAt).Scan(&l.ID)
}

func (r *LoginRepository) ListUserLogins(ctx context.Context, userID int64, limit int) ([]domain.UserLogin, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, ip_address, user_agent, fingerprint, login_type, created_at
		FROM user_logins
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logins []domain.UserLogin
	for rows.Next() {
		var l domain.UserLogin
		if err := rows.Scan(&l.ID, &l.UserID, &l.IPAddress, &l.UserAgent, &l.Fingerprint, &l.LoginType, &l.CreatedAt); err != nil {
			return nil, err
		}
		logins = append(logins, l)
	}
	return logins, rows.Err()
}

// SharedIPUsers aggregates in the database so the cost stays proportional
// to the shared addresses, not the whole login history.
func (r *LoginRepository) SharedIPUsers(ctx context.Context) ([]domain.SharedIPUser, error) {
	rows, err := r.db.Query(ctx, `
		WITH shared AS (
			SELECT ip_address
			FROM user_logins
			WHERE ip_address <> ''
			GROUP BY ip_address
			HAVING COUNT(DISTINCT user_id) > 1
		), pairs AS (
			SELECT DISTINCT l.ip_address, l.user_id
			FROM user_logins l
			JOIN shared s ON s.ip_address = l.ip_address
		)
		SELECT p.ip_address, u.id, u.username, u.email, u.created_at,
		       (SELECT MAX(l2.created_at) FROM user_logins l2 WHERE l2.user_id = u.id),
		       EXISTS(SELECT 1 FROM user_bans b WHERE b.user_id = u.id)
		FROM pairs p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.ip_address, u.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SharedIPUser
	for rows.Next() {
		var s domain.SharedIPUser
		if err := rows.Scan(&s.IPAddress, &s.ID, &s.Username, &s.Email, &s.CreatedAt, &s.LastLogin, &s.IsBanned); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
