package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"plantaton/internal/domain"

	"github.com/jackc/pgx/v5"
)

const userColumns = `u.id, u.telegram_id, u.username, u.first_name, u.last_name, u.photo_url, u.email,
	u.balance::text, u.referral_code, u.referred_by, u.completed_harvests,
	u.referral_bonus_claimed, u.last_daily_bonus, u.created_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUserInto(row pgx.Row, u *domain.User, extra ...any) error {
	dest := []any{
		&u.ID,
		&u.TelegramID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.PhotoURL,
		&u.Email,
		&u.Balance,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.CompletedHarvests,
		&u.ReferralBonusClaimed,
		&u.LastDailyBonus,
		&u.CreatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, arg)
	if err := scanUserInto(row, &u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (telegram_id, username, first_name, last_name, photo_url, email)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT DO NOTHING
		 RETURNING id, balance::text, created_at`,
		u.TelegramID, u.Username, u.FirstName, u.LastName, u.PhotoURL, u.Email,
	).Scan(&u.ID, &u.Balance, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `u.id = $1`, id)
}

func (r *UserRepository) LockUser(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `u.id = $1 FOR UPDATE`, id)
}

func (r *UserRepository) GetUserByTelegramID(ctx context.Context, tgID int64) (*domain.User, error) {
	return r.getOne(ctx, `u.telegram_id = $1`, tgID)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `u.username = $1`, username)
}

func (r *UserRepository) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.getOne(ctx, `u.referral_code = $1`, code)
}

// SetReferralCode assigns code unless another user already holds it, in
// which case it returns ErrDuplicate without aborting the transaction.
func (r *UserRepository) SetReferralCode(ctx context.Context, userID int64, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET referral_code = $2
		 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM users WHERE referral_code = $2)`,
		userID, code,
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

// SetReferrer links a referrer once; an existing link is never replaced.
func (r *UserRepository) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET referred_by = $2
		 WHERE id = $1 AND referred_by IS NULL AND id <> $2`,
		userID, referrerID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) IncrementHarvests(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`UPDATE users SET completed_harvests = completed_harvests + 1
		 WHERE id = $1
		 RETURNING completed_harvests`,
		userID,
	).Scan(&n)
	return n, notFound(err)
}

func (r *UserRepository) MarkReferralBonusClaimed(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET referral_bonus_claimed = TRUE
		 WHERE id = $1 AND referral_bonus_claimed = FALSE`,
		userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) ClaimDailyBonus(ctx context.Context, userID int64, now time.Time, cooldown time.Duration) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET last_daily_bonus = $2
		 WHERE id = $1 AND (last_daily_bonus IS NULL OR last_daily_bonus <= $3)`,
		userID, now, now.Add(-cooldown),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) ListReferrals(ctx context.Context, referrerID int64) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users u
		 WHERE u.referred_by = $1
		 ORDER BY u.created_at DESC`,
		referrerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := scanUserInto(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const memberSelect = `SELECT ` + userColumns + `,
	(SELECT COUNT(*) FROM users r WHERE r.referred_by = u.id) AS referral_count,
	b.user_id IS NOT NULL AS is_banned,
	COALESCE(b.reason, ''),
	(SELECT MAX(l.created_at) FROM user_logins l WHERE l.user_id = u.id) AS last_login
	FROM users u
	LEFT JOIN user_bans b ON b.user_id = u.id`

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	if err := scanUserInto(row, &m.User, &m.ReferralCount, &m.IsBanned, &m.BanReason, &m.LastLogin); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns one page of members plus the total matching count.
// A numeric search also matches the user id and telegram id.
func (r *UserRepository) ListMembers(ctx context.Context, f domain.MemberFilter) ([]domain.Member, int, error) {
	where := `TRUE`
	args := []any{}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = `(u.username ILIKE $1 OR u.first_name ILIKE $1 OR u.email ILIKE $1`
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			args = append(args, n)
			where += ` OR u.id = $2 OR u.telegram_id = $2`
		}
		where += `)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users u WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := `u.created_at DESC`
	switch f.Sort {
	case domain.MemberSortBalance:
		order = `u.balance DESC, u.id`
	case domain.MemberSortHarvests:
		order = `u.completed_harvests DESC, u.id`
	case domain.MemberSortReferrals:
		order = `referral_count DESC, u.id`
	}

	limitArg := len(args) + 1
	query := memberSelect + ` WHERE ` + where + ` ORDER BY ` + order +
		` LIMIT $` + strconv.Itoa(limitArg) + ` OFFSET $` + strconv.Itoa(limitArg+1)
	rows, err := r.db.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, *m)
	}
	return members, total, rows.Err()
}

func (r *UserRepository) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx, memberSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *UserRepository) UserTotals(ctx context.Context, since time.Time) (*domain.UserTotals, error) {
	var t domain.UserTotals
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE created_at >= $1),
		        COALESCE(SUM(balance), 0)::text,
		        COALESCE(SUM(completed_harvests), 0)
		 FROM users`,
		since,
	).Scan(&t.TotalUsers, &t.NewUsers, &t.TotalBalance, &t.Harvests)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
