package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"plantaton/internal/domain"
)

func (q *queries) LoadSettings(ctx context.Context) (map[string]string, int64, error) {
	st, done := q.begin()
	defer done()

	return maps.Clone(st.settings), st.version, nil
}

func (q *queries) SaveSettings(ctx context.Context, values map[string]string, now time.Time) (int64, error) {
	st, done := q.begin()
	defer done()

	maps.Copy(st.settings, values)
	st.version++
	return st.version, nil
}

func (q *queries) RecordLogin(ctx context.Context, l *domain.UserLogin) error {
	st, done := q.begin()
	defer done()

	l.ID = st.nextID()
	l.CreatedAt = stamp(l.CreatedAt)
	st.logins = append(st.logins, *l)
	return nil
}

func (q *queries) ListUserLogins(ctx context.Context, userID int64, limit int) ([]domain.UserLogin, error) {
	st, done := q.begin()
	defer done()

	var result []domain.UserLogin
	for _, l := range st.logins {
		if l.UserID == userID {
			result = append(result, l)
		}
	}
	newestFirst(result, func(l domain.UserLogin) time.Time { return l.CreatedAt }, func(l domain.UserLogin) int64 { return l.ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (q *queries) SharedIPUsers(ctx context.Context) ([]domain.SharedIPUser, error) {
	st, done := q.begin()
	defer done()

	byIP := make(map[string]map[int64]struct{})
	lastLogin := make(map[int64]time.Time)
	for _, l := range st.logins {
		if l.CreatedAt.After(lastLogin[l.UserID]) {
			lastLogin[l.UserID] = l.CreatedAt
		}
		if l.IPAddress == "" {
			continue
		}
		if byIP[l.IPAddress] == nil {
			byIP[l.IPAddress] = make(map[int64]struct{})
		}
		byIP[l.IPAddress][l.UserID] = struct{}{}
	}

	var result []domain.SharedIPUser
	for ip, ids := range byIP {
		if len(ids) < 2 {
			continue
		}
		for id := range ids {
			u, ok := st.users[id]
			if !ok {
				continue
			}
			_, banned := st.bans[id]
			su := domain.SharedIPUser{
				IPAddress: ip,
				SuspectUser: domain.SuspectUser{
					ID:        u.ID,
					Username:  u.Username,
					Email:     u.Email,
					CreatedAt: u.CreatedAt,
					IsBanned:  banned,
				},
			}
			if t, ok := lastLogin[id]; ok {
				su.LastLogin = ptr(t)
			}
			result = append(result, su)
		}
	}
	slices.SortFunc(result, func(a, b domain.SharedIPUser) int {
		if c := cmp.Compare(a.IPAddress, b.IPAddress); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (q *queries) CreateAuditLog(ctx context.Context, l *domain.AuditLog) error {
	st, done := q.begin()
	defer done()

	l.ID = st.nextID()
	l.CreatedAt = stamp(l.CreatedAt)
	st.audit = append(st.audit, *l)
	return nil
}

func (q *queries) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	st, done := q.begin()
	defer done()

	var result []domain.AuditLog
	for i := len(st.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, st.audit[i])
	}
	return result, nil
}
