package service

import (
	"context"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
)

// LoginMeta is what the transport layer can observe about a client.
type LoginMeta struct {
	IPAddress   string
	UserAgent   string
	Fingerprint string
}

// AntiAbuseService keeps the login log and groups accounts that share an
// IP address.
type AntiAbuseService struct {
	store repository.Store
	now   func() time.Time
}

func NewAntiAbuseService(store repository.Store) *AntiAbuseService {
	return &AntiAbuseService{store: store, now: time.Now}
}

// RecordLogin appends a login event. A failed write never fails the login.
func (s *AntiAbuseService) RecordLogin(ctx context.Context, userID int64, loginType domain.LoginType, meta LoginMeta) {
	entry := &domain.UserLogin{
		UserID:      userID,
		IPAddress:   meta.IPAddress,
		UserAgent:   truncate(meta.UserAgent, 500),
		Fingerprint: truncate(meta.Fingerprint, 255),
		LoginType:   loginType,
		CreatedAt:   s.now(),
	}
	if err := s.store.RecordLogin(ctx, entry); err != nil {
		logger.WithContext(ctx).Warn("failed to record login", "user_id", userID, "error", err)
	}
}

// Suspects groups every IP address used by more than one account.
func (s *AntiAbuseService) Suspects(ctx context.Context) ([]domain.SuspectGroup, error) {
	rows, err := s.store.SharedIPUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return GroupSuspects(rows), nil
}

// GroupSuspects folds rows ordered by IP address into one group per
// address, dropping addresses with a single account.
func GroupSuspects(rows []domain.SharedIPUser) []domain.SuspectGroup {
	groups := []domain.SuspectGroup{}
	index := make(map[string]int)
	seen := make(map[string]map[int64]bool)
	for _, r := range rows {
		i, ok := index[r.IPAddress]
		if !ok {
			i = len(groups)
			index[r.IPAddress] = i
			seen[r.IPAddress] = make(map[int64]bool)
			groups = append(groups, domain.SuspectGroup{IPAddress: r.IPAddress})
		}
		if seen[r.IPAddress][r.ID] {
			continue
		}
		seen[r.IPAddress][r.ID] = true
		groups[i].Users = append(groups[i].Users, r.SuspectUser)
		groups[i].UserCount++
	}

	out := groups[:0]
	for _, g := range groups {
		if g.UserCount > 1 {
			out = append(out, g)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
