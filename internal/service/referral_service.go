package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
)

// ReferralService resolves referral tokens at signup and reports a user's
// referral progress. The bonus itself is paid by FarmService.Harvest.
type ReferralService struct {
	store     repository.Store
	settings  *SettingsService
	webAppURL string
}

func NewReferralService(store repository.Store, settings *SettingsService, webAppURL string) *ReferralService {
	return &ReferralService{store: store, settings: settings, webAppURL: strings.TrimRight(webAppURL, "/")}
}

// ResolveReferrer maps a token to a user id, trying a referral code, then a
// numeric id, then a username. Unknown tokens and tokens that point at the
// user themselves resolve to 0.
func ResolveReferrer(ctx context.Context, q repository.UserQueries, token string, selfID int64) int64 {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0
	}

	var candidates []func() (*domain.User, error)
	candidates = append(candidates, func() (*domain.User, error) {
		return q.GetUserByReferralCode(ctx, strings.ToUpper(token))
	})
	if id, err := strconv.ParseInt(token, 10, 64); err == nil && id > 0 {
		candidates = append(candidates, func() (*domain.User, error) { return q.GetUser(ctx, id) })
	}
	candidates = append(candidates, func() (*domain.User, error) {
		return q.GetUserByUsername(ctx, token)
	})

	for _, lookup := range candidates {
		u, err := lookup()
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				logger.WithContext(ctx).Warn("referral lookup failed", "token", token, "error", err)
			}
			continue
		}
		if u.ID == selfID {
			return 0
		}
		return u.ID
	}
	return 0
}

// Summary returns the user's code, share link and referred users.
func (s *ReferralService) Summary(ctx context.Context, userID int64) (*domain.ReferralSummary, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	code, err := repository.EnsureReferralCode(ctx, s.store, user)
	if err != nil {
		logger.WithContext(ctx).Warn("failed to assign referral code", "user_id", userID, "error", err)
		code = strconv.FormatInt(user.ID, 10)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	referred, err := s.store.ListReferrals(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	summary := &domain.ReferralSummary{
		Code:       code,
		Link:       s.webAppURL + "?ref=" + code,
		Bonus:      settings.ReferralBonus,
		Percentage: settings.ReferralPercentage,
		Referrals:  make([]domain.ReferralEntry, 0, len(referred)),
	}
	for _, r := range referred {
		entry := domain.ReferralEntry{
			ID:        r.ID,
			Username:  r.Username,
			Harvests:  min(r.CompletedHarvests, domain.ReferralThreshold),
			Completed: r.CompletedHarvests >= domain.ReferralThreshold,
			CreatedAt: r.CreatedAt,
		}
		if entry.Completed {
			summary.Stats.Completed++
		}
		summary.Referrals = append(summary.Referrals, entry)
	}
	summary.Stats.Total = len(referred)
	summary.Stats.Pending = summary.Stats.Total - summary.Stats.Completed
	summary.Stats.TotalEarnings = settings.ReferralBonus.Mul(int64(summary.Stats.Completed))
	return summary, nil
}
