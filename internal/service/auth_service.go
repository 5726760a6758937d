package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
	"plantaton/internal/telegram"
)

// AuthResult is a signed session for a user.
type AuthResult struct {
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
	Created bool         `json:"created"`
	Admin   bool         `json:"admin"`
}

// AuthConfig carries the secrets AuthService checks against.
type AuthConfig struct {
	BotToken  string
	AdminCode string
	// IsAdminTelegramID marks Telegram accounts that get the admin claim.
	IsAdminTelegramID func(int64) bool
}

// AuthService turns a verified identity into a session token. First-time
// users get their plots, a referral code and an optional referrer.
type AuthService struct {
	store     repository.Store
	antiAbuse *AntiAbuseService
	cfg       AuthConfig
	now       func() time.Time
}

func NewAuthService(store repository.Store, antiAbuse *AntiAbuseService, cfg AuthConfig) *AuthService {
	return &AuthService{store: store, antiAbuse: antiAbuse, cfg: cfg, now: time.Now}
}

// ReferralToken extracts a referral token from a Telegram start_param,
// which arrives as "ref_<token>".
func ReferralToken(explicit, startParam string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if t, ok := strings.CutPrefix(startParam, "ref_"); ok {
		return t
	}
	return ""
}

// TelegramLogin validates WebApp init data and signs the user in.
func (s *AuthService) TelegramLogin(ctx context.Context, initData, referral string, meta LoginMeta) (*AuthResult, error) {
	if len(initData) > 4096 {
		return nil, ErrInvalidInitData.WithMessage("init_data too long")
	}
	data, err := telegram.Validate(initData, s.cfg.BotToken, s.now())
	if err != nil {
		logger.WithContext(ctx).Warn("telegram init data rejected", "error", err)
		return nil, ErrInvalidInitData
	}

	tgID := data.User.ID
	user, err := s.store.GetUserByTelegramID(ctx, tgID)
	created := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		username := data.User.Username
		if username == "" {
			username = "tg_" + strconv.FormatInt(tgID, 10)
		}
		user, created, err = s.register(ctx, &domain.User{
			TelegramID: &tgID,
			Username:   username,
			FirstName:  data.User.FirstName,
			LastName:   data.User.LastName,
			PhotoURL:   data.User.PhotoURL,
		}, ReferralToken(referral, data.StartParam))
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, apperr.Internal(err)
	}

	loginType := domain.LoginTypeTelegram
	if created {
		loginType = domain.LoginTypeRegister
	}
	admin := s.cfg.IsAdminTelegramID != nil && s.cfg.IsAdminTelegramID(tgID)
	return s.session(ctx, user, created, admin, loginType, meta)
}

// DevLogin signs in by username alone. Only routed when DEV_MODE is on.
func (s *AuthService) DevLogin(ctx context.Context, username, referral string, meta LoginMeta) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if len(username) < 2 || len(username) > 64 {
		return nil, ErrInvalidInput.WithMessage("Username must be 2 to 64 characters")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	created := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user, created, err = s.register(ctx, &domain.User{Username: username}, ReferralToken(referral, ""))
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, apperr.Internal(err)
	default:
		if _, err := repository.EnsureReferralCode(ctx, s.store, user); err != nil {
			logger.WithContext(ctx).Warn("failed to assign referral code", "user_id", user.ID, "error", err)
		}
	}

	loginType := domain.LoginTypeLogin
	if created {
		loginType = domain.LoginTypeRegister
	}
	return s.session(ctx, user, created, false, loginType, meta)
}

// register creates the user with plots, a referral code and the resolved
// referrer in one transaction. A taken username falls back to tg_<id>;
// a concurrent signup of the same Telegram account logs into that one.
func (s *AuthService) register(ctx context.Context, u *domain.User, referral string) (*domain.User, bool, error) {
	err := s.createUser(ctx, u, referral)
	if errors.Is(err, repository.ErrDuplicate) && u.TelegramID != nil {
		if existing, lookupErr := s.store.GetUserByTelegramID(ctx, *u.TelegramID); lookupErr == nil {
			return existing, false, nil
		}
		fallback := "tg_" + strconv.FormatInt(*u.TelegramID, 10)
		if u.Username != fallback {
			u.Username = fallback
			err = s.createUser(ctx, u, referral)
		}
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, false, ErrInvalidInput.WithMessage("Username is already taken")
	}
	if err != nil {
		return nil, false, mapNotFound(err, ErrUserNotFound)
	}
	var referredBy int64
	if u.ReferredBy != nil {
		referredBy = *u.ReferredBy
	}
	logger.WithContext(ctx).Info("user registered", "user_id", u.ID, "username", u.Username, "referred_by", referredBy)
	return u, true, nil
}

func (s *AuthService) createUser(ctx context.Context, u *domain.User, referral string) error {
	return s.store.InTx(ctx, func(q repository.Queries) error {
		u.ID = 0
		u.ReferralCode = nil
		u.ReferredBy = nil
		if err := q.CreateUser(ctx, u); err != nil {
			return err
		}
		if err := q.CreatePlots(ctx, u.ID, domain.PlotCount); err != nil {
			return err
		}
		if _, err := repository.EnsureReferralCode(ctx, q, u); err != nil {
			return err
		}
		if referrerID := ResolveReferrer(ctx, q, referral, u.ID); referrerID != 0 {
			ok, err := q.SetReferrer(ctx, u.ID, referrerID)
			if err != nil {
				return err
			}
			if ok {
				u.ReferredBy = &referrerID
			}
		}
		return nil
	})
}

func (s *AuthService) session(ctx context.Context, user *domain.User, created, admin bool, loginType domain.LoginType, meta LoginMeta) (*AuthResult, error) {
	banned, err := s.store.IsBanned(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if banned {
		return nil, ErrUserBanned
	}

	token, err := GenerateJWT(user.ID, admin)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.antiAbuse != nil {
		s.antiAbuse.RecordLogin(ctx, user.ID, loginType, meta)
	}
	return &AuthResult{Token: token, User: user, Created: created, Admin: admin}, nil
}

// VerifyAdminCode exchanges the shared admin code for an admin token bound
// to userID.
func (s *AuthService) VerifyAdminCode(ctx context.Context, userID int64, code string) (string, error) {
	if s.cfg.AdminCode == "" {
		return "", apperr.Forbidden("ADMIN_DISABLED", "Admin access is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(s.cfg.AdminCode)) != 1 {
		logger.WithContext(ctx).Warn("invalid admin code", "user_id", userID)
		return "", ErrInvalidAdminCode
	}
	token, err := GenerateJWT(userID, true)
	if err != nil {
		return "", apperr.Internal(err)
	}
	logger.WithContext(ctx).Info("admin session granted", "user_id", userID)
	return token, nil
}
