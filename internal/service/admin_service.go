package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
)

// AdminService provides admin statistics and operations
type AdminService struct {
	store     repository.Store
	antiAbuse *AntiAbuseService
	audit     *AuditService
	now       func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(store repository.Store, antiAbuse *AntiAbuseService, audit *AuditService) *AdminService {
	return &AdminService{store: store, antiAbuse: antiAbuse, audit: audit, now: time.Now}
}

// Dashboard represents platform statistics
type Dashboard struct {
	TotalUsers         int           `json:"total_users"`
	TodayNewUsers      int           `json:"today_new_users"`
	TotalBalance       ledger.Amount `json:"total_balance"`
	TotalHarvests      int64         `json:"total_harvests"`
	PendingWithdrawals int           `json:"pending_withdrawals"`
	PendingAmount      ledger.Amount `json:"pending_amount"`
	TotalWithdrawn     ledger.Amount `json:"total_withdrawn"`
	SuspectCount       int           `json:"suspect_count"`
}

// Dashboard returns platform statistics
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	users, err := s.store.UserTotals(ctx, today)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	withdrawals, err := s.store.WithdrawalTotals(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	suspects, err := s.antiAbuse.Suspects(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TotalUsers:         users.TotalUsers,
		TodayNewUsers:      users.NewUsers,
		TotalBalance:       users.TotalBalance,
		TotalHarvests:      users.Harvests,
		PendingWithdrawals: withdrawals.PendingCount,
		PendingAmount:      withdrawals.PendingAmount,
		TotalWithdrawn:     withdrawals.ApprovedAmount,
		SuspectCount:       len(suspects),
	}, nil
}

// MemberPage is one page of the member list.
type MemberPage struct {
	Users      []domain.Member `json:"users"`
	TotalUsers int             `json:"total_users"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}

func (s *AdminService) Members(ctx context.Context, page, limit int, sort domain.MemberSort, search string) (*MemberPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, 100)
	if !sort.Valid() {
		sort = domain.MemberSortNewest
	}

	members, total, err := s.store.ListMembers(ctx, domain.MemberFilter{
		Search: search,
		Sort:   sort,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if members == nil {
		members = []domain.Member{}
	}
	return &MemberPage{Users: members, TotalUsers: total, Page: page, Limit: limit}, nil
}

// MemberDetail is a member with their most recent logins.
type MemberDetail struct {
	domain.Member
	RecentLogins []domain.UserLogin `json:"recent_logins"`
}

func (s *AdminService) Member(ctx context.Context, userID int64) (*MemberDetail, error) {
	m, err := s.store.GetMember(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	logins, err := s.store.ListUserLogins(ctx, userID, 20)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if logins == nil {
		logins = []domain.UserLogin{}
	}
	return &MemberDetail{Member: *m, RecentLogins: logins}, nil
}

// AddBalance credits a member. Only positive amounts are accepted.
func (s *AdminService) AddBalance(ctx context.Context, actorID, userID int64, amount ledger.Amount) (ledger.Amount, error) {
	if !amount.IsPositive() {
		return ledger.Zero(), ErrInvalidAmount.WithMessage("Amount must be a positive number")
	}
	var balance ledger.Amount
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		balance, err = credit(ctx, q, userID, amount, domain.TxAdminCredit, map[string]any{"admin_id": actorID})
		return err
	})
	if err != nil {
		return ledger.Zero(), mapNotFound(err, ErrUserNotFound)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionAddBalance, domain.AuditCategoryMember, userID, map[string]any{
		"amount": amount.String(),
	})
	return balance, nil
}

func (s *AdminService) Ban(ctx context.Context, actorID, userID int64, reason string) error {
	reason = truncate(strings.TrimSpace(reason), 500)
	err := s.store.BanUser(ctx, &domain.UserBan{UserID: userID, Reason: reason, BannedAt: s.now()})
	if err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionBan, domain.AuditCategoryMember, userID, map[string]any{"reason": reason})
	logger.WithContext(ctx).Info("user banned", "user_id", userID, "actor_id", actorID)
	return nil
}

// Unban lifts a ban. Unbanning a member who is not banned is a no-op.
func (s *AdminService) Unban(ctx context.Context, actorID, userID int64) error {
	removed, err := s.store.UnbanUser(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if removed {
		s.audit.Log(ctx, actorID, domain.AuditActionUnban, domain.AuditCategoryMember, userID, nil)
		logger.WithContext(ctx).Info("user unbanned", "user_id", userID, "actor_id", actorID)
	}
	return nil
}

// ---- tasks ----

// TaskInput is a create or partial update of a task. Nil fields are left
// unchanged on update and are required on create where noted.
type TaskInput struct {
	Type        *domain.TaskType `json:"type"`
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	URL         *string          `json:"url"`
	Reward      *ledger.Amount   `json:"reward"`
	IsActive    *bool            `json:"is_active"`
}

func (in TaskInput) apply(t *domain.Task) error {
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.URL != nil {
		t.URL = strings.TrimSpace(*in.URL)
	}
	if in.Reward != nil {
		t.Reward = *in.Reward
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	return validateTask(t)
}

func validateTask(t *domain.Task) error {
	switch {
	case !t.Type.Valid():
		return ErrInvalidTask.WithMessage("Invalid task type")
	case t.Title == "" || utf8.RuneCountInString(t.Title) > 200:
		return ErrInvalidTask.WithMessage("Title is required (max 200 chars)")
	case !strings.HasPrefix(t.URL, "http"):
		return ErrInvalidTask.WithMessage("Valid URL is required")
	case !t.Reward.IsPositive():
		return ErrInvalidTask.WithMessage("Reward must be a positive number")
	}
	return nil
}

func (s *AdminService) Tasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.store.ListTasks(ctx, false)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (s *AdminService) CreateTask(ctx context.Context, actorID int64, in TaskInput) (*domain.Task, error) {
	t := &domain.Task{IsActive: true}
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionTaskCreate, domain.AuditCategoryTask, t.ID, map[string]any{"title": t.Title})
	return t, nil
}

func (s *AdminService) UpdateTask(ctx context.Context, actorID, id int64, in TaskInput) (*domain.Task, error) {
	var t *domain.Task
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		if t, err = q.GetTask(ctx, id); err != nil {
			return err
		}
		if err := in.apply(t); err != nil {
			return err
		}
		return q.UpdateTask(ctx, t)
	})
	if err != nil {
		return nil, mapNotFound(err, ErrTaskNotFound)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionTaskUpdate, domain.AuditCategoryTask, id, nil)
	return t, nil
}

func (s *AdminService) DeleteTask(ctx context.Context, actorID, id int64) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return mapNotFound(err, ErrTaskNotFound)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionTaskDelete, domain.AuditCategoryTask, id, nil)
	return nil
}

// ---- promo codes ----

var promoCodePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{2,30}$`)

const maxPromoUses = 100000

type PromoInput struct {
	Code      string        `json:"code"`
	Reward    ledger.Amount `json:"reward"`
	MaxUses   int           `json:"max_uses"`
	ExpiresAt *time.Time    `json:"expires_at"`
}

func (s *AdminService) PromoCodes(ctx context.Context) ([]domain.PromoCode, error) {
	codes, err := s.store.ListPromoCodes(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if codes == nil {
		codes = []domain.PromoCode{}
	}
	return codes, nil
}

func (s *AdminService) CreatePromoCode(ctx context.Context, actorID int64, in PromoInput) (*domain.PromoCode, error) {
	code := strings.TrimSpace(in.Code)
	if !promoCodePattern.MatchString(code) {
		return nil, ErrInvalidPromo.WithMessage("Code must be 2-30 letters, numbers, hyphens or underscores")
	}
	if !in.Reward.IsPositive() {
		return nil, ErrInvalidPromo.WithMessage("Reward must be a positive number")
	}
	maxUses := in.MaxUses
	if maxUses == 0 {
		maxUses = 1
	}
	if maxUses < 1 || maxUses > maxPromoUses {
		return nil, ErrInvalidPromo.WithMessage("Max uses must be 1-100000")
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidPromo.WithMessage("Expiry must be in the future")
	}

	p := &domain.PromoCode{
		Code:      NormalizePromoCode(code),
		Reward:    in.Reward,
		MaxUses:   maxUses,
		IsActive:  true,
		ExpiresAt: in.ExpiresAt,
	}
	if err := s.store.CreatePromoCode(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPromoExists
		}
		return nil, apperr.Internal(err)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionPromoCreate, domain.AuditCategoryPromo, p.ID, map[string]any{
		"code":     p.Code,
		"reward":   p.Reward.String(),
		"max_uses": p.MaxUses,
	})
	return p, nil
}

func (s *AdminService) SetPromoCodeActive(ctx context.Context, actorID, id int64, active bool) error {
	if err := s.store.SetPromoCodeActive(ctx, id, active); err != nil {
		return mapNotFound(err, ErrPromoNotFound)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionPromoToggle, domain.AuditCategoryPromo, id, map[string]any{"active": active})
	return nil
}

func (s *AdminService) DeletePromoCode(ctx context.Context, actorID, id int64) error {
	if err := s.store.DeletePromoCode(ctx, id); err != nil {
		return mapNotFound(err, ErrPromoNotFound)
	}
	s.audit.Log(ctx, actorID, domain.AuditActionPromoDelete, domain.AuditCategoryPromo, id, nil)
	return nil
}
