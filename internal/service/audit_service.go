package service

import (
	"context"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
)

// AuditService handles audit logging
type AuditService struct {
	store repository.Store
}

// NewAuditService creates a new audit service
func NewAuditService(store repository.Store) *AuditService {
	return &AuditService{store: store}
}

// Log creates a new audit log entry. Failures are logged, never returned.
func (s *AuditService) Log(ctx context.Context, actorID int64, action, category string, targetID int64, details map[string]any) {
	s.LogWithIP(ctx, actorID, action, category, targetID, "", details)
}

// LogWithIP creates an audit log carrying the caller's address.
func (s *AuditService) LogWithIP(ctx context.Context, actorID int64, action, category string, targetID int64, ip string, details map[string]any) {
	if s == nil {
		return
	}
	if details == nil {
		details = make(map[string]any)
	}
	entry := &domain.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Category: category,
		TargetID: targetID,
		Details:  details,
		IP:       ip,
	}
	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "actor_id", actorID)
	}
}

// LogWithdrawDecision records an approval or rejection.
func (s *AuditService) LogWithdrawDecision(ctx context.Context, actorID int64, w *domain.Withdrawal) {
	action := domain.AuditActionWithdrawApprove
	if w.Status == domain.WithdrawalStatusRejected {
		action = domain.AuditActionWithdrawReject
	}
	s.Log(ctx, actorID, action, domain.AuditCategoryWithdrawal, w.UserID, map[string]any{
		"withdrawal_id": w.ID,
		"amount":        w.Amount.String(),
		"note":          w.Note,
	})
}

// GetRecentLogs returns recent audit logs
func (s *AuditService) GetRecentLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	logs, err := s.store.ListAuditLogs(ctx, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return logs, nil
}
