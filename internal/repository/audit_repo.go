package repository

import (
	"context"
	"encoding/json"

	"plantaton/internal/domain"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog inserts a new audit log entry
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		detailsJSON = []byte("{}")
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (actor_id, action, category, target_id, details, ip)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, log.ActorID, log.Action, log.Category, log.TargetID, detailsJSON, log.IP).Scan(&log.ID, &log.CreatedAt)
}

// ListAuditLogs returns the most recent admin actions
func (r *AuditRepository) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_id, action, category, target_id, details, ip, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var (
			l           domain.AuditLog
			detailsJSON []byte
		)
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.Category, &l.TargetID, &detailsJSON, &l.IP, &l.CreatedAt); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &l.Details)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
