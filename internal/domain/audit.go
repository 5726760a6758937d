package domain

import "time"

// AuditLog records an administrative action.
type AuditLog struct {
	ID        int64          `db:"id" json:"id"`
	ActorID   int64          `db:"actor_id" json:"actor_id"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	TargetID  int64          `db:"target_id" json:"target_id,omitempty"`
	Details   map[string]any `db:"details" json:"details"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryMember     = "member"
	AuditCategoryWithdrawal = "withdrawal"
	AuditCategoryTask       = "task"
	AuditCategoryPromo      = "promo"
	AuditCategorySettings   = "settings"
)

// Audit actions
const (
	AuditActionBan             = "ban"
	AuditActionUnban           = "unban"
	AuditActionAddBalance      = "add_balance"
	AuditActionWithdrawApprove = "withdraw_approve"
	AuditActionWithdrawReject  = "withdraw_reject"
	AuditActionTaskCreate      = "task_create"
	AuditActionTaskUpdate      = "task_update"
	AuditActionTaskDelete      = "task_delete"
	AuditActionPromoCreate     = "promo_create"
	AuditActionPromoToggle     = "promo_toggle"
	AuditActionPromoDelete     = "promo_delete"
	AuditActionSettingsUpdate  = "settings_update"
)
