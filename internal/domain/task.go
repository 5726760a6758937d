package domain

import (
	"time"

	"plantaton/internal/ledger"
)

// TaskType - тип задания
type TaskType string

const (
	TaskTypeYouTube  TaskType = "youtube"
	TaskTypeTelegram TaskType = "telegram"
	TaskTypeLink     TaskType = "link"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeYouTube, TaskTypeTelegram, TaskTypeLink:
		return true
	}
	return false
}

type Task struct {
	ID          int64         `db:"id" json:"id"`
	Type        TaskType      `db:"type" json:"type"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	URL         string        `db:"url" json:"url"`
	Reward      ledger.Amount `db:"reward" json:"reward"`
	IsActive    bool          `db:"is_active" json:"is_active"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// UserTask - прогресс пользователя по заданию
type UserTask struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	TaskID      int64      `db:"task_id" json:"task_id"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Claimed     bool       `db:"claimed" json:"claimed"`
}

// TaskWithStatus is a task as seen by one user.
type TaskWithStatus struct {
	Task
	IsStarted bool       `json:"is_started"`
	IsClaimed bool       `json:"is_claimed"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}
