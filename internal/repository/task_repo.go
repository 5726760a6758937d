package repository

import (
	"context"
	"errors"
	"time"

	"plantaton/internal/domain"

	"github.com/jackc/pgx/v5"
)

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, type, title, description, url, reward::text, is_active, created_at`

// Helper для сканирования заданий
func scanTasks(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.Task, error) {
	var result []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Type, &t.Title, &t.Description, &t.URL, &t.Reward, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *TaskRepository) ListTasks(ctx context.Context, activeOnly bool) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE is_active OR NOT $1
		 ORDER BY created_at DESC, id DESC`,
		activeOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *TaskRepository) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	err := r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id).
		Scan(&t.ID, &t.Type, &t.Title, &t.Description, &t.URL, &t.Reward, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TaskRepository) CreateTask(ctx context.Context, t *domain.Task) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO tasks (type, title, description, url, reward, is_active)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6)
		 RETURNING id, created_at`,
		t.Type, t.Title, t.Description, t.URL, t.Reward.String(), t.IsActive,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *TaskRepository) UpdateTask(ctx context.Context, t *domain.Task) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET type = $2, title = $3, description = $4, url = $5, reward = $6::numeric, is_active = $7
		 WHERE id = $1`,
		t.ID, t.Type, t.Title, t.Description, t.URL, t.Reward.String(), t.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) DeleteTask(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) ListUserTasks(ctx context.Context, userID int64) ([]domain.UserTask, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, task_id, started_at, completed_at, claimed
		 FROM user_tasks
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserTask
	for rows.Next() {
		var ut domain.UserTask
		if err := rows.Scan(&ut.ID, &ut.UserID, &ut.TaskID, &ut.StartedAt, &ut.CompletedAt, &ut.Claimed); err != nil {
			return nil, err
		}
		result = append(result, ut)
	}
	return result, rows.Err()
}

func (r *TaskRepository) GetUserTask(ctx context.Context, userID, taskID int64) (*domain.UserTask, error) {
	var ut domain.UserTask
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, task_id, started_at, completed_at, claimed
		 FROM user_tasks
		 WHERE user_id = $1 AND task_id = $2`,
		userID, taskID,
	).Scan(&ut.ID, &ut.UserID, &ut.TaskID, &ut.StartedAt, &ut.CompletedAt, &ut.Claimed)
	if err != nil {
		return nil, notFound(err)
	}
	return &ut, nil
}

// StartTask records the start of a task; a second start is ErrDuplicate.
func (r *TaskRepository) StartTask(ctx context.Context, ut *domain.UserTask) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO user_tasks (user_id, task_id, started_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, task_id) DO NOTHING
		 RETURNING id`,
		ut.UserID, ut.TaskID, ut.StartedAt,
	).Scan(&ut.ID)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// MarkTaskClaimed отмечает награду как полученную, только один раз
func (r *TaskRepository) MarkTaskClaimed(ctx context.Context, userID, taskID int64, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_tasks SET claimed = TRUE, completed_at = $3
		 WHERE user_id = $1 AND task_id = $2 AND claimed = FALSE`,
		userID, taskID, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
