package service

import (
	"context"
	"errors"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository"
)

// TaskVerificationDelay is how long a task must be open before its reward
// can be claimed.
const TaskVerificationDelay = 10 * time.Second

type TaskClaimResult struct {
	TaskID     int64         `json:"task_id"`
	Reward     ledger.Amount `json:"reward"`
	NewBalance ledger.Amount `json:"new_balance"`
}

// TaskService runs the start/claim lifecycle of sponsored tasks.
type TaskService struct {
	store repository.Store
	now   func() time.Time
}

func NewTaskService(store repository.Store) *TaskService {
	return &TaskService{store: store, now: time.Now}
}

// List returns the active tasks with the user's progress on each.
func (s *TaskService) List(ctx context.Context, userID int64) ([]domain.TaskWithStatus, error) {
	tasks, err := s.store.ListTasks(ctx, true)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	progress, err := s.store.ListUserTasks(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byTask := make(map[int64]domain.UserTask, len(progress))
	for _, ut := range progress {
		byTask[ut.TaskID] = ut
	}

	out := make([]domain.TaskWithStatus, 0, len(tasks))
	for _, t := range tasks {
		tw := domain.TaskWithStatus{Task: t}
		if ut, ok := byTask[t.ID]; ok {
			startedAt := ut.StartedAt
			tw.IsStarted = true
			tw.IsClaimed = ut.Claimed
			tw.StartedAt = &startedAt
		}
		out = append(out, tw)
	}
	return out, nil
}

// Start opens a task for the user. A task can be started once.
func (s *TaskService) Start(ctx context.Context, userID, taskID int64) (*domain.UserTask, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, mapNotFound(err, ErrTaskNotFound)
	}
	if !task.IsActive {
		return nil, ErrTaskInactive
	}

	ut := &domain.UserTask{UserID: userID, TaskID: taskID, StartedAt: s.now()}
	if err := s.store.StartTask(ctx, ut); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTaskAlreadyStarted
		}
		return nil, apperr.Internal(err)
	}
	return ut, nil
}

// Claim pays the task reward once, no sooner than TaskVerificationDelay
// after Start.
func (s *TaskService) Claim(ctx context.Context, userID, taskID int64) (*TaskClaimResult, error) {
	now := s.now()
	res := &TaskClaimResult{TaskID: taskID}
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			return mapNotFound(err, ErrTaskNotFound)
		}
		ut, err := q.GetUserTask(ctx, userID, taskID)
		if err != nil {
			return mapNotFound(err, ErrTaskNotStarted)
		}
		if ut.Claimed {
			return ErrTaskAlreadyClaimed
		}
		if elapsed := now.Sub(ut.StartedAt); elapsed < TaskVerificationDelay {
			return ErrVerificationPending.WithDetails(map[string]any{
				"remainingSeconds": ceilSeconds(TaskVerificationDelay - elapsed),
			})
		}

		ok, err := q.MarkTaskClaimed(ctx, userID, taskID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskAlreadyClaimed
		}
		res.Reward = task.Reward
		res.NewBalance, err = credit(ctx, q, userID, task.Reward, domain.TxTaskReward, map[string]any{"task_id": taskID})
		return err
	})
	if err != nil {
		rejectClaim(err)
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return res, nil
}
