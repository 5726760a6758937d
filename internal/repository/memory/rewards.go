package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/repository"
)

func newestFirst[T any](items []T, created func(T) time.Time, id func(T) int64) {
	slices.SortFunc(items, func(a, b T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		return cmp.Compare(id(b), id(a))
	})
}

func (q *queries) ListTasks(ctx context.Context, activeOnly bool) ([]domain.Task, error) {
	st, done := q.begin()
	defer done()

	var tasks []domain.Task
	for _, t := range st.tasks {
		if t.IsActive || !activeOnly {
			tasks = append(tasks, t)
		}
	}
	newestFirst(tasks, func(t domain.Task) time.Time { return t.CreatedAt }, func(t domain.Task) int64 { return t.ID })
	return tasks, nil
}

func (q *queries) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	st, done := q.begin()
	defer done()

	t, ok := st.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (q *queries) CreateTask(ctx context.Context, t *domain.Task) error {
	st, done := q.begin()
	defer done()

	t.ID = st.nextID()
	t.CreatedAt = stamp(t.CreatedAt)
	st.tasks[t.ID] = *t
	return nil
}

func (q *queries) UpdateTask(ctx context.Context, t *domain.Task) error {
	st, done := q.begin()
	defer done()

	existing, ok := st.tasks[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	st.tasks[t.ID] = *t
	return nil
}

func (q *queries) DeleteTask(ctx context.Context, id int64) error {
	st, done := q.begin()
	defer done()

	if _, ok := st.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.tasks, id)
	for k := range st.userTasks {
		if k.id == id {
			delete(st.userTasks, k)
		}
	}
	return nil
}

func (q *queries) ListUserTasks(ctx context.Context, userID int64) ([]domain.UserTask, error) {
	st, done := q.begin()
	defer done()

	var result []domain.UserTask
	for k, ut := range st.userTasks {
		if k.userID == userID {
			result = append(result, ut)
		}
	}
	return result, nil
}

func (q *queries) GetUserTask(ctx context.Context, userID, taskID int64) (*domain.UserTask, error) {
	st, done := q.begin()
	defer done()

	ut, ok := st.userTasks[pairKey{userID, taskID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ut, nil
}

func (q *queries) StartTask(ctx context.Context, ut *domain.UserTask) error {
	st, done := q.begin()
	defer done()

	k := pairKey{ut.UserID, ut.TaskID}
	if _, ok := st.userTasks[k]; ok {
		return repository.ErrDuplicate
	}
	ut.ID = st.nextID()
	ut.StartedAt = stamp(ut.StartedAt)
	st.userTasks[k] = *ut
	return nil
}

func (q *queries) MarkTaskClaimed(ctx context.Context, userID, taskID int64, now time.Time) (bool, error) {
	st, done := q.begin()
	defer done()

	k := pairKey{userID, taskID}
	ut, ok := st.userTasks[k]
	if !ok || ut.Claimed {
		return false, nil
	}
	ut.Claimed = true
	ut.CompletedAt = ptr(now)
	st.userTasks[k] = ut
	return true, nil
}

func (q *queries) CreatePromoCode(ctx context.Context, p *domain.PromoCode) error {
	st, done := q.begin()
	defer done()

	for _, existing := range st.promos {
		if existing.Code == p.Code {
			return repository.ErrDuplicate
		}
	}
	p.ID = st.nextID()
	p.CurrentUses = 0
	p.CreatedAt = stamp(p.CreatedAt)
	st.promos[p.ID] = *p
	return nil
}

func (q *queries) ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error) {
	st, done := q.begin()
	defer done()

	var result []domain.PromoCode
	for _, p := range st.promos {
		result = append(result, p)
	}
	newestFirst(result, func(p domain.PromoCode) time.Time { return p.CreatedAt }, func(p domain.PromoCode) int64 { return p.ID })
	return result, nil
}

func (q *queries) GetPromoCodeByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	st, done := q.begin()
	defer done()

	for _, p := range st.promos {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (q *queries) SetPromoCodeActive(ctx context.Context, id int64, active bool) error {
	st, done := q.begin()
	defer done()

	p, ok := st.promos[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = active
	st.promos[id] = p
	return nil
}

func (q *queries) DeletePromoCode(ctx context.Context, id int64) error {
	st, done := q.begin()
	defer done()

	if _, ok := st.promos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.promos, id)
	for k := range st.redemptions {
		if k.id == id {
			delete(st.redemptions, k)
		}
	}
	return nil
}

func (q *queries) HasRedeemedPromo(ctx context.Context, userID, promoID int64) (bool, error) {
	st, done := q.begin()
	defer done()

	_, ok := st.redemptions[pairKey{userID, promoID}]
	return ok, nil
}

func (q *queries) ConsumePromoCode(ctx context.Context, promoID int64, now time.Time) (bool, error) {
	st, done := q.begin()
	defer done()

	p, ok := st.promos[promoID]
	if !ok || !p.Redeemable(now) {
		return false, nil
	}
	p.CurrentUses++
	st.promos[promoID] = p
	return true, nil
}

func (q *queries) RecordPromoRedemption(ctx context.Context, userID, promoID int64, now time.Time) error {
	st, done := q.begin()
	defer done()

	k := pairKey{userID, promoID}
	if _, ok := st.redemptions[k]; ok {
		return repository.ErrDuplicate
	}
	st.redemptions[k] = domain.PromoRedemption{ID: st.nextID(), UserID: userID, PromoCodeID: promoID, UsedAt: now}
	return nil
}
