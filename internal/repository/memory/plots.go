package memory

import (
	"context"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/repository"
)

func (q *queries) CreatePlots(ctx context.Context, userID int64, count int) error {
	st, done := q.begin()
	defer done()

	for i := 0; i < count; i++ {
		k := plotKey{userID, i}
		if _, ok := st.plots[k]; ok {
			continue
		}
		st.plots[k] = domain.Plot{ID: st.nextID(), UserID: userID, PlotIndex: i, Status: domain.PlotStatusEmpty}
	}
	return nil
}

func (q *queries) ListPlots(ctx context.Context, userID int64) ([]domain.Plot, error) {
	st, done := q.begin()
	defer done()

	var plots []domain.Plot
	for i := 0; i < domain.PlotCount; i++ {
		if p, ok := st.plots[plotKey{userID, i}]; ok {
			plots = append(plots, p)
		}
	}
	return plots, nil
}

func (q *queries) LockPlot(ctx context.Context, userID int64, index int) (*domain.Plot, error) {
	st, done := q.begin()
	defer done()

	p, ok := st.plots[plotKey{userID, index}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (q *queries) PlantPlot(ctx context.Context, userID int64, index int, now time.Time) (bool, error) {
	st, done := q.begin()
	defer done()

	k := plotKey{userID, index}
	p, ok := st.plots[k]
	if !ok || p.Status != domain.PlotStatusEmpty {
		return false, nil
	}
	p.Status = domain.PlotStatusGrowing
	p.PlantedAt = ptr(now)
	st.plots[k] = p
	return true, nil
}

func (q *queries) ClearPlot(ctx context.Context, userID int64, index int) (bool, error) {
	st, done := q.begin()
	defer done()

	k := plotKey{userID, index}
	p, ok := st.plots[k]
	if !ok || p.Status != domain.PlotStatusGrowing {
		return false, nil
	}
	p.Status = domain.PlotStatusEmpty
	p.PlantedAt = nil
	st.plots[k] = p
	return true, nil
}
