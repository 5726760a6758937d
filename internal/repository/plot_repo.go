package repository

import (
	"context"
	"time"

	"plantaton/internal/domain"
)

type PlotRepository struct {
	db DBTX
}

func NewPlotRepository(db DBTX) *PlotRepository {
	return &PlotRepository{db: db}
}

// CreatePlots inserts the plots 0..count-1 for a new user.
func (r *PlotRepository) CreatePlots(ctx context.Context, userID int64, count int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO plots (user_id, plot_index, status)
		 SELECT $1, i, 'empty' FROM generate_series(0, $2 - 1) AS i
		 ON CONFLICT (user_id, plot_index) DO NOTHING`,
		userID, count,
	)
	return err
}

func (r *PlotRepository) ListPlots(ctx context.Context, userID int64) ([]domain.Plot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, plot_index, status, planted_at
		 FROM plots
		 WHERE user_id = $1
		 ORDER BY plot_index`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plots []domain.Plot
	for rows.Next() {
		var p domain.Plot
		if err := rows.Scan(&p.ID, &p.UserID, &p.PlotIndex, &p.Status, &p.PlantedAt); err != nil {
			return nil, err
		}
		plots = append(plots, p)
	}
	return plots, rows.Err()
}

func (r *PlotRepository) LockPlot(ctx context.Context, userID int64, index int) (*domain.Plot, error) {
	var p domain.Plot
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, plot_index, status, planted_at
		 FROM plots
		 WHERE user_id = $1 AND plot_index = $2
		 FOR UPDATE`,
		userID, index,
	).Scan(&p.ID, &p.UserID, &p.PlotIndex, &p.Status, &p.PlantedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// PlantPlot moves an empty plot to growing. False means it was not empty.
func (r *PlotRepository) PlantPlot(ctx context.Context, userID int64, index int, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE plots SET status = 'growing', planted_at = $3
		 WHERE user_id = $1 AND plot_index = $2 AND status = 'empty'`,
		userID, index, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClearPlot resets a growing plot. False means another request already did.
func (r *PlotRepository) ClearPlot(ctx context.Context, userID int64, index int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE plots SET status = 'empty', planted_at = NULL
		 WHERE user_id = $1 AND plot_index = $2 AND status = 'growing'`,
		userID, index,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
