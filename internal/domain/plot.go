package domain

import "time"

// PlotCount is the fixed number of plots every user owns.
const PlotCount = 9

type PlotStatus string

const (
	PlotStatusEmpty   PlotStatus = "empty"
	PlotStatusGrowing PlotStatus = "growing"
)

type Plot struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	PlotIndex int        `db:"plot_index" json:"plot_index"`
	Status    PlotStatus `db:"status" json:"status"`
	PlantedAt *time.Time `db:"planted_at" json:"planted_at,omitempty"`
}

// ValidPlotIndex reports whether i addresses one of the user's plots.
func ValidPlotIndex(i int) bool {
	return i >= 0 && i < PlotCount
}

// ReadyAt returns when a growing plot matures under the given growth time.
func (p *Plot) ReadyAt(growth time.Duration) (time.Time, bool) {
	if p.Status != PlotStatusGrowing || p.PlantedAt == nil {
		return time.Time{}, false
	}
	return p.PlantedAt.Add(growth), true
}

// Remaining is the time left until maturity, zero when ready.
func (p *Plot) Remaining(now time.Time, growth time.Duration) time.Duration {
	readyAt, ok := p.ReadyAt(growth)
	if !ok {
		return 0
	}
	if d := readyAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
