package service

import (
	"context"
	"math"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
)

// PlotView is a plot with its timer resolved against the current settings.
type PlotView struct {
	domain.Plot
	GrowthTimeSeconds int           `json:"growth_time_seconds"`
	Reward            ledger.Amount `json:"reward"`
	ReadyAt           *time.Time    `json:"ready_at,omitempty"`
	RemainingSeconds  int64         `json:"remaining_seconds"`
	Ready             bool          `json:"ready"`
}

// FarmState is the payload of the game screen.
type FarmState struct {
	User     *domain.User    `json:"user"`
	Plots    []PlotView      `json:"plots"`
	Settings domain.Settings `json:"settings"`
}

// HarvestResult describes a successful harvest.
type HarvestResult struct {
	PlotIndex         int           `json:"plot_index"`
	Reward            ledger.Amount `json:"reward"`
	NewBalance        ledger.Amount `json:"new_balance"`
	CompletedHarvests int           `json:"completed_harvests"`
	ReferralPaid      bool          `json:"referral_bonus_paid"`
}

// FarmService runs the plot lifecycle: plant, grow, harvest.
type FarmService struct {
	store    repository.Store
	settings *SettingsService
	now      func() time.Time
}

func NewFarmService(store repository.Store, settings *SettingsService) *FarmService {
	return &FarmService{store: store, settings: settings, now: time.Now}
}

// State returns the user with their plots. Missing plots are created so a
// user always owns exactly domain.PlotCount of them.
func (s *FarmService) State(ctx context.Context, userID int64) (*FarmState, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	plots, err := s.store.ListPlots(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(plots) < domain.PlotCount {
		if err := s.store.CreatePlots(ctx, userID, domain.PlotCount); err != nil {
			return nil, apperr.Internal(err)
		}
		if plots, err = s.store.ListPlots(ctx, userID); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	now := s.now()
	views := make([]PlotView, 0, len(plots))
	for _, p := range plots {
		views = append(views, viewPlot(p, settings, now))
	}
	return &FarmState{User: user, Plots: views, Settings: settings}, nil
}

func viewPlot(p domain.Plot, settings domain.Settings, now time.Time) PlotView {
	box := settings.Box(p.PlotIndex)
	growth := settings.GrowthTime(p.PlotIndex)
	v := PlotView{
		Plot:              p,
		GrowthTimeSeconds: box.GrowthTimeSeconds,
		Reward:            box.HarvestReward,
	}
	if readyAt, ok := p.ReadyAt(growth); ok {
		v.ReadyAt = &readyAt
		v.RemainingSeconds = ceilSeconds(p.Remaining(now, growth))
		v.Ready = v.RemainingSeconds == 0
	}
	return v
}

// Plant starts the timer on an empty plot.
func (s *FarmService) Plant(ctx context.Context, userID int64, index int) (*PlotView, error) {
	if !domain.ValidPlotIndex(index) {
		return nil, ErrPlotNotFound
	}
	now := s.now()
	var planted *domain.Plot
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		ok, err := q.PlantPlot(ctx, userID, index, now)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := q.LockPlot(ctx, userID, index); err != nil {
				return mapNotFound(err, ErrPlotNotFound)
			}
			return ErrPlotNotEmpty
		}
		planted, err = q.LockPlot(ctx, userID, index)
		return err
	})
	if err != nil {
		return nil, mapNotFound(err, ErrPlotNotFound)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	v := viewPlot(*planted, settings, now)
	return &v, nil
}

// Harvest pays out a mature plot and resets it. The growth time is the one
// configured now, not the one in force at planting. When the user's
// completed harvests reach domain.ReferralThreshold the referrer is paid
// once, in the same transaction.
func (s *FarmService) Harvest(ctx context.Context, userID int64, index int) (*HarvestResult, error) {
	if !domain.ValidPlotIndex(index) {
		return nil, ErrPlotNotFound
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now()
	box := settings.Box(index)
	growth := settings.GrowthTime(index)

	res := &HarvestResult{PlotIndex: index, Reward: box.HarvestReward}
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		plot, err := q.LockPlot(ctx, userID, index)
		if err != nil {
			return mapNotFound(err, ErrPlotNotFound)
		}
		if plot.Status != domain.PlotStatusGrowing || plot.PlantedAt == nil {
			return ErrNothingToHarvest
		}
		if remaining := plot.Remaining(now, growth); remaining > 0 {
			readyAt, _ := plot.ReadyAt(growth)
			return ErrTooEarly.WithDetails(map[string]any{
				"remainingSeconds": ceilSeconds(remaining),
				"readyAt":          readyAt.UTC().Format(time.RFC3339),
			})
		}

		cleared, err := q.ClearPlot(ctx, userID, index)
		if err != nil {
			return err
		}
		if !cleared {
			return ErrNothingToHarvest
		}

		balance, err := credit(ctx, q, userID, box.HarvestReward, domain.TxHarvest, map[string]any{"plot_index": index})
		if err != nil {
			return err
		}
		res.NewBalance = balance

		count, err := q.IncrementHarvests(ctx, userID)
		if err != nil {
			return err
		}
		res.CompletedHarvests = count

		if count >= domain.ReferralThreshold {
			paid, err := payReferralBonus(ctx, q, userID, settings.ReferralBonus)
			if err != nil {
				return err
			}
			res.ReferralPaid = paid
		}
		return nil
	})
	if err != nil {
		rejectClaim(err)
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	harvestsTotal.Inc()
	logger.WithContext(ctx).Info("plot harvested", "user_id", userID, "plot_index", index, "harvests", res.CompletedHarvests)
	return res, nil
}

// payReferralBonus credits the referrer of userID if the one-shot latch is
// still open. It reports whether a payment was made.
func payReferralBonus(ctx context.Context, q repository.Queries, userID int64, bonus ledger.Amount) (bool, error) {
	user, err := q.LockUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.ReferredBy == nil || user.ReferralBonusClaimed {
		return false, nil
	}
	latched, err := q.MarkReferralBonusClaimed(ctx, userID)
	if err != nil || !latched {
		return false, err
	}
	if !bonus.IsPositive() {
		return false, nil
	}
	if _, err := credit(ctx, q, *user.ReferredBy, bonus, domain.TxReferralBonus, map[string]any{"referred_user_id": userID}); err != nil {
		return false, err
	}
	logger.WithContext(ctx).Info("referral bonus paid", "referrer_id", *user.ReferredBy, "referred_id", userID, "amount", bonus.String())
	return true, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
