package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestFarm_PlantAndHarvest(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")

	v, err := e.farm.Plant(e.ctx, u.ID, 3)
	require.NoError(t, err)
	require.Equal(t, domain.PlotStatusGrowing, v.Status)
	require.Equal(t, int64(60), v.RemainingSeconds)
	require.False(t, v.Ready)

	_, err = e.farm.Plant(e.ctx, u.ID, 3)
	require.ErrorIs(t, err, ErrPlotNotEmpty)

	e.clock.Advance(30 * time.Second)
	_, err = e.farm.Harvest(e.ctx, u.ID, 3)
	require.ErrorIs(t, err, ErrTooEarly)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	require.Equal(t, "TOO_EARLY", ae.Code)
	require.Equal(t, int64(30), ae.Details["remainingSeconds"])

	e.clock.Advance(30 * time.Second)
	res, err := e.farm.Harvest(e.ctx, u.ID, 3)
	require.NoError(t, err)
	require.Equal(t, "0.0001", res.Reward.String())
	require.Equal(t, "0.0001", res.NewBalance.String())
	require.Equal(t, 1, res.CompletedHarvests)

	_, err = e.farm.Harvest(e.ctx, u.ID, 3)
	require.ErrorIs(t, err, ErrNothingToHarvest)

	state, err := e.farm.State(e.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, state.Plots, domain.PlotCount)
	require.Equal(t, domain.PlotStatusEmpty, state.Plots[3].Status)
	require.Nil(t, state.Plots[3].PlantedAt)
}

func TestFarm_InvalidPlot(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")

	for _, idx := range []int{-1, 9, 100} {
		_, err := e.farm.Plant(e.ctx, u.ID, idx)
		require.ErrorIs(t, err, ErrPlotNotFound)
		_, err = e.farm.Harvest(e.ctx, u.ID, idx)
		require.ErrorIs(t, err, ErrPlotNotFound)
	}
	require.Equal(t, 404, apperr.Status(ErrPlotNotFound))
}

func TestFarm_StateCreatesMissingPlots(t *testing.T) {
	e := newTestEnv(t)
	u := &domain.User{Username: "noplots"}
	require.NoError(t, e.store.CreateUser(e.ctx, u))

	state, err := e.farm.State(e.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, state.Plots, domain.PlotCount)
	for i, p := range state.Plots {
		require.Equal(t, i, p.PlotIndex)
	}
}

func TestFarm_ExactRewardFromSettings(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")
	e.setSetting(t, domain.SettingHarvestReward, "0.0100")

	_, err := e.farm.Plant(e.ctx, u.ID, 0)
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	res, err := e.farm.Harvest(e.ctx, u.ID, 0)
	require.NoError(t, err)
	require.Equal(t, "0.0100", res.NewBalance.String())
	require.Equal(t, "0.0100", e.balanceOf(t, u.ID))
}

func TestFarm_GrowthTimeReadAtHarvest(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")
	e.setSetting(t, domain.SettingGrowthTimeSeconds, "3600")

	_, err := e.farm.Plant(e.ctx, u.ID, 1)
	require.NoError(t, err)
	e.clock.Advance(10 * time.Minute)

	_, err = e.farm.Harvest(e.ctx, u.ID, 1)
	require.ErrorIs(t, err, ErrTooEarly)

	// an admin shortening the timer affects crops already in the ground
	e.setSetting(t, domain.SettingBoxes, `[{}, {"growthTimeSeconds": 300, "harvestReward": "0.5"}]`)
	res, err := e.farm.Harvest(e.ctx, u.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "0.5000", res.Reward.String())
}

func TestFarm_ConcurrentHarvestPaysOnce(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "alice")

	_, err := e.farm.Plant(e.ctx, u.ID, 4)
	require.NoError(t, err)
	e.clock.Advance(61 * time.Second)

	ok, errs := runConcurrently(25, func(int) error {
		_, err := e.farm.Harvest(e.ctx, u.ID, 4)
		return err
	})
	require.Equal(t, 1, ok)
	for _, err := range errs {
		require.ErrorIs(t, err, ErrNothingToHarvest)
	}
	require.Equal(t, "0.0001", e.balanceOf(t, u.ID))

	user, err := e.store.GetUser(e.ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, user.CompletedHarvests)
}

func TestFarm_ReferralBonusFiresOnce(t *testing.T) {
	e := newTestEnv(t)
	referrer := e.createUser(t, "referrer")
	u := e.createUser(t, "newbie")
	ok, err := e.store.SetReferrer(e.ctx, u.ID, referrer.ID)
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < domain.PlotCount; i++ {
		_, err := e.farm.Plant(e.ctx, u.ID, i)
		require.NoError(t, err)
	}
	e.clock.Advance(time.Minute)

	for i := 0; i < domain.PlotCount; i++ {
		res, err := e.farm.Harvest(e.ctx, u.ID, i)
		require.NoError(t, err, fmt.Sprintf("harvest %d", i))
		if i < domain.PlotCount-1 {
			require.False(t, res.ReferralPaid)
			require.Equal(t, "0.0000", e.balanceOf(t, referrer.ID))
		} else {
			require.True(t, res.ReferralPaid)
		}
	}
	require.Equal(t, "0.0100", e.balanceOf(t, referrer.ID))

	_, err = e.farm.Plant(e.ctx, u.ID, 0)
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	res, err := e.farm.Harvest(e.ctx, u.ID, 0)
	require.NoError(t, err)
	require.False(t, res.ReferralPaid)
	require.Equal(t, 10, res.CompletedHarvests)
	require.Equal(t, "0.0100", e.balanceOf(t, referrer.ID))
	require.Equal(t, "0.0010", e.balanceOf(t, u.ID))
}

func TestFarm_NoReferrerNoBonus(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "solo")

	for round := 0; round < 2; round++ {
		for i := 0; i < domain.PlotCount; i++ {
			_, err := e.farm.Plant(e.ctx, u.ID, i)
			require.NoError(t, err)
		}
		e.clock.Advance(time.Minute)
		for i := 0; i < domain.PlotCount; i++ {
			res, err := e.farm.Harvest(e.ctx, u.ID, i)
			require.NoError(t, err)
			require.False(t, res.ReferralPaid)
		}
	}
	require.Equal(t, "0.0018", e.balanceOf(t, u.ID))
}
