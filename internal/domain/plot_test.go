package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlotRemaining(t *testing.T) {
	planted := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := &Plot{Status: PlotStatusGrowing, PlantedAt: &planted}

	require.Equal(t, 45*time.Second, p.Remaining(planted.Add(15*time.Second), time.Minute))
	require.Zero(t, p.Remaining(planted.Add(time.Minute), time.Minute))

	readyAt, ok := p.ReadyAt(time.Minute)
	require.True(t, ok)
	require.Equal(t, planted.Add(time.Minute), readyAt)

	empty := &Plot{Status: PlotStatusEmpty}
	_, ok = empty.ReadyAt(time.Minute)
	require.False(t, ok)
	require.Zero(t, empty.Remaining(planted, time.Minute))
}

func TestValidPlotIndex(t *testing.T) {
	require.True(t, ValidPlotIndex(0))
	require.True(t, ValidPlotIndex(8))
	require.False(t, ValidPlotIndex(9))
	require.False(t, ValidPlotIndex(-1))
}

func TestPromoRedeemable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	p := &PromoCode{IsActive: true, MaxUses: 2, CurrentUses: 1}
	require.True(t, p.Redeemable(now))

	p.CurrentUses = 2
	require.False(t, p.Redeemable(now))

	p.CurrentUses = 0
	p.ExpiresAt = &past
	require.False(t, p.Redeemable(now))

	p.ExpiresAt = nil
	p.IsActive = false
	require.False(t, p.Redeemable(now))
}
