package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSettingsBoxFallback(t *testing.T) {
	s := DefaultSettings()
	s.GrowthTimeSeconds = 120
	require.NoError(t, s.ApplySetting(SettingBoxes, `[{"growthTimeSeconds":30},{"harvestReward":"0.0005"},{}]`))

	require.Equal(t, 30, s.Box(0).GrowthTimeSeconds)
	require.Equal(t, "0.0001", s.Box(0).HarvestReward.String())

	require.Equal(t, 120, s.Box(1).GrowthTimeSeconds)
	require.Equal(t, "0.0005", s.Box(1).HarvestReward.String())

	require.Equal(t, 120, s.Box(2).GrowthTimeSeconds)
	require.Equal(t, 120*time.Second, s.GrowthTime(8))
	require.Len(t, s.ResolvedBoxes(), PlotCount)
}

func TestSettingsHardDefaults(t *testing.T) {
	var s Settings
	b := s.Box(4)
	require.Equal(t, 60, b.GrowthTimeSeconds)
	require.Equal(t, "0.0001", b.HarvestReward.String())
}

func TestApplySettingsRejectsInvalid(t *testing.T) {
	s := DefaultSettings()
	err := s.ApplySettings(map[string]string{
		SettingGrowthTimeSeconds: "-5",
		SettingHarvestReward:     "abc",
		SettingReferralBonus:     "0.05",
		SettingBoxes:             `[{"growthTimeSeconds":0}]`,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), SettingGrowthTimeSeconds)
	require.Contains(t, err.Error(), SettingHarvestReward)
	require.Contains(t, err.Error(), SettingBoxes)

	// valid keys still apply, invalid keep their previous value
	require.Equal(t, "0.0500", s.ReferralBonus.String())
	require.Equal(t, 60, s.GrowthTimeSeconds)
	require.Equal(t, "0.0001", s.HarvestReward.String())
}

func TestApplySettingUnknownKey(t *testing.T) {
	s := DefaultSettings()
	require.Error(t, s.ApplySetting("jackpot", "1"))
	require.False(t, KnownSetting("jackpot"))
	require.True(t, KnownSetting(SettingDailyBonusAmount))
}

func TestSettingsValuesRoundTrip(t *testing.T) {
	s := DefaultSettings()
	s.TelegramChannel = "https://t.me/plantaton"
	require.NoError(t, s.ApplySetting(SettingBoxes, `[{"growthTimeSeconds":15}]`))

	restored := DefaultSettings()
	require.NoError(t, restored.ApplySettings(s.Values()))
	for i := 0; i < PlotCount; i++ {
		require.Equal(t, s.Box(i).GrowthTimeSeconds, restored.Box(i).GrowthTimeSeconds)
		require.Equal(t, s.Box(i).HarvestReward.String(), restored.Box(i).HarvestReward.String())
	}
	require.Equal(t, s.TelegramChannel, restored.TelegramChannel)
	require.True(t, s.MinimumWithdrawal.Equal(restored.MinimumWithdrawal))
}

func TestSettingsJSON(t *testing.T) {
	s := DefaultSettings()
	s.Version = 3

	out, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	require.EqualValues(t, 3, m["version"])
	require.Equal(t, "0.1000", m[SettingMinimumWithdrawal])
	require.Len(t, m[SettingBoxes], PlotCount)
}
