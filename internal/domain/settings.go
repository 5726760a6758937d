package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"plantaton/internal/ledger"
)

// Keys of the game_settings table.
const (
	SettingGrowthTimeSeconds  = "growthTimeSeconds"
	SettingHarvestReward      = "harvestReward"
	SettingBoxes              = "boxes"
	SettingMinimumWithdrawal  = "minimumWithdrawal"
	SettingReferralBonus      = "referralBonus"
	SettingReferralPercentage = "referralPercentage"
	SettingDailyBonusAmount   = "dailyBonusAmount"
	SettingTelegramChannel    = "telegramChannel"
	SettingTelegramSupport    = "telegramSupport"
)

var settingKeys = []string{
	SettingGrowthTimeSeconds,
	SettingHarvestReward,
	SettingBoxes,
	SettingMinimumWithdrawal,
	SettingReferralBonus,
	SettingReferralPercentage,
	SettingDailyBonusAmount,
	SettingTelegramChannel,
	SettingTelegramSupport,
}

// KnownSetting reports whether key is a recognised settings key.
func KnownSetting(key string) bool {
	for _, k := range settingKeys {
		if k == key {
			return true
		}
	}
	return false
}

const (
	defaultGrowthTimeSeconds = 60
	maxGrowthTimeSeconds     = 30 * 24 * 60 * 60
)

var defaultHarvestReward = ledger.MustParse("0.0001")

// BoxOverride replaces the global growth time or reward for one plot.
// Nil fields fall back to the global value.
type BoxOverride struct {
	GrowthTimeSeconds *int           `json:"growthTimeSeconds,omitempty"`
	HarvestReward     *ledger.Amount `json:"harvestReward,omitempty"`
}

// BoxSettings is the effective configuration of one plot.
type BoxSettings struct {
	GrowthTimeSeconds int           `json:"growthTimeSeconds"`
	HarvestReward     ledger.Amount `json:"harvestReward"`
}

// Settings is the typed game configuration. Version grows on every write.
type Settings struct {
	Version            int64
	GrowthTimeSeconds  int
	HarvestReward      ledger.Amount
	Boxes              []BoxOverride
	MinimumWithdrawal  ledger.Amount
	ReferralBonus      ledger.Amount
	ReferralPercentage int
	DailyBonusAmount   ledger.Amount
	TelegramChannel    string
	TelegramSupport    string
	UpdatedAt          time.Time
}

func DefaultSettings() Settings {
	return Settings{
		GrowthTimeSeconds:  defaultGrowthTimeSeconds,
		HarvestReward:      defaultHarvestReward,
		MinimumWithdrawal:  ledger.MustParse("0.1"),
		ReferralBonus:      ledger.MustParse("0.01"),
		ReferralPercentage: 10,
		DailyBonusAmount:   ledger.MustParse("0.0001"),
	}
}

// Box resolves the configuration of plot i: box override, then global
// value, then the built-in default.
func (s Settings) Box(i int) BoxSettings {
	b := BoxSettings{
		GrowthTimeSeconds: s.GrowthTimeSeconds,
		HarvestReward:     s.HarvestReward,
	}
	if b.GrowthTimeSeconds <= 0 {
		b.GrowthTimeSeconds = defaultGrowthTimeSeconds
	}
	if !b.HarvestReward.IsPositive() {
		b.HarvestReward = defaultHarvestReward
	}
	if i >= 0 && i < len(s.Boxes) {
		o := s.Boxes[i]
		if o.GrowthTimeSeconds != nil && *o.GrowthTimeSeconds > 0 {
			b.GrowthTimeSeconds = *o.GrowthTimeSeconds
		}
		if o.HarvestReward != nil && o.HarvestReward.IsPositive() {
			b.HarvestReward = *o.HarvestReward
		}
	}
	return b
}

func (s Settings) GrowthTime(i int) time.Duration {
	return time.Duration(s.Box(i).GrowthTimeSeconds) * time.Second
}

func (s Settings) ResolvedBoxes() []BoxSettings {
	out := make([]BoxSettings, PlotCount)
	for i := range out {
		out[i] = s.Box(i)
	}
	return out
}

// MarshalJSON exposes the settings under their storage keys, with boxes
// fully resolved.
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"version":                 s.Version,
		SettingGrowthTimeSeconds:  s.GrowthTimeSeconds,
		SettingHarvestReward:      s.HarvestReward,
		SettingBoxes:              s.ResolvedBoxes(),
		SettingMinimumWithdrawal:  s.MinimumWithdrawal,
		SettingReferralBonus:      s.ReferralBonus,
		SettingReferralPercentage: s.ReferralPercentage,
		SettingDailyBonusAmount:   s.DailyBonusAmount,
		SettingTelegramChannel:    s.TelegramChannel,
		SettingTelegramSupport:    s.TelegramSupport,
	})
}

// ApplySetting parses one stored value onto s.
func (s *Settings) ApplySetting(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case SettingGrowthTimeSeconds:
		n, err := parseGrowth(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.GrowthTimeSeconds = n
	case SettingHarvestReward:
		return parsePositive(key, value, &s.HarvestReward)
	case SettingMinimumWithdrawal:
		return parsePositive(key, value, &s.MinimumWithdrawal)
	case SettingReferralBonus:
		return parseNonNegative(key, value, &s.ReferralBonus)
	case SettingDailyBonusAmount:
		return parseNonNegative(key, value, &s.DailyBonusAmount)
	case SettingReferralPercentage:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 {
			return fmt.Errorf("%s: must be an integer between 0 and 100", key)
		}
		s.ReferralPercentage = n
	case SettingBoxes:
		boxes, err := parseBoxes(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.Boxes = boxes
	case SettingTelegramChannel:
		s.TelegramChannel = value
	case SettingTelegramSupport:
		s.TelegramSupport = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// ApplySettings applies every value, skipping the invalid ones. The
// returned error joins one error per rejected key.
func (s *Settings) ApplySettings(values map[string]string) error {
	var errs []error
	for _, key := range settingKeys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := s.ApplySetting(key, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Values serialises s into storage rows.
func (s Settings) Values() map[string]string {
	boxes, _ := json.Marshal(s.Boxes)
	if s.Boxes == nil {
		boxes = []byte("[]")
	}
	return map[string]string{
		SettingGrowthTimeSeconds:  strconv.Itoa(s.GrowthTimeSeconds),
		SettingHarvestReward:      s.HarvestReward.String(),
		SettingBoxes:              string(boxes),
		SettingMinimumWithdrawal:  s.MinimumWithdrawal.String(),
		SettingReferralBonus:      s.ReferralBonus.String(),
		SettingReferralPercentage: strconv.Itoa(s.ReferralPercentage),
		SettingDailyBonusAmount:   s.DailyBonusAmount.String(),
		SettingTelegramChannel:    s.TelegramChannel,
		SettingTelegramSupport:    s.TelegramSupport,
	}
}

func parseGrowth(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("must be an integer number of seconds")
	}
	if n <= 0 || n > maxGrowthTimeSeconds {
		return 0, errors.New("must be positive and at most 30 days")
	}
	return n, nil
}

func parsePositive(key, value string, dst *ledger.Amount) error {
	a, err := ledger.Parse(value)
	if err != nil || !a.IsPositive() {
		return fmt.Errorf("%s: must be a positive amount with at most %d decimals", key, ledger.Scale)
	}
	*dst = a
	return nil
}

func parseNonNegative(key, value string, dst *ledger.Amount) error {
	a, err := ledger.Parse(value)
	if err != nil || a.IsNegative() {
		return fmt.Errorf("%s: must be a non-negative amount with at most %d decimals", key, ledger.Scale)
	}
	*dst = a
	return nil
}

func parseBoxes(value string) ([]BoxOverride, error) {
	if value == "" || value == "null" {
		return nil, nil
	}
	var boxes []BoxOverride
	if err := json.Unmarshal([]byte(value), &boxes); err != nil {
		return nil, errors.New("must be a JSON array of box overrides")
	}
	if len(boxes) > PlotCount {
		return nil, fmt.Errorf("at most %d boxes", PlotCount)
	}
	for i, b := range boxes {
		if b.GrowthTimeSeconds != nil && (*b.GrowthTimeSeconds <= 0 || *b.GrowthTimeSeconds > maxGrowthTimeSeconds) {
			return nil, fmt.Errorf("box %d: growth time must be positive", i)
		}
		if b.HarvestReward != nil && !b.HarvestReward.IsPositive() {
			return nil, fmt.Errorf("box %d: reward must be positive", i)
		}
	}
	return boxes, nil
}
