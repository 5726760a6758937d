package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("ADMIN_TELEGRAM_IDS", "1, 2,bad,3")
	t.Setenv("API_RATE_LIMIT", "30")
	t.Setenv("API_RATE_WINDOW_SECONDS", "10")
	t.Setenv("WEBAPP_URL", "https://example.org/app/")

	cfg := Load()

	require.Equal(t, StorageMemory, cfg.Storage)
	require.Equal(t, []int64{1, 2, 3}, cfg.AdminTelegramIDs)
	require.True(t, cfg.IsAdminTelegramID(2))
	require.False(t, cfg.IsAdminTelegramID(4))
	require.Equal(t, 30, cfg.APIRateLimit)
	require.Equal(t, 10*time.Second, cfg.APIRateWindow)
	require.Equal(t, time.Minute, cfg.AuthRateWindow)
	require.Equal(t, "https://example.org/app", cfg.WebAppURL)
	require.True(t, cfg.DevMode)
}
