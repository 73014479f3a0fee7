package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EZFIX_API_URL", "")
	t.Setenv("EZFIX_SESSION_TIER", "")
	cfg := Load()

	require.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	require.Equal(t, TierLocal, cfg.SessionTier)
	require.Equal(t, 3*time.Second, cfg.ToastTTL)
	require.Equal(t, 10, cfg.PageSize)
	require.Equal(t, []string{"admin"}, cfg.SandboxAdminUsers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EZFIX_API_URL", "https://api.example.test/v1/")
	t.Setenv("EZFIX_SESSION_TIER", "SESSION")
	t.Setenv("EZFIX_TOAST_TTL", "5s")
	t.Setenv("EZFIX_PAGE_SIZE", "-3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SANDBOX_ADMIN_USERS", " root, ,ops ")
	cfg := Load()

	require.Equal(t, "https://api.example.test/v1", cfg.APIBaseURL)
	require.Equal(t, TierSession, cfg.SessionTier)
	require.Equal(t, 5*time.Second, cfg.ToastTTL)
	require.Equal(t, 10, cfg.PageSize)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.Equal(t, []string{"root", "ops"}, cfg.SandboxAdminUsers)
}

func TestParseDurationFallback(t *testing.T) {
	require.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	require.Equal(t, time.Minute, parseDuration("-1s", time.Minute))
	require.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

func TestSandboxFlags(t *testing.T) {
	t.Setenv("SANDBOX_WRAP_LIST", "true")
	t.Setenv("SANDBOX_SEED", "nope")
	cfg := Load()

	require.True(t, cfg.SandboxWrapList)
	require.False(t, cfg.SandboxSeed)
}
