package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Backend
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Session
	SessionTier   string
	SessionFile   string
	RefreshLeeway time.Duration

	// Presentation
	ToastTTL time.Duration
	PageSize int
	LogLevel slog.Level

	// Dev server (portal serve)
	Port        string
	StaticDir   string
	ProxyTarget string
	CORSOrigins string

	// Error tracking
	SentryDSN string
	AppEnv    string

	// Sandbox backend
	SandboxPort          string
	SandboxJWTSecret     string
	SandboxAccessExpiry  time.Duration
	SandboxRefreshExpiry time.Duration
	SandboxAdminUsers    []string
	SandboxAdminPassword string
	SandboxWrapList      bool
	SandboxSeed          bool
}

const (
	TierSession = "session"
	TierLocal   = "local"
)

// Load reads .env (when present) and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	return &Config{
		APIBaseURL:  strings.TrimRight(getEnv("EZFIX_API_URL", "http://localhost:8080"), "/"),
		HTTPTimeout: parseDuration(getEnv("EZFIX_HTTP_TIMEOUT", "15s"), 15*time.Second),

		SessionTier:   parseTier(getEnv("EZFIX_SESSION_TIER", TierLocal)),
		SessionFile:   getEnv("EZFIX_SESSION_FILE", defaultSessionFile()),
		RefreshLeeway: parseDuration(getEnv("EZFIX_REFRESH_LEEWAY", "30s"), 30*time.Second),

		ToastTTL: parseDuration(getEnv("EZFIX_TOAST_TTL", "3s"), 3*time.Second),
		PageSize: parseInt(getEnv("EZFIX_PAGE_SIZE", "10"), 10),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		Port:        getEnv("PORT", "5173"),
		StaticDir:   getEnv("STATIC_DIR", "dist"),
		ProxyTarget: strings.TrimRight(getEnv("PROXY_TARGET", "https://theezfixapi.onrender.com"), "/"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),

		SandboxPort:          getEnv("SANDBOX_PORT", "8080"),
		SandboxJWTSecret:     getEnv("SANDBOX_JWT_SECRET", "sandbox-secret"),
		SandboxAccessExpiry:  parseDuration(getEnv("SANDBOX_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		SandboxRefreshExpiry: parseDuration(getEnv("SANDBOX_REFRESH_EXPIRY", "168h"), 168*time.Hour),
		SandboxAdminUsers:    parseCSV(getEnv("SANDBOX_ADMIN_USERS", "admin")),
		SandboxAdminPassword: getEnv("SANDBOX_ADMIN_PASSWORD", ""),
		SandboxWrapList:      parseBool(getEnv("SANDBOX_WRAP_LIST", "false")),
		SandboxSeed:          parseBool(getEnv("SANDBOX_SEED", "false")),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseTier(s string) string {
	if strings.EqualFold(s, TierSession) {
		return TierSession
	}
	return TierLocal
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ezfix-session.json"
	}
	return filepath.Join(dir, "ezfix", "session.json")
}
