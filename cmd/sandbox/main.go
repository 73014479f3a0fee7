package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/logging"
	"github.com/ezfix/portal/internal/server"
	"github.com/ezfix/portal/internal/services"
)

func main() {
	cfg := config.Load()
	stderrHandler := logging.Setup(cfg.LogLevel)

	flush, err := logging.InitSentry(cfg.SentryDSN, cfg.AppEnv)
	if err != nil {
		slog.Error("sentry init failed", "error", err)
	} else if cfg.SentryDSN != "" {
		slog.SetDefault(slog.New(logging.NewMultiHandler(stderrHandler, logging.NewSentryHandler(nil))))
	}
	defer flush()

	if cfg.SandboxJWTSecret == "sandbox-secret" {
		slog.Warn("using the default sandbox JWT secret; set SANDBOX_JWT_SECRET outside local development")
	}

	sb := server.NewSandbox(cfg, services.NewMemoryDB())
	if cfg.SandboxSeed {
		if err := services.Seed(sb.Auth, sb.Reports, cfg.SandboxAdminPassword); err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("sandbox starting", "port", cfg.SandboxPort)
		if err := sb.App.Listen(":" + cfg.SandboxPort); err != nil {
			slog.Error("sandbox failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down sandbox...")

	if err := sb.App.Shutdown(); err != nil {
		slog.Error("sandbox shutdown error", "error", err)
	}
	slog.Info("sandbox stopped")
}
