package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezfix/portal/internal/cli"
	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/logging"
)

func main() {
	cfg := config.Load()
	args := os.Args[1:]

	// Keep one-shot commands quiet unless a level was asked for.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" && (len(args) == 0 || args[0] != "serve") {
		level = slog.LevelWarn
	}
	stderrHandler := logging.Setup(level)

	flush, err := logging.InitSentry(cfg.SentryDSN, cfg.AppEnv)
	if err != nil {
		slog.Error("sentry init failed", "error", err)
	} else if cfg.SentryDSN != "" {
		slog.SetDefault(slog.New(logging.NewMultiHandler(stderrHandler, logging.NewSentryHandler(nil))))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = cli.NewApp(cfg).Run(ctx, args)
	stop()
	flush()

	if err != nil {
		if !errors.Is(err, cli.ErrShown) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
