package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ezfix/portal/internal/server"
	"github.com/spf13/pflag"
)

func (a *App) serveCommand(ctx context.Context) *Command {
	var port, static, target string
	return &Command{
		Name:    "serve",
		Summary: "Host the built front end and proxy /api to the backend",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			fs.StringVar(&port, "port", a.cfg.Port, "listen port")
			fs.StringVar(&static, "static", a.cfg.StaticDir, "directory with the built front end")
			fs.StringVar(&target, "target", a.cfg.ProxyTarget, "backend that /api/* is forwarded to")
			return fs
		},
		Run: func(args []string) error {
			cfg := *a.cfg
			cfg.Port, cfg.StaticDir = port, static
			cfg.ProxyTarget = strings.TrimRight(target, "/")
			app := server.NewPortal(&cfg)

			errCh := make(chan error, 1)
			go func() {
				slog.Info("portal serving", "port", cfg.Port, "static", cfg.StaticDir, "target", cfg.ProxyTarget)
				errCh <- app.Listen(":" + cfg.Port)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				slog.Info("shutting down portal")
				return app.Shutdown()
			}
		},
	}
}
