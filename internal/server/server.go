// Package server assembles the two fiber applications: the in-memory
// sandbox backend and the portal dev server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/handlers"
	"github.com/ezfix/portal/internal/middleware"
	"github.com/ezfix/portal/internal/routes"
	"github.com/ezfix/portal/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Sandbox is the in-memory backend with its services exposed for seeding.
type Sandbox struct {
	App           *fiber.App
	Auth          *services.AuthService
	Reports       *services.ReportService
	Announcements *services.AnnouncementService
}

func NewSandbox(cfg *config.Config, db *services.MemoryDB) *Sandbox {
	authService := services.NewAuthService(db, cfg)
	reportService := services.NewReportService(db)
	announcementService := services.NewAnnouncementService(db)

	app := newApp(cfg, 16*1024*1024)
	routes.SetupSandbox(app, cfg, routes.SandboxHandlers{
		Auth:          handlers.NewAuthHandler(authService),
		Reports:       handlers.NewReportHandler(reportService, cfg.SandboxWrapList),
		Announcements: handlers.NewAnnouncementHandler(announcementService),
		Health:        handlers.NewHealthHandler("sandbox", nil),
	})

	return &Sandbox{
		App:           app,
		Auth:          authService,
		Reports:       reportService,
		Announcements: announcementService,
	}
}

// NewPortal builds the dev server that hosts the front end and forwards
// /api/* to cfg.ProxyTarget.
func NewPortal(cfg *config.Config) *fiber.App {
	app := newApp(cfg, 32*1024*1024)
	routes.SetupServe(app, cfg, handlers.NewHealthHandler(cfg.ProxyTarget, probeBackend(cfg.ProxyTarget)))
	return app
}

func newApp(cfg *config.Config, bodyLimit int) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())
	return app
}

// probeBackend treats any HTTP answer as reachable.
func probeBackend(target string) handlers.Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("probe %s: %w", target, err)
		}
		resp.Body.Close()
		return nil
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Server errors are masked, except the proxy's 502.
	if code >= 500 && code != fiber.StatusBadGateway {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
