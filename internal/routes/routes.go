package routes

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/handlers"
	"github.com/ezfix/portal/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/proxy"
)

// SandboxHandlers groups the handlers of the in-memory backend.
type SandboxHandlers struct {
	Auth          *handlers.AuthHandler
	Reports       *handlers.ReportHandler
	Announcements *handlers.AnnouncementHandler
	Health        *handlers.HealthHandler
}

// SetupSandbox mounts the backend contract at the root, the way the hosted
// backend serves it.
func SetupSandbox(app *fiber.App, cfg *config.Config, h SandboxHandlers) {
	app.Get("/health", h.Health.Check)

	jwt := middleware.JWTProtected(cfg.SandboxJWTSecret)
	admin := middleware.AdminRequired(cfg)

	// Auth: 20 req/min per IP
	users := app.Group("/users")
	users.Use(limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodGet
		},
	}))
	users.Post("/register", h.Auth.Register)
	users.Post("/login", h.Auth.Login)
	users.Post("/refresh", h.Auth.Refresh)
	users.Post("/logout", h.Auth.Logout)
	users.Patch("/:id", jwt, h.Auth.UpdateUser)
	users.Post("/:id/profile-image", jwt, h.Auth.UploadProfileImage)
	users.Get("/:id/profile-image", h.Auth.ProfileImage)

	reports := app.Group("/reports", jwt)
	reports.Get("/", h.Reports.List)
	reports.Get("/my-reports", h.Reports.MyReports)
	reports.Post("/", h.Reports.Create)
	reports.Patch("/:id", admin, h.Reports.Patch)
	reports.Delete("/:id", h.Reports.Delete)
	reports.Get("/:id/attachments/:fileId", h.Reports.Attachment)

	app.Get("/announcements", h.Announcements.List)
	app.Get("/announcements/:id/image", h.Announcements.Image)
	app.Post("/announcements", jwt, admin, h.Announcements.Create)
	app.Delete("/announcements/:id", jwt, admin, h.Announcements.Delete)
}

// SetupServe mounts the dev server: /api/* is forwarded to the backend
// with the prefix removed, everything else is the built front end.
func SetupServe(app *fiber.App, cfg *config.Config, health *handlers.HealthHandler) {
	app.Get("/healthz", health.Check)

	app.All("/api/*", func(c *fiber.Ctx) error {
		path := strings.TrimPrefix(c.OriginalURL(), "/api")
		if path == "" || path[0] != '/' {
			path = "/" + path
		}
		if err := proxy.Do(c, cfg.ProxyTarget+path); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "backend unreachable")
		}
		c.Response().Header.Del(fiber.HeaderServer)
		return nil
	})

	app.Static("/", cfg.StaticDir)
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(cfg.StaticDir, "index.html"))
	})
}
