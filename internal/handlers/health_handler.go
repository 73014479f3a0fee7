package handlers

import (
	"context"
	"time"

	"github.com/ezfix/portal/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// Probe checks that whatever sits behind the server answers.
type Probe func(ctx context.Context) error

type HealthHandler struct {
	backend string
	probe   Probe
}

// NewHealthHandler reports on backend using probe. A nil probe always
// reports the backend as ok.
func NewHealthHandler(backend string, probe Probe) *HealthHandler {
	return &HealthHandler{backend: backend, probe: probe}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	backendStatus := "ok"
	if h.probe != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()
		if err := h.probe(ctx); err != nil {
			backendStatus = "unreachable: " + err.Error()
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Backend:   h.backend + " " + backendStatus,
	})
}
