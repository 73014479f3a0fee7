package handlers

import (
	"strings"

	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/middleware"
	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reportService *services.ReportService
	// wrapList answers list requests with {reports: [...]} instead of a
	// bare array, as some backend revisions do.
	wrapList bool
}

func NewReportHandler(reportService *services.ReportService, wrapList bool) *ReportHandler {
	return &ReportHandler{reportService: reportService, wrapList: wrapList}
}

// List returns every report to admins, or the reports matching studentId.
// Other callers only ever see their own reports.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	scope := models.ScopeOwn(actor.ID)
	if actor.IsAdmin() {
		scope = models.ScopeOwn(strings.TrimSpace(c.Query("studentId")))
	}
	return h.list(c, scope)
}

func (h *ReportHandler) MyReports(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	studentID := strings.TrimSpace(c.Query("studentId"))
	if studentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "studentId is required",
		})
	}
	if !actor.IsAdmin() && studentID != actor.ID {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "You can only view your own reports",
		})
	}
	return h.list(c, models.ScopeOwn(studentID))
}

func (h *ReportHandler) list(c *fiber.Ctx, scope models.Scope) error {
	reports := h.reportService.List(scope)
	if h.wrapList {
		return c.JSON(fiber.Map{"reports": reports, "total": len(reports)})
	}
	return c.JSON(reports)
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var (
		req   dto.CreateReportRequest
		files []*services.File
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		req = dto.CreateReportRequest{
			StudentID:   c.FormValue("studentId"),
			ReportedBy:  c.FormValue("reportedBy"),
			Title:       c.FormValue("title"),
			Location:    c.FormValue("location"),
			RoomNo:      c.FormValue("roomNo"),
			Category:    c.FormValue("category"),
			Description: c.FormValue("description"),
		}
		var err error
		if files, err = formFiles(c, "attachments"); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid attachments",
			})
		}
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.reportService.Create(&req, files)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) Patch(c *fiber.Ctx) error {
	var patch dto.ReportPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.reportService.Patch(c.Params("id"), &patch)
	if err != nil {
		return c.Status(statusFor(err)).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.JSON(report)
}

func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.reportService.Delete(actor, c.Params("id")); err != nil {
		return c.Status(statusFor(err)).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.JSON(dto.MessageResponse{Message: "Report deleted successfully"})
}

func (h *ReportHandler) Attachment(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	f, err := h.reportService.Attachment(actor, c.Params("id"), c.Params("fileId"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return sendFile(c, f)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}
