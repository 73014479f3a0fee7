package handlers

import (
	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AnnouncementHandler struct {
	announcementService *services.AnnouncementService
}

func NewAnnouncementHandler(announcementService *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService}
}

func (h *AnnouncementHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.announcementService.List())
}

func (h *AnnouncementHandler) Create(c *fiber.Ctx) error {
	files, err := formFiles(c, "image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid multipart form",
		})
	}
	var image *services.File
	if len(files) > 0 {
		image = files[0]
	}

	a, err := h.announcementService.Create(c.FormValue("title"), c.FormValue("description"), image)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AnnouncementHandler) Image(c *fiber.Ctx) error {
	f, err := h.announcementService.Image(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return sendFile(c, f)
}

func (h *AnnouncementHandler) Delete(c *fiber.Ctx) error {
	if err := h.announcementService.Delete(c.Params("id")); err != nil {
		return c.Status(statusFor(err)).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(dto.MessageResponse{Message: "Announcement deleted"})
}
