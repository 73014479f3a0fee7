package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/ezfix/portal/internal/services"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
)

// formFiles reads every file uploaded under field.
func formFiles(c *fiber.Ctx, field string) ([]*services.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	headers := form.File[field]
	files := make([]*services.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}

		ct := fh.Header.Get(fiber.HeaderContentType)
		if ct == "" || ct == fiber.MIMEOctetStream {
			ct = mimetype.Detect(data).String()
		}
		files = append(files, &services.File{Name: fh.Filename, ContentType: ct, Data: data})
	}
	return files, nil
}

func sendFile(c *fiber.Ctx, f *services.File) error {
	c.Set(fiber.HeaderContentType, f.ContentType)
	if f.Name != "" {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", f.Name))
	}
	return c.Send(f.Data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrAnnouncementNotFound),
		errors.Is(err, services.ErrFileNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrNotPermitted):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrUsernameTaken), errors.Is(err, services.ErrNotCancelable):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidStatus):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
