package dto

import (
	"time"

	"github.com/ezfix/portal/internal/models"
)

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Backend   string `json:"backend"`
}

type AnnouncementPayload struct {
	ID          string    `json:"id,omitempty"`
	MongoID     string    `json:"_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	HasImage    bool      `json:"hasImage"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p *AnnouncementPayload) Normalize() models.Announcement {
	id := p.ID
	if id == "" {
		id = p.MongoID
	}
	return models.Announcement{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		HasImage:    p.HasImage,
		CreatedAt:   p.CreatedAt,
	}
}

type AnnouncementListEnvelope struct {
	Announcements []AnnouncementPayload `json:"announcements"`
}
