package dto

import (
	"strings"
	"time"

	"github.com/ezfix/portal/internal/models"
)

// ReportPayload is a report as the backend sends it.
type ReportPayload struct {
	ID          string          `json:"id,omitempty"`
	MongoID     string          `json:"_id,omitempty"`
	ReportedBy  string          `json:"reportedBy"`
	StudentID   string          `json:"studentId"`
	Title       string          `json:"title"`
	Location    string          `json:"location"`
	RoomNo      string          `json:"roomNo"`
	Category    models.Category `json:"category"`
	Description string          `json:"description"`
	Status      models.Status   `json:"status"`
	Priority    bool            `json:"priority"`
	Comment     string          `json:"comment,omitempty"`
	Attachments []string        `json:"attachments,omitempty"`
	Attachment  string          `json:"attachment,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p *ReportPayload) Normalize() models.Report {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = strings.TrimSpace(p.MongoID)
	}
	status := p.Status
	if status == "" {
		status = models.StatusPending
	}
	attachments := make([]string, 0, len(p.Attachments)+1)
	attachments = append(attachments, p.Attachments...)
	if p.Attachment != "" {
		attachments = append(attachments, p.Attachment)
	}
	if len(attachments) == 0 {
		attachments = nil
	}
	return models.Report{
		ID:          id,
		ReportedBy:  p.ReportedBy,
		StudentID:   p.StudentID,
		Title:       p.Title,
		Location:    p.Location,
		RoomNo:      p.RoomNo,
		Category:    p.Category,
		Description: p.Description,
		Status:      status,
		Priority:    p.Priority,
		Comment:     p.Comment,
		Attachments: attachments,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ReportListEnvelope is the wrapped list shape, {reports: [...]}.
type ReportListEnvelope struct {
	Reports []ReportPayload `json:"reports"`
}

// ReportEnvelope is the wrapped single-report shape, {report: {...}}.
type ReportEnvelope struct {
	Report *ReportPayload `json:"report"`
}

// ReportPatch is a partial update. Nil fields are left out of the body.
type ReportPatch struct {
	Status   *models.Status `json:"status,omitempty"`
	Priority *bool          `json:"priority,omitempty"`
	Comment  *string        `json:"comment,omitempty"`
}

// Apply copies the patched fields onto r.
func (p ReportPatch) Apply(r *models.Report) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.Comment != nil {
		r.Comment = *p.Comment
	}
}

type CreateReportRequest struct {
	StudentID   string `json:"studentId"`
	ReportedBy  string `json:"reportedBy,omitempty"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	RoomNo      string `json:"roomNo"`
	Category    string `json:"category"`
	Description string `json:"description"`
}
