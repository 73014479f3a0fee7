package services

import (
	"errors"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
	"github.com/google/uuid"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrFileNotFound   = errors.New("file not found")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrNotCancelable  = errors.New("only pending reports can be cancelled")
	ErrMissingFields  = errors.New("studentId, location, roomNo, category and description are required")
)

type ReportService struct {
	db  *MemoryDB
	now func() time.Time
}

func NewReportService(db *MemoryDB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

// List returns reports in submission order. An empty scope lists all.
func (s *ReportService) List(scope models.Scope) []models.Report {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]models.Report, 0, len(s.db.reports))
	for _, r := range s.db.reports {
		if scope.All() || r.StudentID == scope.StudentID {
			out = append(out, copyReport(r))
		}
	}
	return out
}

func (s *ReportService) Get(id string) (*models.Report, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	i := s.db.reportIndex(id)
	if i < 0 {
		return nil, ErrReportNotFound
	}
	r := copyReport(s.db.reports[i])
	return &r, nil
}

func (s *ReportService) Create(req *dto.CreateReportRequest, files []*File) (*models.Report, error) {
	for _, v := range []string{req.StudentID, req.Location, req.RoomNo, req.Category, req.Description} {
		if strings.TrimSpace(v) == "" {
			return nil, ErrMissingFields
		}
	}

	now := s.now().UTC()
	r := &models.Report{
		ID:          uuid.NewString(),
		ReportedBy:  strings.TrimSpace(req.ReportedBy),
		StudentID:   strings.TrimSpace(req.StudentID),
		Title:       strings.TrimSpace(req.Title),
		Location:    strings.TrimSpace(req.Location),
		RoomNo:      strings.TrimSpace(req.RoomNo),
		Category:    models.ParseCategory(req.Category),
		Description: strings.TrimSpace(req.Description),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, f := range files {
		fileID := uuid.NewString()
		s.db.files[fileID] = f
		r.Attachments = append(r.Attachments, fileID)
	}
	s.db.reports = append(s.db.reports, r)
	out := copyReport(r)
	return &out, nil
}

// Patch applies the fields present in p. Unknown statuses are refused.
func (s *ReportService) Patch(id string, p *dto.ReportPatch) (*models.Report, error) {
	if p.Status != nil && !p.Status.Known() {
		return nil, ErrInvalidStatus
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i := s.db.reportIndex(id)
	if i < 0 {
		return nil, ErrReportNotFound
	}
	r := s.db.reports[i]
	p.Apply(r)
	r.UpdatedAt = s.now().UTC()
	out := copyReport(r)
	return &out, nil
}

// Delete removes a report. Non-admins may only cancel their own pending
// reports.
func (s *ReportService) Delete(actor models.User, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i := s.db.reportIndex(id)
	if i < 0 {
		return ErrReportNotFound
	}
	r := s.db.reports[i]
	if !actor.IsAdmin() {
		if r.StudentID != actor.ID {
			return ErrNotPermitted
		}
		if !r.Status.Cancelable() {
			return ErrNotCancelable
		}
	}
	for _, fileID := range r.Attachments {
		delete(s.db.files, fileID)
	}
	s.db.reports = append(s.db.reports[:i], s.db.reports[i+1:]...)
	return nil
}

// Attachment returns a file of a report. Non-admins may only read files of
// their own reports.
func (s *ReportService) Attachment(actor models.User, reportID, fileID string) (*File, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	i := s.db.reportIndex(reportID)
	if i < 0 {
		return nil, ErrReportNotFound
	}
	if !actor.IsAdmin() && s.db.reports[i].StudentID != actor.ID {
		return nil, ErrNotPermitted
	}
	for _, id := range s.db.reports[i].Attachments {
		if id == fileID {
			if f, ok := s.db.files[fileID]; ok {
				return f, nil
			}
		}
	}
	return nil, ErrFileNotFound
}
