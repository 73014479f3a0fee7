package services

import (
	"errors"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/models"
	"github.com/google/uuid"
)

var (
	ErrAnnouncementNotFound   = errors.New("announcement not found")
	ErrIncompleteAnnouncement = errors.New("title, description and image are required")
)

type AnnouncementService struct {
	db  *MemoryDB
	now func() time.Time
}

func NewAnnouncementService(db *MemoryDB) *AnnouncementService {
	return &AnnouncementService{db: db, now: time.Now}
}

// List returns announcements newest first.
func (s *AnnouncementService) List() []models.Announcement {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]models.Announcement, 0, len(s.db.announcements))
	for i := len(s.db.announcements) - 1; i >= 0; i-- {
		out = append(out, s.db.announcements[i].Announcement)
	}
	return out
}

func (s *AnnouncementService) Create(title, description string, image *File) (*models.Announcement, error) {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" || image == nil {
		return nil, ErrIncompleteAnnouncement
	}
	rec := &announcementRecord{
		Announcement: models.Announcement{
			ID:          uuid.NewString(),
			Title:       title,
			Description: description,
			HasImage:    true,
			CreatedAt:   s.now().UTC(),
		},
		Image: image,
	}

	s.db.mu.Lock()
	s.db.announcements = append(s.db.announcements, rec)
	s.db.mu.Unlock()
	a := rec.Announcement
	return &a, nil
}

func (s *AnnouncementService) Image(id string) (*File, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, a := range s.db.announcements {
		if a.ID == id {
			if a.Image == nil {
				return nil, ErrFileNotFound
			}
			return a.Image, nil
		}
	}
	return nil, ErrAnnouncementNotFound
}

func (s *AnnouncementService) Delete(id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i, a := range s.db.announcements {
		if a.ID == id {
			s.db.announcements = append(s.db.announcements[:i], s.db.announcements[i+1:]...)
			return nil
		}
	}
	return ErrAnnouncementNotFound
}
