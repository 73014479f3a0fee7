package services

import (
	"strings"
	"sync"
	"time"

	"github.com/ezfix/portal/internal/models"
)

// File is an uploaded blob: an attachment, a profile image or an
// announcement image.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type userRecord struct {
	models.User
	PasswordHash string
	ProfileImage *File
}

type refreshRecord struct {
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
}

type announcementRecord struct {
	models.Announcement
	Image *File
}

// MemoryDB is the sandbox's whole persistence layer. It is lost on exit.
type MemoryDB struct {
	mu sync.RWMutex

	users         map[string]*userRecord
	usernames     map[string]string
	refreshTokens map[string]*refreshRecord

	reports []*models.Report
	files   map[string]*File

	announcements []*announcementRecord
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:         make(map[string]*userRecord),
		usernames:     make(map[string]string),
		refreshTokens: make(map[string]*refreshRecord),
		files:         make(map[string]*File),
	}
}

func usernameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// reportIndex must be called with db.mu held.
func (db *MemoryDB) reportIndex(id string) int {
	for i, r := range db.reports {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func copyReport(r *models.Report) models.Report {
	out := *r
	out.Attachments = append([]string(nil), r.Attachments...)
	return out
}
