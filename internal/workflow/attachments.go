package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/gabriel-vasile/mimetype"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaOther MediaKind = "other"
)

// Attachment is a resolved file held for as long as a detail view needs it.
type Attachment struct {
	ReportID    string
	FileID      string
	Kind        MediaKind
	ContentType string
	Data        []byte
}

func (a *Attachment) Size() int {
	return len(a.Data)
}

type AttachmentFetcher interface {
	Attachment(ctx context.Context, reportID, fileID string) (*apiclient.Media, error)
}

// AttachmentCache resolves attachments on demand and keeps them, keyed by
// file id, until released.
type AttachmentCache struct {
	fetch AttachmentFetcher

	mu      sync.Mutex
	entries map[string]*Attachment
}

func NewAttachmentCache(fetch AttachmentFetcher) *AttachmentCache {
	return &AttachmentCache{fetch: fetch, entries: make(map[string]*Attachment)}
}

func (c *AttachmentCache) Resolve(ctx context.Context, reportID, fileID string) (*Attachment, error) {
	c.mu.Lock()
	if a, ok := c.entries[fileID]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	media, err := c.fetch.Attachment(ctx, reportID, fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve attachment %s: %w", fileID, err)
	}
	kind, contentType := Classify(media.ContentType, media.Data)
	a := &Attachment{
		ReportID:    reportID,
		FileID:      fileID,
		Kind:        kind,
		ContentType: contentType,
		Data:        media.Data,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[fileID]; ok {
		return existing, nil
	}
	c.entries[fileID] = a
	return a, nil
}

func (c *AttachmentCache) Release(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.entries[fileID]; ok {
		a.Data = nil
		delete(c.entries, fileID)
	}
}

func (c *AttachmentCache) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 {
		slog.Debug("releasing attachments", "count", len(c.entries))
	}
	for id, a := range c.entries {
		a.Data = nil
		delete(c.entries, id)
	}
}

func (c *AttachmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Classify picks image or video from the Content-Type prefix, sniffing the
// bytes when the header is missing or generic.
func Classify(contentType string, data []byte) (MediaKind, string) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") || strings.HasPrefix(ct, "binary/") {
		ct = mimetype.Detect(data).String()
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return MediaImage, ct
	case strings.HasPrefix(ct, "video/"):
		return MediaVideo, ct
	}
	return MediaOther, ct
}
