package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/validator"
)

var ErrIncomplete = errors.New("announcement is incomplete")

// MsgIncomplete is shown when any announcement field is missing.
const MsgIncomplete = "Please fill in all fields!"

type AnnouncementAPI interface {
	ListAnnouncements(ctx context.Context) ([]models.Announcement, error)
	PostAnnouncement(ctx context.Context, title, description string, image apiclient.Upload) (*models.Announcement, error)
	AnnouncementImage(ctx context.Context, id string) (*apiclient.Media, error)
	DeleteAnnouncement(ctx context.Context, id string) error
}

// Board is the announcements feed shown on the dashboard.
type Board struct {
	api      AnnouncementAPI
	notifier *Notifier
	validate *validator.Validator
}

func NewBoard(api AnnouncementAPI, notifier *Notifier) *Board {
	return &Board{api: api, notifier: notifier, validate: validator.New()}
}

func (b *Board) List(ctx context.Context) ([]models.Announcement, error) {
	items, err := b.api.ListAnnouncements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return items, nil
}

// Post publishes an announcement. Title, description and image are all
// required.
func (b *Board) Post(ctx context.Context, title, description string, image apiclient.Upload) (*models.Announcement, error) {
	in := validator.AnnouncementInput{
		Title:       title,
		Description: description,
		ImageName:   image.Name,
		ImageSize:   len(image.Data),
	}
	if err := b.validate.Struct(in); err != nil {
		slog.Debug("announcement rejected locally", "error", err)
		return nil, ErrIncomplete
	}

	a, err := b.api.PostAnnouncement(ctx, strings.TrimSpace(title), strings.TrimSpace(description), image)
	if err != nil {
		msg := failureMessage(err, "Failed to post announcement.")
		b.notifier.Error(msg, "")
		return nil, fmt.Errorf("post announcement: %w", err)
	}
	b.notifier.Success("Announcement posted successfully!", "")
	slog.Info("announcement posted", "title", in.Title)
	return a, nil
}

// Image fetches and classifies an announcement's image.
func (b *Board) Image(ctx context.Context, id string) (*Attachment, error) {
	media, err := b.api.AnnouncementImage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("announcement image %s: %w", id, err)
	}
	kind, ct := Classify(media.ContentType, media.Data)
	return &Attachment{FileID: id, Kind: kind, ContentType: ct, Data: media.Data}, nil
}

func (b *Board) Delete(ctx context.Context, id string) error {
	if err := b.api.DeleteAnnouncement(ctx, id); err != nil {
		b.notifier.Error(failureMessage(err, "Failed to delete announcement."), "")
		return fmt.Errorf("delete announcement %s: %w", id, err)
	}
	b.notifier.Success("Announcement deleted.", "")
	return nil
}
