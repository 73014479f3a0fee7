package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
)

func (c *Client) ListAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	data, _, err := c.do(ctx, request{method: http.MethodGet, path: "/announcements", auth: c.hasToken()})
	if err != nil {
		return nil, err
	}

	var payloads []dto.AnnouncementPayload
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env dto.AnnouncementListEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		payloads = env.Announcements
	} else if err := decodeJSON(trimmed, &payloads); err != nil {
		return nil, err
	}

	out := make([]models.Announcement, 0, len(payloads))
	for i := range payloads {
		out = append(out, payloads[i].Normalize())
	}
	return out, nil
}

// PostAnnouncement uploads title, description and image as multipart form.
func (c *Client) PostAnnouncement(ctx context.Context, title, description string, image Upload) (*models.Announcement, error) {
	image.Field = "image"
	req, err := multipartRequest(http.MethodPost, "/announcements",
		map[string]string{"title": title, "description": description},
		[]Upload{image})
	if err != nil {
		return nil, err
	}
	req.auth = c.hasToken()

	data, _, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var p dto.AnnouncementPayload
	if err := decodeJSON(data, &p); err != nil {
		return nil, err
	}
	a := p.Normalize()
	return &a, nil
}

func (c *Client) AnnouncementImage(ctx context.Context, id string) (*Media, error) {
	return c.media(ctx, "/announcements/"+url.PathEscape(id)+"/image", c.hasToken())
}

func (c *Client) DeleteAnnouncement(ctx context.Context, id string) error {
	_, _, err := c.do(ctx, request{method: http.MethodDelete, path: "/announcements/" + url.PathEscape(id), auth: true})
	return err
}
