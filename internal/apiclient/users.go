package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
)

func (c *Client) UpdateUser(ctx context.Context, id string, in dto.UpdateUserRequest) (*models.User, error) {
	req, err := jsonRequest(http.MethodPatch, "/users/"+url.PathEscape(id), in)
	if err != nil {
		return nil, err
	}
	req.auth = true
	data, _, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	// Some backends echo {user: {...}}, others the bare user.
	var wrapped struct {
		User *dto.UserPayload `json:"user"`
	}
	if err := decodeJSON(data, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User.Normalize(), nil
	}
	var p dto.UserPayload
	if err := decodeJSON(data, &p); err != nil {
		return nil, err
	}
	return p.Normalize(), nil
}

func (c *Client) UploadProfileImage(ctx context.Context, id string, image Upload) error {
	image.Field = "image"
	req, err := multipartRequest(http.MethodPost, "/users/"+url.PathEscape(id)+"/profile-image", nil, []Upload{image})
	if err != nil {
		return err
	}
	req.auth = true
	_, _, err = c.do(ctx, req)
	return err
}

func (c *Client) ProfileImage(ctx context.Context, id string) (*Media, error) {
	return c.media(ctx, "/users/"+url.PathEscape(id)+"/profile-image", c.hasToken())
}
