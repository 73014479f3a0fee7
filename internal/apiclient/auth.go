package apiclient

import (
	"context"
	"net/http"

	"github.com/ezfix/portal/internal/dto"
)

func (c *Client) Login(ctx context.Context, username, password string) (*dto.AuthResponse, error) {
	return c.authCall(ctx, "/users/login", dto.LoginRequest{Username: username, Password: password})
}

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	return c.authCall(ctx, "/users/register", req)
}

func (c *Client) authCall(ctx context.Context, path string, payload interface{}) (*dto.AuthResponse, error) {
	req, err := jsonRequest(http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	data, _, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	var resp dto.AuthResponse
	if err := decodeJSON(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token travels as the bearer credential.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrNoToken
	}
	data, _, err := c.do(ctx, request{method: http.MethodPost, path: "/users/refresh", bearer: refreshToken})
	if err != nil {
		return nil, err
	}
	var resp dto.AuthResponse
	if err := decodeJSON(data, &resp); err != nil {
		return nil, err
	}
	if resp.Access() == "" {
		return nil, ErrUnexpectedShape
	}
	return &resp, nil
}

// Logout asks the backend to revoke the refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	req, err := jsonRequest(http.MethodPost, "/users/logout", dto.LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	req.auth = c.hasToken()
	_, _, err = c.send(ctx, req)
	return err
}
