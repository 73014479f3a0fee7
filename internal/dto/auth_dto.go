package dto

import (
	"strings"

	"github.com/ezfix/portal/internal/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse accepts both backend generations: {accessToken, refreshToken,
// user} and the older {token, user}.
type AuthResponse struct {
	AccessToken  string       `json:"accessToken,omitempty"`
	Token        string       `json:"token,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *UserPayload `json:"user,omitempty"`
}

func (r *AuthResponse) Access() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// UserPayload is a user as the backend sends it; document stores emit _id.
type UserPayload struct {
	ID        string `json:"id,omitempty"`
	MongoID   string `json:"_id,omitempty"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	StudentID string `json:"studentId,omitempty"`
}

// Normalize maps the payload onto the canonical user shape.
func (p *UserPayload) Normalize() *models.User {
	if p == nil {
		return nil
	}
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = strings.TrimSpace(p.MongoID)
	}
	return &models.User{
		ID:       id,
		Username: p.Username,
		Email:    p.Email,
		Role:     models.ParseRole(p.Role),
	}
}

type UpdateUserRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}
