package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotPermitted       = errors.New("not permitted")
)

type AuthService struct {
	db  *MemoryDB
	cfg *config.Config
	now func() time.Time
}

func NewAuthService(db *MemoryDB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg, now: time.Now}
}

func (s *AuthService) isAdminName(username string) bool {
	for _, name := range s.cfg.SandboxAdminUsers {
		if strings.EqualFold(name, username) {
			return true
		}
	}
	return false
}

func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if len(username) < 3 || len(req.Password) < 6 {
		return nil, errors.New("username must be at least 3 and password at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleUser
	if s.isAdminName(username) {
		role = models.RoleAdmin
	}
	user := &userRecord{
		User: models.User{
			ID:       uuid.NewString(),
			Username: username,
			Email:    strings.TrimSpace(req.Email),
			Role:     role,
		},
		PasswordHash: string(hash),
	}

	s.db.mu.Lock()
	if _, taken := s.db.usernames[usernameKey(username)]; taken {
		s.db.mu.Unlock()
		return nil, ErrUsernameTaken
	}
	s.db.users[user.ID] = user
	s.db.usernames[usernameKey(username)] = user.ID
	s.db.mu.Unlock()

	return s.generateTokenPair(&user.User)
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	s.db.mu.RLock()
	id, ok := s.db.usernames[usernameKey(req.Username)]
	var user userRecord
	if ok {
		user = *s.db.users[id]
	}
	s.db.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.generateTokenPair(&user.User)
}

// Refresh issues a new access token for a live refresh token. The refresh
// token itself is kept.
func (s *AuthService) Refresh(rawToken string) (*dto.AuthResponse, error) {
	s.db.mu.Lock()
	stored, ok := s.db.refreshTokens[hashToken(rawToken)]
	if !ok || stored.Revoked {
		s.db.mu.Unlock()
		return nil, ErrInvalidToken
	}
	if s.now().After(stored.ExpiresAt) {
		stored.Revoked = true
		s.db.mu.Unlock()
		return nil, ErrInvalidToken
	}
	user, ok := s.db.users[stored.UserID]
	var u models.User
	if ok {
		u = user.User
	}
	s.db.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("refresh: %w", ErrUserNotFound)
	}

	access, err := s.generateAccessToken(&u)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{AccessToken: access}, nil
}

func (s *AuthService) Logout(rawToken string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if stored, ok := s.db.refreshTokens[hashToken(rawToken)]; ok {
		stored.Revoked = true
	}
	return nil
}

// UpdateUser edits a profile. Users may edit themselves; admins anyone.
func (s *AuthService) UpdateUser(actor models.User, id string, req *dto.UpdateUserRequest) (*models.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, ErrNotPermitted
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if name := strings.TrimSpace(req.Username); name != "" && !strings.EqualFold(name, user.Username) {
		if _, taken := s.db.usernames[usernameKey(name)]; taken {
			return nil, ErrUsernameTaken
		}
		delete(s.db.usernames, usernameKey(user.Username))
		s.db.usernames[usernameKey(name)] = id
		user.Username = name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = email
	}
	u := user.User
	return &u, nil
}

func (s *AuthService) SetProfileImage(actor models.User, id string, f *File) error {
	if actor.ID != id && !actor.IsAdmin() {
		return ErrNotPermitted
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.ProfileImage = f
	return nil
}

func (s *AuthService) ProfileImage(id string) (*File, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	user, ok := s.db.users[id]
	if !ok || user.ProfileImage == nil {
		return nil, ErrFileNotFound
	}
	return user.ProfileImage, nil
}

func (s *AuthService) generateTokenPair(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: &dto.UserPayload{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Role:      string(user.Role),
			StudentID: user.ID,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.SandboxAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SandboxJWTSecret))
}

func (s *AuthService) generateRefreshToken(user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	s.db.mu.Lock()
	s.db.refreshTokens[hashToken(rawToken)] = &refreshRecord{
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.cfg.SandboxRefreshExpiry),
	}
	s.db.mu.Unlock()

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
