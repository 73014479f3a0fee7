package session

import (
	"strings"
	"time"

	"github.com/ezfix/portal/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims reads the payload of an access token without verifying its
// signature. The client cannot verify it and only uses the claims as hints.
func tokenClaims(token string) (jwt.MapClaims, bool) {
	if strings.Count(token, ".") != 2 {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// tokenExpired is true only for a JWT whose exp lies before now+leeway.
// Opaque tokens and tokens without exp are assumed live; a 401 settles it.
func tokenExpired(token string, now time.Time, leeway time.Duration) bool {
	claims, ok := tokenClaims(token)
	if !ok {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Add(leeway).Before(exp.Time)
}

// userFromToken rebuilds a user from the identity claims of an access token.
func userFromToken(token string) *models.User {
	claims, ok := tokenClaims(token)
	if !ok {
		return nil
	}
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}

	id := str("id")
	if id == "" {
		id = str("_id")
	}
	if id == "" {
		id, _ = claims.GetSubject()
	}
	u := &models.User{
		ID:       id,
		Username: str("username"),
		Email:    str("email"),
		Role:     models.ParseRole(str("role")),
	}
	if !u.Valid() {
		return nil
	}
	return u
}
