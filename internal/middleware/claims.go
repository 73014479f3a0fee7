package middleware

import (
	"errors"

	"github.com/ezfix/portal/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var errNoClaims = errors.New("invalid token in context")

func claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errNoClaims
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return mc, nil
}

// CurrentUser rebuilds the caller from the verified JWT claims.
func CurrentUser(c *fiber.Ctx) (models.User, error) {
	mc, err := claims(c)
	if err != nil {
		return models.User{}, err
	}
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return models.User{}, errors.New("missing sub claim")
	}
	username, _ := mc["username"].(string)
	email, _ := mc["email"].(string)
	role, _ := mc["role"].(string)
	return models.User{
		ID:       sub,
		Username: username,
		Email:    email,
		Role:     models.ParseRole(role),
	}, nil
}
