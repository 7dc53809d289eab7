package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/gofiber/fiber/v2"
)

const (
	principalKey = "principal"

	MsgMissingAuthHeader = "Missing or invalid Authorization header"
	MsgInvalidToken      = "Invalid or expired token"
)

type Introspector interface {
	Introspect(ctx context.Context, token string) (*identity.Principal, error)
}

// Authenticated resolves the bearer token to a Principal and stores it on
// the request. Every failure is a 401.
func Authenticated(gw Introspector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return unauthorized(c, MsgMissingAuthHeader)
		}

		principal, err := gw.Introspect(c.UserContext(), token)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthenticated) {
				slog.Error("token introspection failed",
					"action", "authenticate",
					"request_id", requestID(c),
					"error", err,
				)
			}
			return unauthorized(c, MsgInvalidToken)
		}

		c.Locals(principalKey, principal)
		c.Locals("user_id", principal.ID.String())
		return c.Next()
	}
}

// GetPrincipal returns the caller attached by Authenticated.
func GetPrincipal(c *fiber.Ctx) (*identity.Principal, bool) {
	p, ok := c.Locals(principalKey).(*identity.Principal)
	return p, ok && p != nil
}

// BearerToken returns the raw token of an authenticated request.
func BearerToken(c *fiber.Ctx) string {
	token, _ := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	return strings.TrimSpace(token)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
