package handlers

import (
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/middleware"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	MsgInvalidBody = "Invalid request body"
	msgInternal    = "Internal server error"
)

// respondError writes err using its apperr kind. Server errors are logged
// and reported, and the client only sees a generic message.
func respondError(c *fiber.Ctx, action string, err error) error {
	e := apperr.From(err)
	status := apperr.Status(e.Kind)

	if status >= fiber.StatusInternalServerError {
		attrs := []any{
			"action", action,
			"request_id", requestID(c),
			"error", err,
		}
		if uid, ok := c.Locals("user_id").(string); ok {
			attrs = append(attrs, "user_id", uid)
		}
		if sid := c.Params("id"); sid != "" && strings.Contains(c.Route().Path, "/stories") {
			attrs = append(attrs, "story_id", sid)
		}
		slog.Error("request failed", attrs...)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}

		msg := e.Message
		if msg == "" {
			msg = msgInternal
		}
		return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
	}

	if len(e.Extra) == 0 {
		return c.Status(status).JSON(dto.ErrorResponse{
			Error: true, Message: e.Message, Errors: e.Details,
		})
	}

	body := fiber.Map{"error": true, "message": e.Message}
	if len(e.Details) > 0 {
		body["errors"] = e.Details
	}
	for k, v := range e.Extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

// principal returns the caller attached by middleware.Authenticated.
func principal(c *fiber.Ctx) (*identity.Principal, error) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return nil, apperr.Unauthenticated(middleware.MsgInvalidToken, nil)
	}
	return p, nil
}

// pathID parses the :id parameter. A malformed id cannot name a row the
// caller owns, so it is reported as not found.
func pathID(c *fiber.Ctx, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFound)
	}
	return id, nil
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
