package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIntrospector struct {
	principal *identity.Principal
	err       error
	lastToken string
}

func (s *stubIntrospector) Introspect(_ context.Context, token string) (*identity.Principal, error) {
	s.lastToken = token
	return s.principal, s.err
}

func newProtectedApp(gw Introspector) *fiber.App {
	app := fiber.New()
	app.Get("/me", Authenticated(gw), func(c *fiber.Ctx) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"id": p.ID, "role": p.Role, "token": BearerToken(c)})
	})
	return app
}

func decodeError(t *testing.T, body io.Reader) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestAuthenticatedMissingHeader(t *testing.T) {
	gw := &stubIntrospector{}
	app := newProtectedApp(gw)

	for _, header := range []string{"", "Token abc", "Bearer ", "bearer abc"} {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, header)
		body := decodeError(t, resp.Body)
		assert.Equal(t, MsgMissingAuthHeader, body.Message)
	}
	assert.Empty(t, gw.lastToken)
}

func TestAuthenticatedInvalidToken(t *testing.T) {
	gw := &stubIntrospector{err: apperr.Unauthenticated("Invalid or expired token", nil)}
	app := newProtectedApp(gw)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer stale")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, MsgInvalidToken, decodeError(t, resp.Body).Message)
	assert.Equal(t, "stale", gw.lastToken)
}

func TestAuthenticatedProviderOutageIsStill401(t *testing.T) {
	gw := &stubIntrospector{err: apperr.Internal("Authentication service unavailable", errors.New("dial tcp"))}
	app := newProtectedApp(gw)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticatedAttachesPrincipal(t *testing.T) {
	id := uuid.New()
	gw := &stubIntrospector{principal: &identity.Principal{ID: id, Role: "adult"}}
	app := newProtectedApp(gw)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, id.String(), body["id"])
	assert.Equal(t, "adult", body["role"])
	assert.Equal(t, "good-token", body["token"])
}
