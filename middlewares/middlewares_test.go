package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"coderoast-backend/apperr"
	"coderoast-backend/logger"
	"coderoast-backend/models"
)

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Discard())})
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestAuthRoundTrip(t *testing.T) {
	auth := NewAuth("test-secret", time.Hour)
	app := newApp()
	app.Get("/me", auth.IsAuthenticated(), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	token, err := auth.GenerateJWT("user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-1", string(body))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRejects(t *testing.T) {
	auth := NewAuth("test-secret", time.Hour)
	other, err := NewAuth("other-secret", time.Hour).GenerateJWT("user-1")
	require.NoError(t, err)

	app := newApp()
	app.Get("/me", auth.IsAuthenticated(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	for name, header := range map[string]string{
		"missing":      "",
		"garbage":      "Bearer not-a-jwt",
		"wrong secret": "Bearer " + other,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Unauthorized", decode(t, resp)["error"])
		})
	}
}

func TestErrorHandlerShapes(t *testing.T) {
	app := newApp()
	register := func(path string, err error) {
		app.Get(path, func(c *fiber.Ctx) error { return err })
	}
	register("/api/review/quota", apperr.QuotaExceeded("limit"))
	register("/api/review/invalid", apperr.Validation(map[string][]string{"code": {"Code is required"}}))
	register("/api/review/upstream", apperr.Transport(503, errors.New("down")))
	register("/api/review/db", apperr.Persistence(errors.New("connection reset by 10.0.0.3")))
	register("/api/v1/review/invalid", apperr.FieldError("code", "Code is required"))
	register("/api/v1/review/upstream", apperr.Transport(0, errors.New("timeout")))
	register("/api/v1/review/quota", apperr.QuotaExceeded("limit"))
	register("/api/plain", errors.New("boom"))
	register("/api/fiber", fiber.NewError(http.StatusTeapot, "short and stout"))

	tests := []struct {
		path   string
		status int
		body   map[string]any
	}{
		{"/api/review/quota", 403, map[string]any{"error": "limit", "upgradeRequired": true}},
		{"/api/review/invalid", 400, map[string]any{"error": map[string]any{"code": []any{"Code is required"}}}},
		{"/api/review/upstream", 502, map[string]any{"error": "Failed to review code. Please try again."}},
		{"/api/review/db", 500, map[string]any{"error": "Internal server error"}},
		{"/api/v1/review/invalid", 400, map[string]any{"error": "Code is required"}},
		{"/api/v1/review/upstream", 500, map[string]any{"error": "Failed to review code. Please try again."}},
		{"/api/v1/review/quota", 403, map[string]any{"error": "limit"}},
		{"/api/plain", 500, map[string]any{"error": "Internal server error"}},
		{"/api/fiber", 418, map[string]any{"error": "short and stout"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, decode(t, resp))
		})
	}
}

type stubKeys struct{}

func (stubKeys) Authenticate(_ context.Context, header string) (*models.APIKey, error) {
	switch header {
	case "Bearer good":
		return &models.APIKey{Id: "k1", UserId: "owner"}, nil
	case "Bearer free":
		return nil, apperr.Forbidden("API access requires an active Pro or Team subscription")
	default:
		return nil, apperr.Unauthenticated("Invalid API key")
	}
}

func TestRequireAPIKey(t *testing.T) {
	app := newApp()
	app.Post("/api/v1/review", RequireAPIKey(stubKeys{}), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	for header, want := range map[string]int{"Bearer good": 200, "Bearer free": 403, "": 401} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/review", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, header)
		if want == http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "owner", string(body))
		}
	}
}

// unreachableDB returns a handle whose every query fails to connect.
func unreachableDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(
		postgres.Open("host=127.0.0.1 port=1 user=roast dbname=roast sslmode=disable connect_timeout=1"),
		&gorm.Config{DisableAutomaticPing: true, Logger: gormlogger.Discard},
	)
	require.NoError(t, err)
	return db
}

func TestIdempotencyStoreErrorsAreReported(t *testing.T) {
	db := unreachableDB(t)
	ctx := context.Background()

	assert.ErrorContains(t, releaseKey(ctx, db, 7), "release idempotency key 7")
	assert.ErrorContains(t, completeKey(ctx, db, 7, http.StatusOK, []byte(`{}`)), "complete idempotency key 7")
}

func TestIdempotencyLookupFailureIsServerError(t *testing.T) {
	app := newApp()
	app.Post("/api/reviews", func(c *fiber.Ctx) error {
		c.Locals(localUserID, "u1")
		return c.Next()
	}, Idempotency(unreachableDB(t), logger.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(`{}`))
	req.Header.Set(idempotencyHeader, "k-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

type bindDTO struct {
	Name string `json:"name" validate:"required,min=2"`
}

func TestBindAndValidate(t *testing.T) {
	app := newApp()
	app.Post("/api/things", func(c *fiber.Ctx) error {
		var dto bindDTO
		if err := BindAndValidate(c, &dto); err != nil {
			return err
		}
		return c.SendString(dto.Name)
	})

	send := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/things", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp := send(`{"name":"  Ann  "}`)
	out, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Ann", string(out))

	resp = send(`{"name":" A "}`)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": map[string]any{"name": []any{"name must be at least 2 characters"}}}, decode(t, resp))

	resp = send(`{"name":`)
	assert.Equal(t, 400, resp.StatusCode)
}
