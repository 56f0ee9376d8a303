package system

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"go-viz/internal/config"
	"go-viz/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeCounter int

func (c fakeCounter) Len() int { return int(c) }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantState  string
	}{
		{name: "healthy", wantStatus: fiber.StatusOK, wantState: "ok"},
		{name: "database down", pingErr: errors.New("connection refused"), wantStatus: fiber.StatusServiceUnavailable, wantState: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthApi(fakePinger{err: tt.pingErr}, fakeCounter(3)).Setup(app)

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantState, body["status"])
		})
	}
}

func TestDebugMe(t *testing.T) {
	utils.SetSecret("test-secret")
	token, err := utils.GenerateToken("u42", time.Hour)
	require.NoError(t, err)

	app := fiber.New()
	NewDebugApi(NewDebugController(), &config.Config{}).Setup(app)

	req := httptest.NewRequest(fiber.MethodGet, "/api/debug/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "u42", body["user_id"])
	assert.Contains(t, body, "expires_at")
}
