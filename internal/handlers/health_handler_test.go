package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventry/auth-api/internal/database"
	"github.com/ventry/auth-api/internal/dto"
)

func checkHealth(t *testing.T, h *HealthHandler) dto.HealthResponse {
	t.Helper()
	app := fiber.New()
	app.Get("/health", h.Check)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthHandler_Check(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	body := checkHealth(t, NewHealthHandler(db))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.DB)
	assert.NotEmpty(t, body.Timestamp)
}

func TestHealthHandler_DatabaseDownHidesError(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, database.Close(db))

	body := checkHealth(t, NewHealthHandler(db))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "unhealthy", body.DB)
	assert.NotContains(t, body.DB, "closed")
}
