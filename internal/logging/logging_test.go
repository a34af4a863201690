package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventry/auth-api/internal/database"
	"github.com/ventry/auth-api/internal/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestDBHandler_PersistsOnlyErrors(t *testing.T) {
	db := newTestDB(t)
	h := NewDBHandler(db, time.Hour)
	t.Cleanup(h.Stop)

	logger := slog.New(h).With("request_id", "req-1")
	logger.Info("signup ok")
	logger.Error("request failed", "error", "boom", "path", "/api/auth/login", "user_id", "u-1")
	h.Flush()

	var rows []models.SystemLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "ERROR", row.Level)
	assert.Equal(t, "request failed", row.Message)
	assert.Equal(t, "req-1", row.RequestID)
	assert.Equal(t, "boom", row.Error)
	require.NotNil(t, row.UserID)
	assert.Equal(t, "u-1", *row.UserID)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(row.Extra, &extra))
	assert.Equal(t, "/api/auth/login", extra["path"])
}

func TestMultiHandler_FansOut(t *testing.T) {
	var info, errs bytes.Buffer
	infoHandler := slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	errHandler := slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError})

	logger := slog.New(NewMultiHandler(infoHandler, errHandler))
	logger.Info("hello")
	logger.Error("oops")

	assert.Contains(t, info.String(), "hello")
	assert.Contains(t, info.String(), "oops")
	assert.NotContains(t, errs.String(), "hello")
	assert.Contains(t, errs.String(), "oops")
}

func TestPruneSystemLogs(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	old := models.SystemLog{ID: uuid.New(), Timestamp: now.Add(-40 * 24 * time.Hour), Level: "ERROR", Message: "old"}
	recent := models.SystemLog{ID: uuid.New(), Timestamp: now.Add(-time.Hour), Level: "ERROR", Message: "recent"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	deleted := PruneSystemLogs(db, now.Add(-30*24*time.Hour))
	assert.Equal(t, int64(1), deleted)

	var remaining []models.SystemLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent", remaining[0].Message)
}
