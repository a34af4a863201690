package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventry/auth-api/internal/database"
	"github.com/ventry/auth-api/internal/models"
)

func newTestStore(t *testing.T) *GormUserStore {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return NewGormUserStore(db)
}

func TestGormUserStore_InsertAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: "ann@x.com", Name: "Ann", Provider: models.ProviderEmail, IsActive: true}
	require.NoError(t, s.Insert(ctx, user))
	require.NotEqual(t, uuid.Nil, user.ID)

	byEmail, err := s.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.True(t, byEmail.IsActive)
	assert.False(t, byEmail.CreatedAt.IsZero())

	byID, err := s.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", byID.Name)
}

func TestGormUserStore_FindMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormUserStore_InsertDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &models.User{Email: "ann@x.com", Name: "Ann", Provider: models.ProviderEmail}))

	err := s.Insert(ctx, &models.User{Email: "ann@x.com", Name: "Other", Provider: models.ProviderGoogle})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))

	got, err := s.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestGormUserStore_UpdateAppliesOnlySetFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: "ann@x.com", Name: "Ann", Provider: models.ProviderEmail, IsActive: true}
	require.NoError(t, s.Insert(ctx, user))

	provider := models.ProviderGoogle
	subject := "google-123"
	verified := true
	updated, err := s.Update(ctx, user.ID, UserUpdate{
		Provider:       &provider,
		ProviderUserID: &subject,
		IsVerified:     &verified,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProviderGoogle, updated.Provider)
	require.NotNil(t, updated.ProviderUserID)
	assert.Equal(t, "google-123", *updated.ProviderUserID)
	assert.True(t, updated.IsVerified)
	assert.True(t, updated.IsActive)
	assert.False(t, updated.ExclusiveAccess)
	assert.Equal(t, "Ann", updated.Name)
}

func TestGormUserStore_UpdateMissing(t *testing.T) {
	s := newTestStore(t)

	verified := true
	_, err := s.Update(context.Background(), uuid.New(), UserUpdate{IsVerified: &verified})
	assert.ErrorIs(t, err, ErrNotFound)
}
