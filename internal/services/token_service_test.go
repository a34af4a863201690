package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	svc := NewTokenService("super-secret", 30*time.Minute).WithClock(clock.Now)
	userID := uuid.New()

	tok, expiresAt, err := svc.Issue(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, clock.now.Add(30*time.Minute), expiresAt, 0)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	// Decoded times come back in time.Local; compare instants.
	assert.WithinDuration(t, clock.now, claims.IssuedAt.Time, 0)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, 0)
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	svc := NewTokenService("secret", time.Minute).WithClock(clock.Now)

	tok, _, err := svc.Issue(uuid.New())
	require.NoError(t, err)

	clock.now = clock.now.Add(59 * time.Second)
	_, err = svc.Verify(tok)
	require.NoError(t, err, "token must be valid one second before exp")

	clock.now = clock.now.Add(time.Second)
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired, "now == exp is expired")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	clock.now = clock.now.Add(time.Hour)
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := NewTokenService("right-secret", time.Hour).Issue(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenService("wrong-secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrTokenSignature)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenService_Malformed(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("k", time.Hour)
	for _, raw := range []string{"", "not.a.jwt", "garbage", "a.b"} {
		_, err := svc.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenMalformed, "input %q", raw)
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("k", time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenService_MissingExpOrSubject(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("k", time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: uuid.NewString(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = svc.Verify(noExp)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = svc.Verify(badSub)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
