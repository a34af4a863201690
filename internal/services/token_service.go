package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token failures are distinct for logs and tests but all match ErrUnauthenticated.
var (
	ErrTokenMalformed = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrTokenSignature = fmt.Errorf("%w: invalid token signature", ErrUnauthenticated)
	ErrTokenExpired   = fmt.Errorf("%w: token has expired", ErrUnauthenticated)
)

// AccessClaims is the payload of a session token. Subject is the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}
	return id, nil
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) Secret() []byte {
	return s.secret
}

// Issue signs a token for userID that expires after the configured TTL.
func (s *TokenService) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify decodes tokenString, checks its signature and then its expiry.
func (s *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	if err := s.CheckClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// CheckClaims validates decoded claims. It runs even when the decoder has
// already checked exp: a token is expired once now >= exp.
func (s *TokenService) CheckClaims(claims *AccessClaims) error {
	if claims.ExpiresAt == nil {
		return ErrTokenMalformed
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	if _, err := claims.UserID(); err != nil {
		return err
	}
	return nil
}
