package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ventry/auth-api/internal/dto"
	"github.com/ventry/auth-api/internal/metrics"
	"github.com/ventry/auth-api/internal/models"
)

const tokenTypeBearer = "bearer"

// AuthService runs each authentication flow end to end: credential check or
// provider exchange, reconciliation onto the user row, then token issuance.
type AuthService struct {
	identities *IdentityService
	exclusive  *ExclusiveService
	tokens     *TokenService
	google     *GoogleOAuthProvider
	apple      *AppleOAuthProvider
	metrics    metrics.Recorder
}

func NewAuthService(
	identities *IdentityService,
	exclusive *ExclusiveService,
	tokens *TokenService,
	google *GoogleOAuthProvider,
	apple *AppleOAuthProvider,
	recorder metrics.Recorder,
) *AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AuthService{
		identities: identities,
		exclusive:  exclusive,
		tokens:     tokens,
		google:     google,
		apple:      apple,
		metrics:    recorder,
	}
}

func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	user, err := s.identities.Signup(ctx, SignupIdentity{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.metrics.RecordSignup(outcome(err))
		return nil, err
	}

	s.metrics.RecordSignup("success")
	slog.Info("user signed up", "user_id", user.ID.String())
	return s.issue(user)
}

// Login checks email and password. A matching exclusive_code unlocks
// exclusive access before the token is issued; a mismatching one is ignored.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.identities.Authenticate(ctx, LocalIdentity{Email: req.Email, Password: req.Password})
	if err != nil {
		s.metrics.RecordLogin(models.ProviderEmail, outcome(err))
		return nil, err
	}

	if req.ExclusiveCode != "" {
		redeemed, err := s.exclusive.Redeem(ctx, user, req.ExclusiveCode)
		switch {
		case err == nil:
			user = redeemed
		case errors.Is(err, ErrInvalidExclusiveCode):
		default:
			return nil, err
		}
	}

	s.metrics.RecordLogin(models.ProviderEmail, "success")
	return s.issue(user)
}

func (s *AuthService) RequestExclusiveCode(ctx context.Context, req *dto.ExclusiveCodeRequest) (*dto.ExclusiveCodeResponse, error) {
	user, err := s.identities.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	_, sent, err := s.exclusive.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExclusiveCode(sent)

	verb := "generated"
	if sent {
		verb = "sent"
	}
	return &dto.ExclusiveCodeResponse{
		Message:  fmt.Sprintf("Exclusive code %s for %s", verb, user.Email),
		CodeSent: sent,
	}, nil
}

func (s *AuthService) GoogleAuthorizationURL() string {
	return s.google.AuthorizationURL()
}

func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordLogin(models.ProviderGoogle, outcome(err))
		slog.Warn("google exchange failed", "error", err)
		return nil, err
	}
	return s.federate(ctx, identity)
}

func (s *AuthService) AppleAuthorizationURL() string {
	return s.apple.AuthorizationURL()
}

func (s *AuthService) AppleCallback(ctx context.Context, form *dto.AppleCallbackForm) (*dto.AuthResponse, error) {
	identity, err := s.apple.VerifyIDToken(ctx, form.IDToken, form.User)
	if err != nil {
		s.metrics.RecordLogin(models.ProviderApple, outcome(err))
		slog.Warn("apple token verification failed", "error", err)
		return nil, err
	}
	return s.federate(ctx, identity)
}

func (s *AuthService) federate(ctx context.Context, identity *FederatedIdentity) (*dto.AuthResponse, error) {
	user, err := s.identities.Federate(ctx, *identity)
	if err != nil {
		s.metrics.RecordLogin(identity.Provider, outcome(err))
		return nil, err
	}
	s.metrics.RecordLogin(identity.Provider, "success")
	return s.issue(user)
}

// Authenticate resolves a bearer token's subject to an active user.
func (s *AuthService) Authenticate(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.identities.GetByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.identities.GetByID(ctx, id)
}

func (s *AuthService) UpdateExclusive(ctx context.Context, user *models.User, code string) (*models.User, error) {
	return s.exclusive.Redeem(ctx, user, code)
}

// Tokens exposes the issuer/verifier to the bearer-token middleware.
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

func (s *AuthService) RecordTokenRejection(err error) {
	reason := "malformed"
	switch {
	case errors.Is(err, ErrTokenExpired):
		reason = "expired"
	case errors.Is(err, ErrTokenSignature):
		reason = "signature"
	case errors.Is(err, ErrUnauthenticated) && !errors.Is(err, ErrTokenMalformed):
		reason = "unknown_user"
	}
	s.metrics.RecordTokenRejection(reason)
}

func (s *AuthService) issue(user *models.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   expiresAt,
		User:        dto.NewUserResponse(user),
	}, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUpstreamProvider):
		return "upstream_error"
	default:
		return "error"
	}
}
