package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/ventry/auth-api/internal/models"
	"github.com/ventry/auth-api/internal/store"
)

// LocalIdentity is an email/password credential presented at login.
type LocalIdentity struct {
	Email    string
	Password string
}

// SignupIdentity is a new email/password account request.
type SignupIdentity struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// FederatedIdentity is an identity asserted by an OAuth provider that has
// already confirmed the email address.
type FederatedIdentity struct {
	Email          string
	Name           string
	Provider       string
	ProviderUserID string
}

// IdentityService maps every credential onto the single user row for its email.
type IdentityService struct {
	users  store.UserStore
	hasher *PasswordHasher
}

func NewIdentityService(users store.UserStore, hasher *PasswordHasher) *IdentityService {
	return &IdentityService{users: users, hasher: hasher}
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return validationf("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationf("Invalid email address")
	}
	return nil
}

// Authenticate checks a local credential. It never creates accounts.
func (s *IdentityService) Authenticate(ctx context.Context, id LocalIdentity) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(id.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(id.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Signup validates input, hashes the password and inserts a new user.
// The unique email index decides concurrent signups for the same address.
func (s *IdentityService) Signup(ctx context.Context, id SignupIdentity) (*models.User, error) {
	email := NormalizeEmail(id.Email)
	name := strings.TrimSpace(id.Name)

	if name == "" {
		return nil, validationf("Name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(id.Password, id.ConfirmPassword); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(id.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     models.ProviderEmail,
		IsActive:     true,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Federate finds or creates the user for a provider-verified email and
// records the provider as the latest one used.
func (s *IdentityService) Federate(ctx context.Context, id FederatedIdentity) (*models.User, error) {
	email := NormalizeEmail(id.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if id.ProviderUserID == "" {
		return nil, validationf("Missing %s subject identifier", id.Provider)
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.linkProvider(ctx, user, id)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	subject := id.ProviderUserID
	user = &models.User{
		Email:          email,
		Name:           name,
		Provider:       id.Provider,
		ProviderUserID: &subject,
		IsActive:       true,
		IsVerified:     true,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create %s user: %w", id.Provider, err)
		}
		// Lost a race with another request for the same email.
		existing, findErr := s.users.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, fmt.Errorf("failed to look up user: %w", findErr)
		}
		return s.linkProvider(ctx, existing, id)
	}
	return user, nil
}

func (s *IdentityService) linkProvider(ctx context.Context, user *models.User, id FederatedIdentity) (*models.User, error) {
	provider := id.Provider
	subject := id.ProviderUserID
	verified := true

	updated, err := s.users.Update(ctx, user.ID, store.UserUpdate{
		Provider:       &provider,
		ProviderUserID: &subject,
		IsVerified:     &verified,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to link %s identity: %w", provider, err)
	}
	return updated, nil
}

func (s *IdentityService) GetByID(ctx context.Context, id string) (*models.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

func (s *IdentityService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}
