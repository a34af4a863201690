package services

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches digest. An empty digest (OAuth-only
// account) never matches.
func (h *PasswordHasher) Verify(plain, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// ValidatePassword enforces the signup password policy.
func ValidatePassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return validationf("Password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return validationf("Password must be at most %d bytes", maxPasswordBytes)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return validationf("Password must contain at least one uppercase character")
	}
	if !lower {
		return validationf("Password must contain at least one lowercase character")
	}
	if !digit {
		return validationf("Password must contain at least one number")
	}
	if confirm != password {
		return validationf("Passwords don't match")
	}
	return nil
}
