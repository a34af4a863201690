package models

import (
	"time"

	"github.com/google/uuid"
)

// Authentication providers a user can have signed in with last.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

// User is the single identity record per email address.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string    `gorm:"not null;size:255;uniqueIndex:idx_users_email" json:"email"`
	Name            string    `gorm:"size:255" json:"name"`
	PasswordHash    string    `gorm:"size:255" json:"-"`
	Provider        string    `gorm:"size:20;not null" json:"provider"`
	ProviderUserID  *string   `gorm:"size:255" json:"-"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	IsVerified      bool      `gorm:"not null" json:"is_verified"`
	ExclusiveAccess bool      `gorm:"not null" json:"exclusive_access"`
	ExclusiveCode   *string   `gorm:"size:32" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
