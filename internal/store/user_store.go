package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ventry/auth-api/internal/database"
	"github.com/ventry/auth-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("unique constraint violated")
)

// UserUpdate lists the mutable columns of a user. Nil fields are left as they are.
type UserUpdate struct {
	Provider        *string
	ProviderUserID  *string
	IsVerified      *bool
	ExclusiveAccess *bool
	ExclusiveCode   *string
}

func (u UserUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Provider != nil {
		cols["provider"] = *u.Provider
	}
	if u.ProviderUserID != nil {
		cols["provider_user_id"] = *u.ProviderUserID
	}
	if u.IsVerified != nil {
		cols["is_verified"] = *u.IsVerified
	}
	if u.ExclusiveAccess != nil {
		cols["exclusive_access"] = *u.ExclusiveAccess
	}
	if u.ExclusiveCode != nil {
		cols["exclusive_code"] = *u.ExclusiveCode
	}
	return cols
}

// UserStore persists user identity records keyed by id and by email.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// Insert fails with ErrDuplicate when the email is already taken.
	Insert(ctx context.Context, user *models.User) error
	// Update applies the non-nil fields and returns the stored row.
	Update(ctx context.Context, id uuid.UUID, update UserUpdate) (*models.User, error)
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) Insert(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *GormUserStore) Update(ctx context.Context, id uuid.UUID, update UserUpdate) (*models.User, error) {
	cols := update.columns()
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(cols) > 0 {
			result := tx.Model(&models.User{}).Where("id = ?", id).Updates(cols)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.First(&user, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

// compile-time interface check
var _ UserStore = (*GormUserStore)(nil)
