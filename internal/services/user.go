package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/mernauth/authserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

// UserUpdate carries the optional fields of a partial profile update.
// Nil fields are left untouched.
type UserUpdate struct {
	Email       *string
	DisplayName *string
	DateOfBirth *time.Time
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.DisplayName == nil && u.DateOfBirth == nil
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

// Update applies a partial update to the identified user's own record.
func (s *UserService) Update(ctx context.Context, userID string, update UserUpdate) error {
	if update.Empty() {
		return validationErr("body", "update body cannot be empty")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return validationErr("email", "email is not valid")
		}
		if email != user.Email {
			taken, err := s.repo.ExistsByEmail(ctx, email)
			if err != nil {
				return err
			}
			if taken {
				return &ConflictError{Reasons: []string{"email already in use"}}
			}
		}
		user.Email = email
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.DateOfBirth != nil {
		user.DateOfBirth = update.DateOfBirth
	}

	_, err = s.repo.Update(ctx, user)
	return err
}

// SetAvatarKey records the storage key of the user's uploaded avatar.
func (s *UserService) SetAvatarKey(ctx context.Context, userID, key string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.AvatarKey = key
	_, err = s.repo.Update(ctx, user)
	return err
}
