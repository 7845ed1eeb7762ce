package types

import "time"

// User represents an account in the system.
// It contains identity, credentials, profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, assigned at creation.
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// DisplayName is the user's optional display or full name.
	DisplayName string `json:"displayName,omitempty" db:"display_name"`

	// DateOfBirth is the user's optional date of birth.
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`

	// AvatarKey references the user's avatar object in storage.
	AvatarKey string `json:"avatarKey,omitempty" db:"avatar_key"`

	// Roles lists the role labels granted to the user
	// (e.g., "admin", "user"). New accounts start with {"user"}.
	Roles []string `json:"roles" db:"roles"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
