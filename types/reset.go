package types

import "time"

// OtpRecord holds the hashed one-time passcode issued to a user for a
// password reset. At most one live record exists per username; requesting
// a new code overwrites the previous one.
type OtpRecord struct {
	// Username identifies the user the code was issued to.
	Username string `json:"username" db:"username"`

	// OtpHash is the hashed 6-digit code. It is nulled out once the code
	// has been verified so a code can never be replayed.
	OtpHash string `json:"-" db:"otp_hash"`

	// ExpiresAt is the absolute expiry of the code. Expiry is checked
	// lazily at verification time; nothing purges expired records.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// ResetSession tracks an in-progress password-reset flow for one username.
// It is created when an OTP is requested, marked verified when the code
// checks out, and deleted when the reset completes.
type ResetSession struct {
	// Username identifies the user mid-reset.
	Username string `json:"username" db:"username"`

	// Verified is true only between a successful OTP verification and the
	// completion of the password reset.
	Verified bool `json:"verified" db:"verified"`

	// ExpiresAt bounds the lifetime of the session.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
