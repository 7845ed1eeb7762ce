package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mernauth/authserver/internal/mailer"
	"github.com/mernauth/authserver/internal/otp"
	"github.com/mernauth/authserver/internal/password"
	"github.com/mernauth/authserver/internal/store"
	"github.com/mernauth/authserver/internal/token"
	"github.com/mernauth/authserver/types"
)

const (
	defaultUserRole = "user"

	// otpTTL bounds both the passcode and its reset session. Expiry is
	// checked lazily; nothing purges expired records.
	otpTTL = time.Hour
)

// OtpRepository defines persistence operations for one-time passcodes.
type OtpRepository interface {
	Upsert(ctx context.Context, record types.OtpRecord) error
	GetByUsername(ctx context.Context, username string) (types.OtpRecord, error)
	ClearSecret(ctx context.Context, username string) error
}

// ResetSessionRepository defines persistence operations for reset sessions.
type ResetSessionRepository interface {
	Upsert(ctx context.Context, session types.ResetSession) error
	GetByUsername(ctx context.Context, username string) (types.ResetSession, error)
	MarkVerified(ctx context.Context, username string) error
	Delete(ctx context.Context, username string) error
}

// AuthService orchestrates registration, login, token refresh, and the
// OTP password-reset protocol.
type AuthService struct {
	users    *UserService
	otps     OtpRepository
	sessions ResetSessionRepository
	hasher   *password.Hasher
	policy   *password.Policy
	tokens   *token.Issuer
	mail     mailer.Mailer

	now func() time.Time
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(
	users *UserService,
	otps OtpRepository,
	sessions ResetSessionRepository,
	hasher *password.Hasher,
	policy *password.Policy,
	tokens *token.Issuer,
	mail mailer.Mailer,
) *AuthService {
	return &AuthService{
		users:    users,
		otps:     otps,
		sessions: sessions,
		hasher:   hasher,
		policy:   policy,
		tokens:   tokens,
		mail:     mail,
		now:      time.Now,
	}
}

// AuthResult carries the outcome of an operation that establishes a session.
type AuthResult struct {
	User         types.User
	AccessToken  string
	RefreshToken string
}

// Register validates the request, checks username and email uniqueness
// exhaustively, persists the user, and issues a token pair.
func (s *AuthService) Register(ctx context.Context, username, email, plaintext string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return AuthResult{}, validationErr("username", "username is required")
	}
	if email == "" {
		return AuthResult{}, validationErr("email", "email is required")
	}
	if plaintext == "" {
		return AuthResult{}, validationErr("password", "password is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, validationErr("email", "email is not valid")
	}
	if err := s.policy.Validate(plaintext); err != nil {
		return AuthResult{}, validationErr("password", err.Error())
	}

	usernameExists, err := s.users.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return AuthResult{}, err
	}
	emailExists, err := s.users.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if usernameExists || emailExists {
		conflict := &ConflictError{}
		if usernameExists {
			conflict.Reasons = append(conflict.Reasons, "username unavailable")
		}
		if emailExists {
			conflict.Reasons = append(conflict.Reasons, "email already in use")
		}
		return AuthResult{}, conflict
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Roles:        []string{defaultUserRole},
		PasswordHash: hash,
	})
	if err != nil {
		return AuthResult{}, err
	}

	return s.issueTokenPair(user)
}

// Login verifies credentials and issues a token pair. An unknown username
// surfaces as store.ErrNotFound, a wrong password as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, plaintext string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return AuthResult{}, validationErr("username", "username is required")
	}
	if plaintext == "" {
		return AuthResult{}, validationErr("password", "password is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return AuthResult{}, err
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issueTokenPair(user)
}

// Refresh verifies a refresh token and issues a new access token. The user
// is re-fetched so tokens for deleted or renamed accounts stop working
// before the token itself expires. Refresh tokens are not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	identity, err := s.tokens.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return "", ErrSessionExpired
	}

	user, err := s.users.GetByUsername(ctx, identity.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}

	return s.tokens.IssueAccess(token.Identity{UserID: user.ID, Username: user.Username})
}

// RequestOtp starts the password-reset flow: it generates a 6-digit code,
// stores its hash with a 1-hour expiry (overwriting any earlier live code),
// opens an unverified reset session, and emails the code to the user.
func (s *AuthService) RequestOtp(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return validationErr("username", "username is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(otpTTL)
	if err := s.otps.Upsert(ctx, types.OtpRecord{
		Username:  user.Username,
		OtpHash:   hash,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}
	if err := s.sessions.Upsert(ctx, types.ResetSession{
		Username:  user.Username,
		Verified:  false,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	return s.mail.Send(ctx, user.Email, mailer.ResetSubject, mailer.ResetBody(user.Username, code))
}

// VerifyOtp checks the submitted code against the live OTP record. It
// requires a reset session opened by RequestOtp; out-of-order calls fail
// closed. A verified code is single-use: its secret is cleared here.
func (s *AuthService) VerifyOtp(ctx context.Context, username, code string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrNoResetSession
	}

	session, err := s.sessions.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoResetSession
		}
		return err
	}
	if session.ExpiresAt.Before(s.now()) {
		return ErrNoResetSession
	}

	if code == "" {
		return validationErr("otp", "otp is required")
	}

	record, err := s.otps.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOtpInvalid
		}
		return err
	}
	if record.ExpiresAt.Before(s.now()) {
		return ErrOtpExpired
	}
	if !s.hasher.Verify(code, record.OtpHash) {
		return ErrOtpInvalid
	}

	if err := s.otps.ClearSecret(ctx, username); err != nil {
		return err
	}
	return s.sessions.MarkVerified(ctx, username)
}

// ResetPassword completes the flow. It requires a verified, unexpired reset
// session; once that gate passes the session is consumed unconditionally,
// whether or not the remaining validation succeeds.
func (s *AuthService) ResetPassword(ctx context.Context, username, plaintext, confirm string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrNoResetSession
	}

	session, err := s.sessions.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoResetSession
		}
		return err
	}
	if !session.Verified || session.ExpiresAt.Before(s.now()) {
		return ErrNoResetSession
	}

	// Past the authentication gate the session must never survive, even
	// when validation below fails.
	defer func() {
		_ = s.sessions.Delete(context.WithoutCancel(ctx), username)
	}()

	if plaintext == "" || confirm == "" {
		return validationErr("password", "all fields are required")
	}
	if plaintext != confirm {
		return validationErr("confirmPassword", "passwords do not match")
	}
	if err := s.policy.Validate(plaintext); err != nil {
		return validationErr("password", err.Error())
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	return s.users.repo.UpdatePassword(ctx, username, hash)
}

func (s *AuthService) issueTokenPair(user types.User) (AuthResult, error) {
	identity := token.Identity{UserID: user.ID, Username: user.Username}

	accessToken, err := s.tokens.IssueAccess(identity)
	if err != nil {
		return AuthResult{}, err
	}
	refreshToken, err := s.tokens.IssueRefresh(identity)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
