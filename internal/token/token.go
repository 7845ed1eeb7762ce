package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mernauth/authserver/config"
)

// Kind distinguishes the two token lifetimes. Each kind is signed with its
// own secret, so a token of one kind never verifies as the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// kind, expired, malformed. Callers never learn which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the claim payload carried by both token kinds.
type Identity struct {
	UserID   string
	Username string
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer creates and verifies signed, time-bound access and refresh tokens.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewIssuer constructs an Issuer from config.
func NewIssuer(cfg config.TokenConfig) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// IssueAccess signs a short-lived access token for the identity.
func (i *Issuer) IssueAccess(id Identity) (string, error) {
	return i.issue(id, i.accessSecret, i.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the identity.
func (i *Issuer) IssueRefresh(id Identity) (string, error) {
	return i.issue(id, i.refreshSecret, i.refreshTTL)
}

func (i *Issuer) issue(id Identity, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	tokenClaims := claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	return token.SignedString(secret)
}

// Verify checks the token against the named kind's secret and returns the
// embedded identity. Any failure is reported as ErrInvalidToken.
func (i *Issuer) Verify(tokenString string, kind Kind) (Identity, error) {
	secret := i.accessSecret
	if kind == KindRefresh {
		secret = i.refreshSecret
	}

	parsed := claims{}
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if strings.TrimSpace(parsed.Subject) == "" || strings.TrimSpace(parsed.Username) == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: parsed.Subject, Username: parsed.Username}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// RefreshTTL reports the configured refresh-token lifetime. The refresh
// cookie's Max-Age is derived from it.
func (i *Issuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}
