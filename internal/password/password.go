package password

import (
	"github.com/mernauth/authserver/config"
	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt with a work factor fixed at configuration time.
// The same hasher is used for passwords and for one-time passcodes.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher. Costs outside bcrypt's supported range
// fall back to the library default.
func NewHasher(cfg config.PasswordConfig) *Hasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash produces a one-way digest of the plaintext. A failure here is an
// infrastructure error, not a validation error.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the digest.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
