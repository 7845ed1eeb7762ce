package password

import (
	"fmt"
	"unicode"

	"github.com/mernauth/authserver/config"
)

// Policy is the strength policy applied to new passwords at registration
// and at password reset. Thresholds come from configuration.
type Policy struct {
	minLength     int
	requireUpper  bool
	requireLower  bool
	requireDigit  bool
	requireSymbol bool
}

// NewPolicy constructs a Policy from config.
func NewPolicy(cfg config.PasswordConfig) *Policy {
	return &Policy{
		minLength:     cfg.MinLength,
		requireUpper:  cfg.RequireUpper,
		requireLower:  cfg.RequireLower,
		requireDigit:  cfg.RequireDigit,
		requireSymbol: cfg.RequireSymbol,
	}
}

// Validate returns a descriptive error for the first policy rule the
// candidate password fails, or nil when it passes.
func (p *Policy) Validate(plaintext string) error {
	if len(plaintext) < p.minLength {
		return fmt.Errorf("password must be at least %d characters", p.minLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if p.requireUpper && !hasUpper {
		return fmt.Errorf("password must contain an uppercase letter")
	}
	if p.requireLower && !hasLower {
		return fmt.Errorf("password must contain a lowercase letter")
	}
	if p.requireDigit && !hasDigit {
		return fmt.Errorf("password must contain a digit")
	}
	if p.requireSymbol && !hasSymbol {
		return fmt.Errorf("password must contain a symbol")
	}
	return nil
}
