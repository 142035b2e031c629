package password

import (
	"fmt"
	"unicode"
)

// Policy is the registration password policy. Zero value accepts anything
// non-empty.
type Policy struct {
	MinLength    int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
}

// Check returns a descriptive error when plain violates the policy.
func (p Policy) Check(plain string) error {
	if len(plain) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters", p.MinLength)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if p.RequireUpper && !hasUpper {
		return fmt.Errorf("password must contain an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		return fmt.Errorf("password must contain a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		return fmt.Errorf("password must contain a digit")
	}
	return nil
}
