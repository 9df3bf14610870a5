package jwt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Claims is the GitHub App claim set. Field order is the serialization order.
type Claims struct {
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Issuer    string `json:"iss"`
}

// NewAppClaims backdates iat to tolerate clock skew and sets exp relative to now.
func NewAppClaims(appID string, now time.Time, backdate, lifetime time.Duration) Claims {
	unix := now.Unix()
	return Claims{
		IssuedAt:  unix - int64(backdate/time.Second),
		ExpiresAt: unix + int64(lifetime/time.Second),
		Issuer:    appID,
	}
}

// Validate checks exp > iat, the validity window, and the issuer format.
func (c Claims) Validate(maxWindow time.Duration) error {
	if err := validateAppID(c.Issuer); err != nil {
		return err
	}
	if c.ExpiresAt <= c.IssuedAt {
		return fmt.Errorf("%w: exp %d is not after iat %d", ErrInvalidWindow, c.ExpiresAt, c.IssuedAt)
	}
	if maxWindow > 0 && c.ExpiresAt-c.IssuedAt > int64(maxWindow/time.Second) {
		return fmt.Errorf("%w: exp-iat %ds exceeds %s", ErrInvalidWindow, c.ExpiresAt-c.IssuedAt, maxWindow)
	}
	return nil
}

// Expiry returns exp as a time.
func (c Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

func validateAppID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAppID)
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return fmt.Errorf("%w: %q is not numeric", ErrInvalidAppID, id)
	}
	return nil
}
