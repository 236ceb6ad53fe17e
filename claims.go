package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the read surface over a decoded claim set.
type Claims interface {
	Subject() string
	AccountUUID() string
	Role() string
	Channel() string
	Expires() time.Time
	Issued() time.Time
}

// IdentityClaims is the signed payload of every issued token. The
// subject is the account UUID; email is descriptive only and never used
// for validation, so tokens survive identifier changes.
type IdentityClaims struct {
	jwt.RegisteredClaims
	UUID         string `json:"uuid,omitempty"`
	AccountRole  string `json:"role,omitempty"`
	LoginChannel string `json:"loginChannel,omitempty"`
	EmailAddress string `json:"email,omitempty"`
}

var _ Claims = (*IdentityClaims)(nil)

// Subject returns the subject claim
func (c *IdentityClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountUUID returns the owning account's uuid, falling back to the
// subject for tokens minted before the uuid claim existed.
func (c *IdentityClaims) AccountUUID() string {
	if c.UUID != "" {
		return c.UUID
	}
	return c.Subject()
}

// Role returns the role claim
func (c *IdentityClaims) Role() string {
	return c.AccountRole
}

// Channel returns the login channel claim
func (c *IdentityClaims) Channel() string {
	return c.LoginChannel
}

// Expires returns the expiration time
func (c *IdentityClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *IdentityClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
