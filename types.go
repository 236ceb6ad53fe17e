package identity

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity as seen by
// the token layer. The subject embedded in tokens is the account UUID.
type Identity interface {
	UUID() string
	Username() string
	Email() string
	Role() string
	Channel() string
}

// PasswordHasher is the one-way hash capability used at signup and login.
// Verify against an absent hash always fails.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// SessionAuthenticator is the inbound surface of the session manager.
type SessionAuthenticator interface {
	Login(ctx context.Context, identifier, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	LogoutAccess(ctx context.Context, accessToken string) error
	LogoutRefresh(ctx context.Context, refreshToken string) error
	IsBlacklisted(ctx context.Context, accessToken string) (bool, error)
}

// AccountResolver maps inbound login evidence to a canonical account,
// creating one when the flow allows it.
type AccountResolver interface {
	ResolvePasswordLogin(ctx context.Context, identifier string) (*Account, error)
	ResolveOAuthLogin(ctx context.Context, assertion OAuthAssertion) (*Account, error)
	ResolvePasswordlessLogin(ctx context.Context, assertion PasswordlessAssertion) (*Account, error)
}

// TokenPair is what login, passwordless and refresh flows hand back to
// the boundary layer.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UUID         string `json:"uuid"`
}

// OAuthAssertion is a pre-verified identity assertion from an OAuth
// provider handshake. The handshake itself happens outside this module.
type OAuthAssertion struct {
	Email   string
	Name    string
	Channel string
}

// PasswordlessAssertion is a pre-verified assertion from a phone-based
// OTP provider callback.
type PasswordlessAssertion struct {
	Email   string
	Phone   string
	Channel string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
