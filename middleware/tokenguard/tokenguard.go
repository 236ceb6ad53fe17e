// Package tokenguard is the request-authentication filter: it extracts
// a bearer token, rejects blacklisted tokens before trusting their
// claims, and publishes the verified claims on the request context.
package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-print"
)

var (
	defaultTokenLookup       = "header:" + fiber.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

	timeNow = time.Now
)

// TokenValidator decodes and verifies raw tokens. It mirrors the
// TokenCodec surface so tests can swap in a fake.
type TokenValidator interface {
	Parse(tokenString string) (identity.Claims, error)
	IsExpired(claims identity.Claims) bool
}

// BlacklistChecker answers whether a raw token has been revoked. It
// mirrors SessionManager.IsBlacklisted.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// CodecValidator adapts an identity.TokenCodec to the TokenValidator
// interface.
type CodecValidator struct {
	Codec *identity.TokenCodec
}

func (v CodecValidator) Parse(tokenString string) (identity.Claims, error) {
	return v.Codec.Parse(tokenString)
}

func (v CodecValidator) IsExpired(claims identity.Claims) bool {
	if ic, ok := claims.(*identity.IdentityClaims); ok {
		return v.Codec.IsExpired(ic)
	}
	return !claims.Expires().After(timeNow())
}

var _ TokenValidator = CodecValidator{}

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string

	// TokenValidator is required for token validation
	TokenValidator TokenValidator
	// Blacklist is optional; when set, revoked tokens are rejected
	// before their claims are inspected
	Blacklist BlacklistChecker

	// RequiredRole specifies an exact role that must be present
	RequiredRole string

	// ContextEnricher is an optional function to propagate claims to the
	// standard Go context. If provided, it will be called after
	// successful token validation.
	ContextEnricher func(c context.Context, claims identity.Claims) context.Context

	// Debug dumps accepted claims to stdout
	Debug bool
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawToken(c, cfg.getExtractors())
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		// Revocation wins over everything else: a blacklisted token is
		// dead even when its signature and expiry still check out.
		if cfg.Blacklist != nil {
			revoked, err := cfg.Blacklist.IsBlacklisted(c.UserContext(), raw)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}
			if revoked {
				return cfg.ErrorHandler(c, identity.ErrTokenBlacklisted)
			}
		}

		claims, err := cfg.TokenValidator.Parse(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if cfg.TokenValidator.IsExpired(claims) {
			return cfg.ErrorHandler(c, identity.ErrTokenExpired)
		}

		if cfg.RequiredRole != "" && claims.Role() != cfg.RequiredRole {
			return cfg.ErrorHandler(c, identity.ErrForbiddenRole)
		}

		if cfg.Debug {
			fmt.Println(print.MaybePrettyJSON(map[string]any{
				"uuid":    claims.AccountUUID(),
				"role":    claims.Role(),
				"channel": claims.Channel(),
			}))
		}

		c.Locals(cfg.ContextKey, claims)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if err.Error() == ErrJWTMissingOrMalformed.Error() || identity.IsMalformedError(err) {
				return c.Status(fiber.StatusBadRequest).SendString(ErrJWTMissingOrMalformed.Error())
			}
			return c.Status(fiber.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.TokenValidator == nil {
		panic("IDENTITY: token guard configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "identity"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = identity.WithClaimsContext
	}

	return cfg
}

// GetClaims extracts verified claims stored by the guard on the fiber
// context.
func GetClaims(c *fiber.Ctx, key string) (identity.Claims, bool) {
	if key == "" {
		key = "identity"
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(identity.Claims)
	return claims, ok
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func ExtractRawToken(c *fiber.Ctx, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c *fiber.Ctx) (string, error)

// tokenFromHeader returns a function that extracts token from the request header.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// tokenFromQuery returns a function that extracts token from the query string.
func tokenFromQuery(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts token from the named cookie.
func tokenFromCookie(name string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
