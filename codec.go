package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec mints and verifies the compact signed tokens that carry a
// claim set. Signing is symmetric HMAC-SHA256 keyed by a single secret
// configured at construction. Minting and parsing are pure CPU work with
// no shared state, so a single codec may be used from any goroutine.
type TokenCodec struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenCodec creates a codec from the injected configuration.
func NewTokenCodec(cfg Config, logger Logger) *TokenCodec {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenCodec{
		signingKey: []byte(cfg.SigningKey),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		audience:   jwt.ClaimStrings(cfg.Audience),
		logger:     logger,
	}
}

// AccessTTL exposes the configured access-token lifetime.
func (tc *TokenCodec) AccessTTL() time.Duration { return tc.accessTTL }

// RefreshTTL exposes the configured refresh-token lifetime.
func (tc *TokenCodec) RefreshTTL() time.Duration { return tc.refreshTTL }

// MintAccess issues a short-lived access token for the identity.
func (tc *TokenCodec) MintAccess(identity Identity) (string, error) {
	return tc.Mint(identity, tc.accessTTL)
}

// MintRefresh issues a long-lived refresh token for the identity.
func (tc *TokenCodec) MintRefresh(identity Identity) (string, error) {
	return tc.Mint(identity, tc.refreshTTL)
}

// Mint serializes a fresh claim set for the identity and signs it.
// Refreshing always mints a new claim set, never mutates one.
func (tc *TokenCodec) Mint(identity Identity, ttl time.Duration) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}
	if ttl <= 0 {
		return "", goerrors.New("token TTL must be positive", goerrors.CategoryBadInput)
	}

	now := time.Now()

	var aud jwt.ClaimStrings
	if len(tc.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(tc.audience))
		copy(aud, tc.audience)
	}

	claims := &IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tc.issuer,
			Subject:   identity.UUID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UUID:         identity.UUID(),
		AccountRole:  identity.Role(),
		LoginChannel: identity.Channel(),
		EmailAddress: identity.Email(),
	}

	return tc.SignClaims(claims)
}

// SignClaims signs an arbitrary claim set using the configured key.
func (tc *TokenCodec) SignClaims(claims *IdentityClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(tc.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Parse verifies structure and signature and returns the decoded claim
// set. It does NOT reject expired tokens; expiry is a separate, explicit
// check so callers can distinguish "tampered" from "just old".
func (tc *TokenCodec) Parse(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			tc.logger.Error("TokenCodec parse encountered unexpected signing method: %v", t.Header["alg"])
			return nil, ErrInvalidSignature
		}
		return tc.signingKey, nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, goerrors.Wrap(err, ErrInvalidSignature.Category, ErrInvalidSignature.Message).
				WithTextCode(ErrInvalidSignature.TextCode)
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok {
		tc.logger.Error("TokenCodec parse could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// IsExpired reports whether the claim set's exp is in the past.
func (tc *TokenCodec) IsExpired(claims *IdentityClaims) bool {
	if claims == nil {
		return true
	}
	exp := claims.Expires()
	return exp.IsZero() || exp.Before(time.Now())
}

// IsValidFor is the single predicate gating acceptance of a presented
// token: parse succeeds, the subject matches, and the token is not
// expired.
func (tc *TokenCodec) IsValidFor(tokenString, expectedSubject string) bool {
	claims, err := tc.Parse(tokenString)
	if err != nil {
		return false
	}
	if claims.Subject() != expectedSubject {
		return false
	}
	return !tc.IsExpired(claims)
}
