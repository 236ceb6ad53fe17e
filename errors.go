package identity

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeTokenMalformed     = "MALFORMED_TOKEN"
	textCodeInvalidSignature   = "INVALID_TOKEN_SIGNATURE"
	textCodeTokenExpired       = "TOKEN_EXPIRED"
	textCodeInvalidToken       = "INVALID_TOKEN"
	textCodeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	textCodeTokenBlacklisted   = "TOKEN_BLACKLISTED"
	textCodeForbiddenRole      = "FORBIDDEN_ROLE"
	textCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	textCodeAccountUnavailable = "ACCOUNT_STORE_UNAVAILABLE"
	textCodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	textCodeInvalidRole        = "INVALID_ROLE"
	textCodeInvalidChannel     = "INVALID_LOGIN_CHANNEL"
	textCodeMissingEmail       = "MISSING_EMAIL"
	textCodeMissingPhone       = "MISSING_PHONE_OR_CHANNEL"
	textCodeUsernameExhausted  = "USERNAME_GENERATION_EXHAUSTED"
)

// ErrInvalidCredentials covers both wrong password and unknown
// identifier at login. The two cases are deliberately not distinguished
// so callers cannot enumerate identifiers.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be decoded at all.
var ErrTokenMalformed = goerrors.New("malformed token", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidSignature is returned when a token decodes but its signature
// does not verify against the configured secret. A tampered token is a
// security event, distinct from routine expiry.
var ErrInvalidSignature = goerrors.New("invalid token signature", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidSignature).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for well-formed tokens past their exp.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken is returned by logout paths for tokens that do not parse.
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidRefreshToken collapses expired, unknown, and already-rotated
// refresh tokens into one kind so replay attempts and ordinary staleness
// look identical to the caller.
var ErrInvalidRefreshToken = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidRefresh).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenBlacklisted marks an access token explicitly revoked by logout.
var ErrTokenBlacklisted = goerrors.New("token has been revoked", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenBlacklisted).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbiddenRole is returned when a verified token does not carry the
// role a guarded surface requires.
var ErrForbiddenRole = goerrors.New("role not permitted", goerrors.CategoryAuth).
	WithTextCode(textCodeForbiddenRole).
	WithCode(goerrors.CodeForbidden)

// ErrAccountNotFound is returned when a valid token references an
// account that no longer exists.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountUnavailable wraps directory lookup failures so store outages
// are never conflated with invalid credentials.
var ErrAccountUnavailable = goerrors.New("account store unavailable", goerrors.CategoryInternal).
	WithTextCode(textCodeAccountUnavailable).
	WithCode(goerrors.CodeInternal)

// ErrDuplicateIdentity signals a uniqueness violation on create.
var ErrDuplicateIdentity = goerrors.New("identity already exists", goerrors.CategoryConflict).
	WithTextCode(textCodeDuplicateIdentity).
	WithCode(goerrors.CodeConflict)

// ErrInvalidRole is an enumeration parse failure on untrusted input.
var ErrInvalidRole = goerrors.New("unrecognized account role", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidChannel is an enumeration parse failure on untrusted input.
var ErrInvalidChannel = goerrors.New("unrecognized login channel", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidChannel).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingEmail is returned when an OAuth provider asserts no email;
// there is no other stable key for OAuth identities.
var ErrMissingEmail = goerrors.New("provider assertion carries no email", goerrors.CategoryBadInput).
	WithTextCode(textCodeMissingEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingPhoneOrChannel is returned when a passwordless assertion is
// missing its phone or channel.
var ErrMissingPhoneOrChannel = goerrors.New("assertion is missing phone or channel", goerrors.CategoryBadInput).
	WithTextCode(textCodeMissingPhone).
	WithCode(goerrors.CodeBadRequest)

// ErrUsernameGenerationExhausted is returned when the retry budget for
// unique username generation runs out. Exhaustion signals a directory
// capacity or randomness problem, not user error.
var ErrUsernameGenerationExhausted = goerrors.New("unable to generate a unique username", goerrors.CategoryInternal).
	WithTextCode(textCodeUsernameExhausted).
	WithCode(goerrors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return hasTextCode(err, textCodeTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for structurally bad tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return hasTextCode(err, textCodeTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsBlacklistedError will check for revoked access tokens
func IsBlacklistedError(err error) bool {
	return hasTextCode(err, textCodeTokenBlacklisted)
}

// IsDuplicateIdentity will check for uniqueness violations on create
func IsDuplicateIdentity(err error) bool {
	return hasTextCode(err, textCodeDuplicateIdentity)
}

// IsInvalidCredentials will check for the deliberately opaque login
// failure kind
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsAccountNotFound will check for tokens that outlived their account
func IsAccountNotFound(err error) bool {
	return hasTextCode(err, textCodeAccountNotFound)
}

// IsAccountUnavailable will check for directory outages, which must not
// be mistaken for client-side token errors
func IsAccountUnavailable(err error) bool {
	return hasTextCode(err, textCodeAccountUnavailable)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}
