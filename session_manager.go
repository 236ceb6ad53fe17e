package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// SessionManager orchestrates login, refresh rotation, and logout. An
// account's session is implicit: the presence of an ACTIVE refresh
// fingerprint in the revocation store is the logged-in signal, and its
// absence is logout. No session row is ever persisted.
type SessionManager struct {
	resolver  AccountResolver
	directory Accounts
	codec     *TokenCodec
	store     RevocationStore
	hasher    PasswordHasher
	logger    Logger
}

var _ SessionAuthenticator = (*SessionManager)(nil)

// NewSessionManager wires the session manager over its collaborators.
func NewSessionManager(resolver AccountResolver, directory Accounts, codec *TokenCodec, store RevocationStore) *SessionManager {
	return &SessionManager{
		resolver:  resolver,
		directory: directory,
		codec:     codec,
		store:     store,
		hasher:    BcryptHasher{},
		logger:    defLogger{},
	}
}

func (s *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *SessionManager) WithPasswordHasher(hasher PasswordHasher) *SessionManager {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// Codec exposes the token codec used by this manager.
func (s *SessionManager) Codec() *TokenCodec {
	return s.codec
}

// Login authenticates an identifier/password pair and issues a fresh
// token pair. Unknown identifiers and wrong passwords produce the same
// error kind so callers cannot enumerate accounts. Accounts with no
// password hash (social, passwordless) always fail password login.
func (s *SessionManager) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	account, err := s.resolver.ResolvePasswordLogin(ctx, identifier)
	if err != nil {
		if hasTextCode(err, textCodeAccountNotFound) {
			s.logger.Debug("login for unknown identifier")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("login account lookup failed: %v", err)
		return nil, err
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.logger.Debug("login password mismatch for %s", account.UUID)
		return nil, ErrInvalidCredentials
	}

	return s.issuePair(ctx, account)
}

// LoginResolved issues a token pair for an account the resolver already
// vouched for, e.g. an OAuth or passwordless callback. No password is
// checked; the assertion was verified upstream.
func (s *SessionManager) LoginResolved(ctx context.Context, account *Account) (*TokenPair, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return s.issuePair(ctx, account)
}

// Refresh rotates a refresh token: the presented token is retired and a
// fresh pair is minted, atomically with respect to concurrent logouts.
// Rotation is single-use; replaying an already-rotated token fails
// exactly like an unknown one.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		s.logger.Debug("refresh token failed to parse: %v", err)
		return nil, ErrInvalidRefreshToken
	}

	if s.codec.IsExpired(claims) {
		return nil, ErrInvalidRefreshToken
	}

	// Re-fetch the account so role and identifier changes since the
	// last mint are reflected in the new claims.
	account, err := s.directory.FindByUUID(ctx, claims.AccountUUID())
	if err != nil {
		if repository.IsRecordNotFound(err) || hasTextCode(err, ErrAccountNotFound.TextCode) {
			s.logger.Debug("refresh presented for deleted account %s", claims.AccountUUID())
			return nil, ErrAccountNotFound
		}
		s.logger.Error("refresh account lookup failed for %s: %v", claims.AccountUUID(), err)
		return nil, goerrors.Wrap(err, ErrAccountUnavailable.Category, ErrAccountUnavailable.Message).
			WithTextCode(ErrAccountUnavailable.TextCode)
	}

	oldFingerprint, err := TokenFingerprint(refreshToken)
	if err != nil {
		return nil, err
	}

	identity := NewIdentityFromAccount(account)

	accessToken, err := s.codec.MintAccess(identity)
	if err != nil {
		return nil, err
	}

	newRefreshToken, err := s.codec.MintRefresh(identity)
	if err != nil {
		return nil, err
	}

	newFingerprint, err := TokenFingerprint(newRefreshToken)
	if err != nil {
		return nil, err
	}

	newClaims, err := s.codec.Parse(newRefreshToken)
	if err != nil {
		return nil, err
	}

	// The store settles the race: if the old fingerprint was rotated or
	// revoked after the checks above, registration fails and no new
	// chain entry is left behind.
	if err := s.store.RotateRefresh(ctx, oldFingerprint, newFingerprint, account.UUID, newClaims.Expires()); err != nil {
		if hasTextCode(err, ErrRefreshNotRegistered.TextCode) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		UUID:         account.UUID,
	}, nil
}

// LogoutAccess blacklists the presented access token and tears down the
// account's entire refresh chain, so logout ends every derived token,
// not just the one presented.
func (s *SessionManager) LogoutAccess(ctx context.Context, accessToken string) error {
	claims, err := s.codec.Parse(accessToken)
	if err != nil {
		return ErrInvalidToken
	}

	fingerprint, err := TokenFingerprint(accessToken)
	if err != nil {
		return err
	}

	if err := s.store.Blacklist(ctx, fingerprint, claims.Expires()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to blacklist access token")
	}

	if err := s.store.RevokeAccount(ctx, claims.AccountUUID()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke refresh chain")
	}

	return nil
}

// LogoutRefresh retires a single refresh token, for flows that only
// hold one.
func (s *SessionManager) LogoutRefresh(ctx context.Context, refreshToken string) error {
	if _, err := s.codec.Parse(refreshToken); err != nil {
		return ErrInvalidToken
	}

	fingerprint, err := TokenFingerprint(refreshToken)
	if err != nil {
		return err
	}

	if err := s.store.RemoveRefresh(ctx, fingerprint); err != nil {
		if hasTextCode(err, ErrRefreshNotRegistered.TextCode) {
			return ErrInvalidRefreshToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove refresh token")
	}

	return nil
}

// IsBlacklisted is the pure lookup the request-authentication path runs
// before trusting any access token's claims.
func (s *SessionManager) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	fingerprint, err := TokenFingerprint(accessToken)
	if err != nil {
		return false, err
	}
	return s.store.IsBlacklisted(ctx, fingerprint)
}

func (s *SessionManager) issuePair(ctx context.Context, account *Account) (*TokenPair, error) {
	identity := NewIdentityFromAccount(account)

	accessToken, err := s.codec.MintAccess(identity)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.codec.MintRefresh(identity)
	if err != nil {
		return nil, err
	}

	fingerprint, err := TokenFingerprint(refreshToken)
	if err != nil {
		return nil, err
	}

	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.store.RegisterRefresh(ctx, fingerprint, account.UUID, claims.Expires()); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UUID:         account.UUID,
	}, nil
}
