package identity

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// ErrRefreshNotRegistered is the store-level signal that a refresh token
// is unknown, already rotated, or revoked. The session manager maps it
// to ErrInvalidRefreshToken so replay and staleness are indistinguishable
// to callers.
var ErrRefreshNotRegistered = goerrors.New("refresh token not registered", goerrors.CategoryNotFound).
	WithTextCode("REFRESH_NOT_REGISTERED").
	WithCode(goerrors.CodeNotFound)

// TokenFingerprint derives a deterministic fingerprint for a raw token
// string. Revocation state stores fingerprints, never raw credentials.
func TokenFingerprint(raw string) (string, error) {
	id, err := hashid.NewUUID(raw)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fingerprint token")
	}
	return id.String(), nil
}

// RevocationStore owns the blacklist and the active-refresh-chain
// registry. Entries carry the token's own expiry so implementations can
// evict what no longer needs tracking: an expired token needs no
// blacklist entry at all.
//
// The in-memory implementation suits tests and single-process
// deployments; multi-instance deployments swap in the Redis
// implementation without touching the session manager.
type RevocationStore interface {
	// Blacklist records an access token fingerprint as revoked until it
	// would have expired anyway.
	Blacklist(ctx context.Context, fingerprint string, expiresAt time.Time) error

	// IsBlacklisted reports whether the fingerprint is currently revoked.
	IsBlacklisted(ctx context.Context, fingerprint string) (bool, error)

	// RegisterRefresh marks a refresh token fingerprint ACTIVE for the
	// account.
	RegisterRefresh(ctx context.Context, fingerprint, accountUUID string, expiresAt time.Time) error

	// RotateRefresh atomically retires the old fingerprint and registers
	// the new one. It fails with ErrRefreshNotRegistered when the old
	// fingerprint is not ACTIVE, which is how replay of an
	// already-rotated token is detected.
	RotateRefresh(ctx context.Context, oldFingerprint, newFingerprint, accountUUID string, expiresAt time.Time) error

	// RemoveRefresh retires a single refresh fingerprint.
	RemoveRefresh(ctx context.Context, fingerprint string) error

	// RevokeAccount retires every refresh fingerprint belonging to the
	// account. Logout uses this to end all derived tokens, not just the
	// presented one.
	RevokeAccount(ctx context.Context, accountUUID string) error
}

type refreshEntry struct {
	accountUUID string
	expiresAt   time.Time
}

// MemoryRevocationStore is the process-local implementation. A single
// mutex guards both sets; no operation blocks on I/O while holding it,
// so hold times stay short.
type MemoryRevocationStore struct {
	mu        sync.Mutex
	blacklist map[string]time.Time
	refresh   map[string]refreshEntry
	byAccount map[string]map[string]struct{}
	lastSweep time.Time
	now       func() time.Time
}

var _ RevocationStore = (*MemoryRevocationStore)(nil)

// NewMemoryRevocationStore creates an empty in-memory store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		blacklist: map[string]time.Time{},
		refresh:   map[string]refreshEntry{},
		byAccount: map[string]map[string]struct{}{},
		now:       time.Now,
	}
}

func (s *MemoryRevocationStore) Blacklist(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	if expiresAt.Before(s.now()) {
		// Already expired, nothing left to revoke.
		return nil
	}

	s.blacklist[fingerprint] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) IsBlacklisted(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.blacklist[fingerprint]
	if !ok {
		return false, nil
	}

	if exp.Before(s.now()) {
		delete(s.blacklist, fingerprint)
		return false, nil
	}

	return true, nil
}

func (s *MemoryRevocationStore) RegisterRefresh(ctx context.Context, fingerprint, accountUUID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.registerLocked(fingerprint, accountUUID, expiresAt)
	return nil
}

func (s *MemoryRevocationStore) RotateRefresh(ctx context.Context, oldFingerprint, newFingerprint, accountUUID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	entry, ok := s.refresh[oldFingerprint]
	if !ok || entry.expiresAt.Before(s.now()) {
		return ErrRefreshNotRegistered.WithMetadata(map[string]any{
			"account_uuid": accountUUID,
		})
	}

	s.removeLocked(oldFingerprint)
	s.registerLocked(newFingerprint, accountUUID, expiresAt)
	return nil
}

func (s *MemoryRevocationStore) RemoveRefresh(ctx context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refresh[fingerprint]; !ok {
		return ErrRefreshNotRegistered
	}

	s.removeLocked(fingerprint)
	return nil
}

func (s *MemoryRevocationStore) RevokeAccount(ctx context.Context, accountUUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fingerprint := range s.byAccount[accountUUID] {
		delete(s.refresh, fingerprint)
	}
	delete(s.byAccount, accountUUID)
	return nil
}

func (s *MemoryRevocationStore) registerLocked(fingerprint, accountUUID string, expiresAt time.Time) {
	s.refresh[fingerprint] = refreshEntry{
		accountUUID: accountUUID,
		expiresAt:   expiresAt,
	}

	chain, ok := s.byAccount[accountUUID]
	if !ok {
		chain = map[string]struct{}{}
		s.byAccount[accountUUID] = chain
	}
	chain[fingerprint] = struct{}{}
}

func (s *MemoryRevocationStore) removeLocked(fingerprint string) {
	entry, ok := s.refresh[fingerprint]
	if !ok {
		return
	}

	delete(s.refresh, fingerprint)

	if chain, ok := s.byAccount[entry.accountUUID]; ok {
		delete(chain, fingerprint)
		if len(chain) == 0 {
			delete(s.byAccount, entry.accountUUID)
		}
	}
}

// sweepLocked drops entries for tokens that expired on their own. The
// sweep is keyed off each token's exp and throttled so mutations stay
// cheap; memory never grows past the set of still-live tokens.
func (s *MemoryRevocationStore) sweepLocked() {
	now := s.now()
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now

	for fingerprint, exp := range s.blacklist {
		if exp.Before(now) {
			delete(s.blacklist, fingerprint)
		}
	}

	for fingerprint, entry := range s.refresh {
		if entry.expiresAt.Before(now) {
			s.removeLocked(fingerprint)
		}
	}
}
