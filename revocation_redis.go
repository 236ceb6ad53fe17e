package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisRevocationStore shares revocation state across instances. Keys
// carry the token's own expiry so Redis evicts entries the moment the
// underlying token would have died anyway.
type RedisRevocationStore struct {
	rdb    *redis.Client
	prefix string
}

var _ RevocationStore = (*RedisRevocationStore)(nil)

// rotation must be atomic with respect to a concurrent RevokeAccount:
// deciding the old fingerprint is ACTIVE and registering the new one
// happen in one script so a logout can never observe the gap.
var rotateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[3], ARGV[2])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('EXPIREAT', KEYS[2], ARGV[4])
redis.call('SADD', KEYS[3], ARGV[3])
redis.call('EXPIREAT', KEYS[3], ARGV[4])
return 1
`)

// NewRedisRevocationStore creates a store from a Redis URL, e.g.
// redis://:pass@host:6379/0. An empty prefix defaults to "identity:".
func NewRedisRevocationStore(redisURL, prefix string) (*RedisRevocationStore, error) {
	if prefix == "" {
		prefix = "identity:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid redis URL")
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "redis ping failed")
	}

	return &RedisRevocationStore{rdb: rdb, prefix: prefix}, nil
}

// Close releases the underlying client.
func (s *RedisRevocationStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisRevocationStore) blacklistKey(fingerprint string) string {
	return s.prefix + "bl:" + fingerprint
}

func (s *RedisRevocationStore) refreshKey(fingerprint string) string {
	return s.prefix + "rt:" + fingerprint
}

func (s *RedisRevocationStore) chainKey(accountUUID string) string {
	return s.prefix + "chain:" + accountUUID
}

func (s *RedisRevocationStore) Blacklist(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.rdb.Set(ctx, s.blacklistKey(fingerprint), 1, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to blacklist token")
	}
	return nil
}

func (s *RedisRevocationStore) IsBlacklisted(ctx context.Context, fingerprint string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.blacklistKey(fingerprint)).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to check blacklist")
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) RegisterRefresh(ctx context.Context, fingerprint, accountUUID string, expiresAt time.Time) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.refreshKey(fingerprint), accountUUID, time.Until(expiresAt))
	pipe.SAdd(ctx, s.chainKey(accountUUID), fingerprint)
	pipe.ExpireAt(ctx, s.chainKey(accountUUID), expiresAt)

	if _, err := pipe.Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to register refresh token")
	}
	return nil
}

func (s *RedisRevocationStore) RotateRefresh(ctx context.Context, oldFingerprint, newFingerprint, accountUUID string, expiresAt time.Time) error {
	keys := []string{
		s.refreshKey(oldFingerprint),
		s.refreshKey(newFingerprint),
		s.chainKey(accountUUID),
	}

	ok, err := rotateScript.Run(ctx, s.rdb, keys,
		accountUUID, oldFingerprint, newFingerprint, expiresAt.Unix(),
	).Int()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to rotate refresh token")
	}

	if ok == 0 {
		return ErrRefreshNotRegistered.WithMetadata(map[string]any{
			"account_uuid": accountUUID,
		})
	}

	return nil
}

func (s *RedisRevocationStore) RemoveRefresh(ctx context.Context, fingerprint string) error {
	accountUUID, err := s.rdb.Get(ctx, s.refreshKey(fingerprint)).Result()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return ErrRefreshNotRegistered
		}
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up refresh token")
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.refreshKey(fingerprint))
	pipe.SRem(ctx, s.chainKey(accountUUID), fingerprint)

	if _, err := pipe.Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to remove refresh token")
	}
	return nil
}

func (s *RedisRevocationStore) RevokeAccount(ctx context.Context, accountUUID string) error {
	fingerprints, err := s.rdb.SMembers(ctx, s.chainKey(accountUUID)).Result()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read refresh chain")
	}

	keys := make([]string, 0, len(fingerprints)+1)
	for _, fingerprint := range fingerprints {
		keys = append(keys, s.refreshKey(fingerprint))
	}
	keys = append(keys, s.chainKey(accountUUID))

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to revoke refresh chain")
	}
	return nil
}
