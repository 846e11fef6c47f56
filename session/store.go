package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport-level Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrTokenNotTracked is returned by Replace when the token to consume is not
// in the account's set: already rotated, explicitly revoked, or expired and
// pruned. The manager reports all three identically to callers.
var ErrTokenNotTracked = errors.New("refresh token not tracked")

// TokenHash is the stored representation of one refresh token: the SHA-256 of
// the raw token string. Equality of hashes stands in for equality of tokens,
// and the long-lived credential itself never reaches Redis.
type TokenHash [32]byte

func (h TokenHash) member() string {
	return string(h[:])
}

// replaceScript consumes one tracked token and adds its successor in a single
// atomic step. Expired members are pruned first, so a stale token can never
// be spent. Returns 0 when the old token is absent, 1 when rotated.
const replaceScript = `
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[3])
local removed = redis.call("ZREM", KEYS[1], ARGV[1])
if removed == 0 then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[4], ARGV[2])
redis.call("EXPIREAT", KEYS[1], ARGV[4])
return 1
`

var replaceLua = redis.NewScript(replaceScript)

// Store tracks the currently valid refresh tokens of each account in a Redis
// sorted set keyed by account ID, scored by token expiry. All mutating
// operations lazily prune expired members, so only live sessions are ever
// observable through this type.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] backed by the given Redis client. prefix
// namespaces every key.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(accountID string) string {
	return s.prefix + ":rt:" + accountID
}

// Append adds a freshly issued refresh token to the account's set. Prior
// sessions are untouched; an account holds one tracked token per active
// session. Never fails for a valid account ID, only on Redis errors.
func (s *Store) Append(ctx context.Context, accountID string, hash TokenHash, expiresAt time.Time) error {
	key := s.key(accountID)
	now := time.Now().Unix()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now, 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(expiresAt.Unix()), Member: hash.member()})
		pipe.ExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Contains reports whether the token is currently tracked for the account.
// Expired members count as absent. Read-only; useful for introspection, but
// rotation must go through [Store.Replace] to stay atomic.
func (s *Store) Contains(ctx context.Context, accountID string, hash TokenHash) (bool, error) {
	score, err := s.redis.ZScore(ctx, s.key(accountID), hash.member()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return int64(score) > time.Now().Unix(), nil
}

// Replace atomically consumes oldHash and tracks newHash in its place. The
// check-and-swap runs as one Lua script, so of two concurrent refreshes
// presenting the same token exactly one succeeds; the loser observes the
// token already gone and gets [ErrTokenNotTracked]. A successful Replace
// leaves the set's size unchanged.
func (s *Store) Replace(ctx context.Context, accountID string, oldHash, newHash TokenHash, expiresAt time.Time) error {
	result, err := replaceLua.Run(
		ctx,
		s.redis,
		[]string{s.key(accountID)},
		oldHash.member(),
		newHash.member(),
		time.Now().Unix(),
		expiresAt.Unix(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("%w: invalid replace script response", ErrRedisUnavailable)
	}
	if code == 0 {
		return ErrTokenNotTracked
	}

	return nil
}

// Remove revokes a single session. Returns whether the token was tracked.
func (s *Store) Remove(ctx context.Context, accountID string, hash TokenHash) (bool, error) {
	removed, err := s.redis.ZRem(ctx, s.key(accountID), hash.member()).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed > 0, nil
}

// RemoveAll revokes every session of the account.
func (s *Store) RemoveAll(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ActiveCount returns the number of unexpired tracked tokens for the account.
func (s *Store) ActiveCount(ctx context.Context, accountID string) (int, error) {
	min := "(" + strconv.FormatInt(time.Now().Unix(), 10)

	count, err := s.redis.ZCount(ctx, s.key(accountID), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return int(count), nil
}

// ActiveHashes returns the unexpired tracked token hashes for the account.
func (s *Store) ActiveHashes(ctx context.Context, accountID string) ([]TokenHash, error) {
	min := "(" + strconv.FormatInt(time.Now().Unix(), 10)

	members, err := s.redis.ZRangeByScore(ctx, s.key(accountID), &redis.ZRangeBy{
		Min: min,
		Max: "+inf",
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	hashes := make([]TokenHash, 0, len(members))
	for _, m := range members {
		if len(m) != len(TokenHash{}) {
			continue
		}
		var h TokenHash
		copy(h[:], m)
		hashes = append(hashes, h)
	}

	return hashes, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
