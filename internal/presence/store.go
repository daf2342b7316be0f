package presence

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrNoOwner is returned by Owner when no instance holds the user.
var ErrNoOwner = errors.New("presence: user has no owner")

const keyPrefix = "presence:user:"

// Deletes the key only if it still holds the caller's owner string.
// KEYS[1] = presence key, ARGV[1] = expected owner
// Returns 1 when deleted, 0 otherwise.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Owner identifies the instance and connection holding a user's presence.
type Owner struct {
	Instance string
	ConnID   string
}

func (o Owner) String() string {
	return o.Instance + "/" + o.ConnID
}

func parseOwner(s string) (Owner, bool) {
	instance, conn, ok := strings.Cut(s, "/")
	if !ok || instance == "" || conn == "" {
		return Owner{}, false
	}
	return Owner{Instance: instance, ConnID: conn}, true
}

// RedisStore mirrors the in-memory registry into Redis so other instances
// can find which one owns a user. It has the same latest-wins and
// compare-and-delete semantics as Registry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Register overwrites the owner for userID. The TTL bounds how long an entry
// survives an instance that died without cleaning up.
func (s *RedisStore) Register(ctx context.Context, userID string, owner Owner) error {
	if err := s.client.Set(ctx, keyPrefix+userID, owner.String(), s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "register presence for %s", userID)
	}
	return nil
}

// Unregister deletes userID only while it is still owned by owner.
func (s *RedisStore) Unregister(ctx context.Context, userID string, owner Owner) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{keyPrefix + userID}, owner.String()).Int()
	if err != nil {
		return false, errors.Wrapf(err, "unregister presence for %s", userID)
	}
	return n == 1, nil
}

// Owner returns who currently holds userID, or ErrNoOwner.
func (s *RedisStore) Owner(ctx context.Context, userID string) (Owner, error) {
	val, err := s.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return Owner{}, ErrNoOwner
	}
	if err != nil {
		return Owner{}, errors.Wrapf(err, "lookup presence for %s", userID)
	}
	owner, ok := parseOwner(val)
	if !ok {
		return Owner{}, ErrNoOwner
	}
	return owner, nil
}
