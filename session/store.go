package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session exists for the given identity and ID.
var ErrNotFound = errors.New("session record not found")

// ErrCorruptRecord is returned when a stored hash is missing required fields.
var ErrCorruptRecord = errors.New("session record corrupt")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const iterPageSize = 64

const touchScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "active") ~= "1" then
  return 0
end
redis.call("HSET", KEYS[1], "last_activity", ARGV[1])
return 1
`

var touchLua = redis.NewScript(touchScript)

const deactivateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "active") ~= "1" then
  return 0
end
redis.call("HSET", KEYS[1], "active", "0")
return 1
`

var deactivateLua = redis.NewScript(deactivateScript)

const deactivateAllScript = `
local ids = redis.call("ZRANGE", KEYS[1], 0, -1)
local n = 0
for i, id in ipairs(ids) do
  local key = ARGV[1] .. id
  if redis.call("EXISTS", key) == 1 and redis.call("HGET", key, "active") == "1" then
    redis.call("HSET", key, "active", "0")
    n = n + 1
  end
end
return n
`

var deactivateAllLua = redis.NewScript(deactivateAllScript)

// Store is the Redis-backed session registry.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client. prefix
// sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(identityID, sessionID string) string {
	return s.prefix + ":s:" + identityID + ":" + sessionID
}

func (s *Store) keyPrefix(identityID string) string {
	return s.prefix + ":s:" + identityID + ":"
}

func (s *Store) indexKey(identityID string) string {
	return s.prefix + ":idx:" + identityID
}

// Save persists a new session and appends it to the identity's registry index.
//
//	Performance: 2 Redis commands in one MULTI/EXEC.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.LastActivity.IsZero() {
		sess.LastActivity = sess.CreatedAt
	}
	sess.Active = true

	key := s.key(sess.IdentityID, sess.SessionID)
	createdAt := strconv.FormatInt(sess.CreatedAt.Unix(), 10)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"token", sess.TokenValue,
			"ua", sess.UserAgent,
			"ip", sess.IPAddress,
			"active", "1",
			"created_at", createdAt,
			"last_activity", strconv.FormatInt(sess.LastActivity.Unix(), 10),
		)
		pipe.ZAdd(ctx, s.indexKey(sess.IdentityID), redis.Z{
			Score:  float64(sess.CreatedAt.Unix()),
			Member: sess.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get retrieves one session record, active or not.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) Get(ctx context.Context, identityID, sessionID string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(identityID, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return parseSession(identityID, sessionID, fields)
}

// Touch sets last activity to now when the session exists and is active.
// A missing or inactive session is a silent no-op, not an error; callers that
// depend on the touch having happened must check validity separately.
// Reports whether the touch was applied.
func (s *Store) Touch(ctx context.Context, identityID, sessionID string) (bool, error) {
	res, err := touchLua.Run(
		ctx,
		s.redis,
		[]string{s.key(identityID, sessionID)},
		strconv.FormatInt(time.Now().Unix(), 10),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// Deactivate marks one session inactive. Idempotent: revoking a missing or
// already-inactive session succeeds and reports false. The record is retained.
func (s *Store) Deactivate(ctx context.Context, identityID, sessionID string) (bool, error) {
	res, err := deactivateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(identityID, sessionID)},
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// DeactivateAll marks every session of an identity inactive in one atomic
// step and returns how many flipped. Records and the index are retained.
func (s *Store) DeactivateAll(ctx context.Context, identityID string) (int, error) {
	res, err := deactivateAllLua.Run(
		ctx,
		s.redis,
		[]string{s.indexKey(identityID)},
		s.keyPrefix(identityID),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(res), nil
}

// Active yields the identity's active sessions ordered by creation time
// ascending. The sequence is lazy (pages the index on demand), finite, and
// restartable; a fresh range starts on every iteration. Store errors end the
// sequence with a non-nil error value.
func (s *Store) Active(ctx context.Context, identityID string) iter.Seq2[*Session, error] {
	return func(yield func(*Session, error) bool) {
		index := s.indexKey(identityID)
		var start int64

		for {
			ids, err := s.redis.ZRange(ctx, index, start, start+iterPageSize-1).Result()
			if err != nil {
				yield(nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err))
				return
			}
			if len(ids) == 0 {
				return
			}

			for _, id := range ids {
				sess, err := s.Get(ctx, identityID, id)
				if err != nil {
					if errors.Is(err, ErrNotFound) {
						continue
					}
					yield(nil, err)
					return
				}
				if !sess.Active {
					continue
				}
				if !yield(sess, nil) {
					return
				}
			}

			start += int64(len(ids))
		}
	}
}

// Prune drops sessions from the registry index when they have been inactive
// longer than the retention window. The session records themselves are kept;
// pruning only trims the iteration view and is advisory. Returns the number
// of index entries removed.
func (s *Store) Prune(ctx context.Context, identityID string, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention).Unix()

	ids, err := s.redis.ZRange(ctx, s.indexKey(identityID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	pruned := 0
	for _, id := range ids {
		sess, err := s.Get(ctx, identityID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return pruned, err
		}
		if sess.Active || sess.LastActivity.Unix() > cutoff {
			continue
		}
		if err := s.redis.ZRem(ctx, s.indexKey(identityID), id).Err(); err != nil {
			return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		pruned++
	}
	return pruned, nil
}

func parseSession(identityID, sessionID string, fields map[string]string) (*Session, error) {
	sess := &Session{
		SessionID:  sessionID,
		IdentityID: identityID,
		TokenValue: fields["token"],
		UserAgent:  fields["ua"],
		IPAddress:  fields["ip"],
		Active:     fields["active"] == "1",
	}

	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, ErrCorruptRecord
	}
	sess.CreatedAt = time.Unix(createdAt, 0)

	lastActivity, err := strconv.ParseInt(fields["last_activity"], 10, 64)
	if err != nil {
		return nil, ErrCorruptRecord
	}
	sess.LastActivity = time.Unix(lastActivity, 0)

	return sess, nil
}
