package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no token exists for the given value or ID.
var ErrNotFound = errors.New("token record not found")

// ErrInactive is returned by Consume when the token has been deactivated.
var ErrInactive = errors.New("token record inactive")

// ErrExhausted is returned by Consume when the token quota is spent.
var ErrExhausted = errors.New("token record exhausted")

// ErrDuplicate is returned by Create when the value is already taken.
var ErrDuplicate = errors.New("token value already taken")

// ErrIdentityNotFound is returned when a token has no bound identity yet.
var ErrIdentityNotFound = errors.New("identity record not found")

// ErrCorruptRecord is returned when a stored hash is missing required fields.
var ErrCorruptRecord = errors.New("token record corrupt")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	consumeStatusNotFound  int64 = -1
	consumeStatusInactive  int64 = -2
	consumeStatusExhausted int64 = -3
)

// The precondition checks and the self-healing deactivation of a stale-active
// exhausted token must stay inside one script: splitting them into separate
// commands reintroduces the double-spend race. A spent quota outranks the
// active flag, so a token deactivated by exhaustion (or flipped back to active
// without a quota raise) reports exhausted, not inactive.
const consumeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {-1}
end
local vals = redis.call("HMGET", KEYS[1], "active", "uses", "quota")
local uses = tonumber(vals[2]) or 0
local quota = tonumber(vals[3]) or 0
if uses >= quota then
  if vals[1] == "1" then
    redis.call("HSET", KEYS[1], "active", "0")
  end
  return {-3}
end
if vals[1] ~= "1" then
  return {-2}
end
uses = redis.call("HINCRBY", KEYS[1], "uses", 1)
redis.call("HSET", KEYS[1], "last_used", ARGV[1])
if ARGV[2] == "1" then
  redis.call("HSET", KEYS[1], "payload", ARGV[3])
end
if uses >= quota then
  redis.call("HSET", KEYS[1], "active", "0")
end
return {uses, quota}
`

var consumeLua = redis.NewScript(consumeScript)

const createScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1],
  "owner", ARGV[2],
  "quota", ARGV[3],
  "uses", "0",
  "active", "1",
  "created_at", ARGV[4],
  "payload", "")
redis.call("SET", KEYS[2], ARGV[5])
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[5])
return 1
`

var createLua = redis.NewScript(createScript)

const updateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if ARGV[1] == "1" then
  redis.call("HSET", KEYS[1], "owner", ARGV[2])
end
if ARGV[3] == "1" then
  redis.call("HSET", KEYS[1], "quota", ARGV[4])
end
if ARGV[5] == "1" then
  redis.call("HSET", KEYS[1], "active", ARGV[6])
end
local vals = redis.call("HMGET", KEYS[1], "uses", "quota")
local uses = tonumber(vals[1]) or 0
local quota = tonumber(vals[2]) or 0
if uses >= quota then
  redis.call("HSET", KEYS[1], "active", "0")
end
return 1
`

var updateLua = redis.NewScript(updateScript)

const deleteScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("DEL", KEYS[1])
redis.call("DEL", KEYS[2])
redis.call("ZREM", KEYS[3], ARGV[1])
return existed
`

var deleteLua = redis.NewScript(deleteScript)

const ensureIdentityScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HINCRBY", KEYS[1], "login_count", 1)
  redis.call("HSET", KEYS[1], "last_login", ARGV[3])
  local vals = redis.call("HMGET", KEYS[1], "id", "label", "created_at", "login_count", "last_login")
  return {0, vals[1], vals[2], vals[3], vals[4], vals[5]}
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1],
  "label", ARGV[2],
  "created_at", ARGV[3],
  "login_count", "1",
  "last_login", ARGV[3])
redis.call("SET", KEYS[2], ARGV[4])
return {1, ARGV[1], ARGV[2], ARGV[3], "1", ARGV[3]}
`

var ensureIdentityLua = redis.NewScript(ensureIdentityScript)

// Store is a Redis-backed token store. All quota mutations run through Lua
// scripts so each token behaves as a single serialization point.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a token [Store] backed by the given Redis client. prefix
// sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) valueKey(value string) string {
	return s.prefix + ":v:" + value
}

func (s *Store) idKey(id string) string {
	return s.prefix + ":id:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + ":index"
}

func (s *Store) identityKey(value string) string {
	return s.prefix + ":u:" + value
}

func (s *Store) identityIDKey(id string) string {
	return s.prefix + ":uid:" + id
}

// Create persists a new token. The caller supplies ID, Value, OwnerLabel, and
// Quota; Uses starts at zero and the token starts active. Returns
// [ErrDuplicate] when the value already exists.
//
//	Performance: 1 Lua EVALSHA (existence check + write, atomic).
func (s *Store) Create(ctx context.Context, t *Token) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := createLua.Run(
		ctx,
		s.redis,
		[]string{s.valueKey(t.Value), s.idKey(t.ID), s.indexKey()},
		t.ID,
		t.OwnerLabel,
		strconv.Itoa(t.Quota),
		strconv.FormatInt(createdAt.Unix(), 10),
		t.Value,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrDuplicate
	}

	t.Uses = 0
	t.Active = true
	t.CreatedAt = time.Unix(createdAt.Unix(), 0)
	return nil
}

// GetByValue retrieves a token by its value.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) GetByValue(ctx context.Context, value string) (*Token, error) {
	fields, err := s.redis.HGetAll(ctx, s.valueKey(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return parseToken(value, fields)
}

// GetByID retrieves a token through the ID index.
//
//	Performance: 1 Redis GET + 1 HGETALL.
func (s *Store) GetByID(ctx context.Context, id string) (*Token, error) {
	value, err := s.redis.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.GetByValue(ctx, value)
}

// List returns every token ordered by creation time descending.
//
//	Performance: 1 ZREVRANGE + pipelined HGETALL per token. Admin path only.
func (s *Store) List(ctx context.Context) ([]*Token, error) {
	values, err := s.redis.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(values) == 0 {
		return []*Token{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(values))
	for i, value := range values {
		cmds[i] = pipe.HGetAll(ctx, s.valueKey(value))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	tokens := make([]*Token, 0, len(values))
	for i, cmd := range cmds {
		fields, cmdErr := cmd.Result()
		if cmdErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if len(fields) == 0 {
			// Deleted between the index read and the hash read; skip.
			continue
		}
		t, parseErr := parseToken(values[i], fields)
		if parseErr != nil {
			return nil, parseErr
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// Update mutates owner label, quota, and active state in one atomic step and
// re-derives the exhaustion invariant: a token whose uses meet its quota ends
// inactive no matter what the caller asked for. Nil fields are untouched.
// Uses is never reset.
func (s *Store) Update(ctx context.Context, id string, ownerLabel *string, quota *int, active *bool) (*Token, error) {
	value, err := s.redis.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	args := make([]interface{}, 0, 6)
	if ownerLabel != nil {
		args = append(args, "1", *ownerLabel)
	} else {
		args = append(args, "0", "")
	}
	if quota != nil {
		args = append(args, "1", strconv.Itoa(*quota))
	} else {
		args = append(args, "0", "")
	}
	if active != nil {
		flag := "0"
		if *active {
			flag = "1"
		}
		args = append(args, "1", flag)
	} else {
		args = append(args, "0", "")
	}

	res, err := updateLua.Run(ctx, s.redis, []string{s.valueKey(value)}, args...).Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return nil, ErrNotFound
	}

	return s.GetByValue(ctx, value)
}

// Delete hard-removes a token and its indexes. The bound identity record is
// retained for audit; authorization against it fails once the token is gone.
func (s *Store) Delete(ctx context.Context, id string) error {
	value, err := s.redis.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	res, err := deleteLua.Run(
		ctx,
		s.redis,
		[]string{s.valueKey(value), s.idKey(id), s.indexKey()},
		value,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

// Consume atomically spends one use of the token identified by value. The
// exists/active/quota preconditions are checked in that order inside the
// script; first failure wins. A stale-active exhausted token is deactivated
// as a side effect before [ErrExhausted] is returned. When payloadSet is true
// the attached payload is overwritten.
//
// Returns the use counter after the increment and the quota.
//
//	Performance: 1 Lua EVALSHA (atomic guarded increment).
func (s *Store) Consume(ctx context.Context, value string, payload []byte, payloadSet bool) (uses, quota int, err error) {
	payloadFlag := "0"
	if payloadSet {
		payloadFlag = "1"
	}

	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.valueKey(value)},
		strconv.FormatInt(time.Now().Unix(), 10),
		payloadFlag,
		string(payload),
	).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return 0, 0, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusNotFound:
		return 0, 0, ErrNotFound
	case consumeStatusInactive:
		return 0, 0, ErrInactive
	case consumeStatusExhausted:
		return 0, 0, ErrExhausted
	}

	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: missing consume script quota", ErrRedisUnavailable)
	}
	q, ok := parts[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("%w: invalid consume script quota", ErrRedisUnavailable)
	}

	return int(code), int(q), nil
}

// EnsureIdentity resolves the identity bound to a token, creating it with
// candidateID on first consumption. Creation and the login-counter update are
// atomic, so racing first consumers agree on a single identity. Reports
// whether this call created the record.
func (s *Store) EnsureIdentity(ctx context.Context, value, label, candidateID string) (*Identity, bool, error) {
	now := time.Now()

	result, err := ensureIdentityLua.Run(
		ctx,
		s.redis,
		[]string{s.identityKey(value), s.identityIDKey(candidateID)},
		candidateID,
		label,
		strconv.FormatInt(now.Unix(), 10),
		value,
	).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) < 6 {
		return nil, false, fmt.Errorf("%w: invalid identity script response", ErrRedisUnavailable)
	}
	created, ok := parts[0].(int64)
	if !ok {
		return nil, false, fmt.Errorf("%w: invalid identity script status", ErrRedisUnavailable)
	}

	identity := &Identity{TokenValue: value}
	identity.ID, _ = parts[1].(string)
	identity.DisplayLabel, _ = parts[2].(string)
	identity.CreatedAt = parseUnixString(parts[3])
	if count, cOK := parts[4].(string); cOK {
		identity.LoginCount, _ = strconv.Atoi(count)
	} else if count64, cOK := parts[4].(int64); cOK {
		identity.LoginCount = int(count64)
	}
	identity.LastLogin = parseUnixString(parts[5])

	if identity.ID == "" {
		return nil, false, fmt.Errorf("%w: identity id missing", ErrRedisUnavailable)
	}
	return identity, created == 1, nil
}

// GetIdentityByToken retrieves the identity bound to a token value, or
// [ErrIdentityNotFound] when the token has never been consumed.
func (s *Store) GetIdentityByToken(ctx context.Context, value string) (*Identity, error) {
	fields, err := s.redis.HGetAll(ctx, s.identityKey(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrIdentityNotFound
	}

	identity := &Identity{
		ID:           fields["id"],
		DisplayLabel: fields["label"],
		TokenValue:   value,
	}
	identity.CreatedAt = parseUnixField(fields["created_at"])
	identity.LastLogin = parseUnixField(fields["last_login"])
	identity.LoginCount, _ = strconv.Atoi(fields["login_count"])

	if identity.ID == "" {
		return nil, ErrCorruptRecord
	}
	return identity, nil
}

func parseToken(value string, fields map[string]string) (*Token, error) {
	t := &Token{
		ID:         fields["id"],
		Value:      value,
		OwnerLabel: fields["owner"],
	}
	if t.ID == "" {
		return nil, ErrCorruptRecord
	}

	var err error
	if t.Quota, err = strconv.Atoi(fields["quota"]); err != nil {
		return nil, ErrCorruptRecord
	}
	if t.Uses, err = strconv.Atoi(fields["uses"]); err != nil {
		return nil, ErrCorruptRecord
	}
	t.Active = fields["active"] == "1"
	t.CreatedAt = parseUnixField(fields["created_at"])
	t.LastUsed = parseUnixField(fields["last_used"])
	if payload := fields["payload"]; payload != "" {
		t.Payload = []byte(payload)
	}
	return t, nil
}

func parseUnixField(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func parseUnixString(v interface{}) time.Time {
	switch raw := v.(type) {
	case string:
		return parseUnixField(raw)
	case int64:
		return time.Unix(raw, 0)
	default:
		return time.Time{}
	}
}
