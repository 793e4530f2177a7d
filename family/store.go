package family

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps every network-level Redis failure.
var ErrStoreUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when the family record does not exist.
var ErrNotFound = errors.New("family not found")

// ErrExpired is returned when the record exists but its embedded expiry has
// passed. The record is deleted as a side effect.
var ErrExpired = errors.New("family expired")

// ErrTokenMismatch is returned when the presented token id is not the
// family's current one. The whole family is destroyed before this is
// reported: a replayed token, legitimate retry or not, ends the session.
var ErrTokenMismatch = errors.New("family token mismatch")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
	rotateStatusCorrupt  int64 = 4
)

// rotateScript is the atomic match-and-rotate step. It runs as a single
// Redis script, so two concurrent redemptions of one token id serialize:
// exactly one observes the match and rotates, the other hits the mismatch
// branch and destroys the family. The record layout (fixed 36-byte token id
// prefix) lets the script compare and splice without a parser.
const rotateScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end
if #data < 39 then
  return {4}
end
local current = string.sub(data, 1, 36)
local sep = string.find(data, "\n", 38, true)
if not sep then
  return {4}
end
local subject = string.sub(data, 38, sep - 1)
local expires = tonumber(string.sub(data, sep + 1))
if not expires then
  return {4}
end
local subject_key = ARGV[4] .. subject
if expires <= tonumber(ARGV[3]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", subject_key, ARGV[5])
  return {1}
end
if current ~= ARGV[1] then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", subject_key, ARGV[5])
  return {2}
end
local updated = ARGV[2] .. "\n" .. subject .. "\n" .. ARGV[6]
redis.call("SET", KEYS[1], updated, "PX", ARGV[7])
redis.call("SADD", subject_key, ARGV[5])
return {3, updated}
`

var rotateLua = redis.NewScript(rotateScript)

// revokeScript deletes a family and drops it from the subject index in one
// step. Returns whether the record existed; deleting an absent family is
// not an error.
const revokeScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local sep = string.find(data, "\n", 38, true)
if sep then
  local subject = string.sub(data, 38, sep - 1)
  redis.call("SREM", ARGV[1] .. subject, ARGV[2])
end
redis.call("DEL", KEYS[1])
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// RedisStore persists session-family records in Redis with per-key TTL and
// a per-subject index set used for revoke-all and device enumeration.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore using prefix as the key namespace.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ac"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(familyID string) string {
	return s.prefix + ":f:" + familyID
}

func (s *RedisStore) subjectKey(subjectID string) string {
	return s.subjectPrefix() + subjectID
}

func (s *RedisStore) subjectPrefix() string {
	return s.prefix + ":s:"
}

// Save persists a new family record with the given TTL and registers it in
// the subject index.
func (s *RedisStore) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.FamilyID), data, ttl)
		pipe.SAdd(ctx, s.subjectKey(rec.SubjectID), rec.FamilyID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Rotate atomically redeems providedTokenID and installs nextTokenID,
// resetting the record TTL to ttl. On mismatch the family is destroyed and
// ErrTokenMismatch is returned; absent or expired records yield ErrNotFound
// or ErrExpired. Only the single winner of a concurrent race sees success.
func (s *RedisStore) Rotate(
	ctx context.Context,
	familyID, providedTokenID, nextTokenID string,
	ttl time.Duration,
) (*Record, error) {
	now := time.Now()
	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(familyID)},
		providedTokenID,
		nextTokenID,
		now.Unix(),
		s.subjectPrefix(),
		familyID,
		now.Add(ttl).Unix(),
		ttl.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrStoreUnavailable)
	}

	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrStoreUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrNotFound
	case rotateStatusExpired:
		return nil, ErrExpired
	case rotateStatusMismatch:
		return nil, ErrTokenMismatch
	case rotateStatusRotated:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing rotated record payload", ErrStoreUnavailable)
		}

		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return nil, fmt.Errorf("%w: invalid rotated record payload", ErrStoreUnavailable)
		}

		rec, decErr := Decode(blob)
		if decErr != nil {
			return nil, decErr
		}
		rec.FamilyID = familyID
		return rec, nil
	case rotateStatusCorrupt:
		return nil, ErrCorruptRecord
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status", ErrStoreUnavailable)
	}
}

// Revoke deletes a family record and its index entry. Idempotent.
func (s *RedisStore) Revoke(ctx context.Context, familyID string) error {
	_, err := revokeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(familyID)},
		s.subjectPrefix(),
		familyID,
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// RevokeAllForSubject removes every family record tracked for a subject.
//
// ATOMICITY NOTE: the index read (SMembers) and the deletes run as two
// steps. A family created between them is not captured by this call; it
// will expire on its own TTL or be caught by a repeat invocation. This
// mirrors the narrow logout-all race the store has always accepted.
func (s *RedisStore) RevokeAllForSubject(ctx context.Context, subjectID string) error {
	subjectKey := s.subjectKey(subjectID)

	familyIDs, err := s.redis.SMembers(ctx, subjectKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	familyKeys := make([]string, 0, len(familyIDs))
	for _, id := range familyIDs {
		familyKeys = append(familyKeys, s.key(id))
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(familyKeys) > 0 {
			pipe.Del(ctx, familyKeys...)
		}
		pipe.Del(ctx, subjectKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// FamilyIDs returns the tracked family ids for a subject. Entries whose
// records already expired may linger until the next rotate or revoke
// touches them.
func (s *RedisStore) FamilyIDs(ctx context.Context, subjectID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ids, nil
}

// Lookup fetches a family record without mutating any store state.
func (s *RedisStore) Lookup(ctx context.Context, familyID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(familyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	rec.FamilyID = familyID
	if time.Now().Unix() >= rec.ExpiresAt {
		return nil, ErrNotFound
	}

	return rec, nil
}

// Ping reports point-in-time store availability and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
