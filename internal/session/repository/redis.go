package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"campusbook/auth/internal/session/domain"
)

// RedisStore keeps sessions in Redis. Each session is a JSON blob keyed by
// its refresh token hash, with a pointer key from the current access token
// jti and a per-user set for bulk revocation. Revocation deletes the keys
// outright; Redis TTLs mirror the session expiry so abandoned sessions
// disappear on their own.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a session store backed by the given Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusRotated  int64 = 2
)

// redisSession is the stored JSON shape. Timestamps are unix seconds so the
// rotate script can compare expiry without date parsing.
type redisSession struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	RefreshTokenHash string `json:"refresh_token_hash"`
	AccessTokenJTI   string `json:"access_token_jti"`
	CreatedAt        int64  `json:"created_at"`
	ExpiresAt        int64  `json:"expires_at"`
	IPAddress        string `json:"ip_address"`
	UserAgent        string `json:"user_agent"`
}

// KEYS[1] session blob; ARGV[1] now unix, ARGV[2] new jti,
// ARGV[3] jti pointer key prefix, ARGV[4] user set key prefix.
const rotateAccessTokenScript = `
local blob = redis.call("GET", KEYS[1])
if not blob then
  return {0, ""}
end
local sess = cjson.decode(blob)
local now = tonumber(ARGV[1])
if sess["expires_at"] <= now then
  redis.call("DEL", KEYS[1], ARGV[3] .. sess["access_token_jti"])
  redis.call("SREM", ARGV[4] .. sess["user_id"], sess["refresh_token_hash"])
  return {1, ""}
end
local ttl = redis.call("PTTL", KEYS[1])
redis.call("DEL", ARGV[3] .. sess["access_token_jti"])
sess["access_token_jti"] = ARGV[2]
local updated = cjson.encode(sess)
if ttl > 0 then
  redis.call("SET", KEYS[1], updated, "PX", ttl)
  redis.call("SET", ARGV[3] .. ARGV[2], sess["refresh_token_hash"], "PX", ttl)
else
  redis.call("SET", KEYS[1], updated)
  redis.call("SET", ARGV[3] .. ARGV[2], sess["refresh_token_hash"])
end
return {2, updated}
`

var rotateAccessTokenLua = redis.NewScript(rotateAccessTokenScript)

// KEYS[1] session blob; ARGV[1] jti pointer key prefix,
// ARGV[2] user set key prefix.
const revokeSessionScript = `
local blob = redis.call("GET", KEYS[1])
if not blob then
  return 0
end
local sess = cjson.decode(blob)
redis.call("DEL", KEYS[1], ARGV[1] .. sess["access_token_jti"])
redis.call("SREM", ARGV[2] .. sess["user_id"], sess["refresh_token_hash"])
return 1
`

var revokeSessionLua = redis.NewScript(revokeSessionScript)

const (
	sessionKeyPrefix = "auth:session:"
	jtiKeyPrefix     = "auth:jti:"
	userSetPrefix    = "auth:user_sessions:"
)

func sessionKey(refreshHash string) string { return sessionKeyPrefix + refreshHash }
func jtiKey(jti string) string             { return jtiKeyPrefix + jti }
func userSetKey(userID string) string      { return userSetPrefix + userID }

func toRedisSession(s *domain.Session) *redisSession {
	return &redisSession{
		ID:               s.ID,
		UserID:           s.UserID,
		RefreshTokenHash: s.RefreshTokenHash,
		AccessTokenJTI:   s.AccessTokenJTI,
		CreatedAt:        s.CreatedAt.Unix(),
		ExpiresAt:        s.ExpiresAt.Unix(),
		IPAddress:        s.IPAddress,
		UserAgent:        s.UserAgent,
	}
}

func (rs *redisSession) toDomain() *domain.Session {
	return &domain.Session{
		ID:               rs.ID,
		UserID:           rs.UserID,
		RefreshTokenHash: rs.RefreshTokenHash,
		AccessTokenJTI:   rs.AccessTokenJTI,
		CreatedAt:        time.Unix(rs.CreatedAt, 0).UTC(),
		ExpiresAt:        time.Unix(rs.ExpiresAt, 0).UTC(),
		IPAddress:        rs.IPAddress,
		UserAgent:        rs.UserAgent,
		IsActive:         true, // revoked sessions have no keys at all
	}
}

func (r *RedisStore) Create(ctx context.Context, s *domain.Session) error {
	blob, err := json.Marshal(toRedisSession(s))
	if err != nil {
		return err
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(s.RefreshTokenHash), blob, ttl)
	pipe.Set(ctx, jtiKey(s.AccessTokenJTI), s.RefreshTokenHash, ttl)
	pipe.SAdd(ctx, userSetKey(s.UserID), s.RefreshTokenHash)
	pipe.Expire(ctx, userSetKey(s.UserID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetByAccessTokenID(ctx context.Context, jti string) (*domain.Session, error) {
	refreshHash, err := r.rdb.Get(ctx, jtiKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return r.getByRefreshHash(ctx, refreshHash)
}

func (r *RedisStore) getByRefreshHash(ctx context.Context, refreshHash string) (*domain.Session, error) {
	blob, err := r.rdb.Get(ctx, sessionKey(refreshHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var rs redisSession
	if err := json.Unmarshal(blob, &rs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return rs.toDomain(), nil
}

func (r *RedisStore) RotateAccessToken(ctx context.Context, refreshHash, newJTI string, now time.Time) (*domain.Session, error) {
	res, err := rotateAccessTokenLua.Run(ctx, r.rdb,
		[]string{sessionKey(refreshHash)},
		now.Unix(), newJTI, jtiKeyPrefix, userSetPrefix).Slice()
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("rotate script: unexpected reply %v", res)
	}
	status, _ := res[0].(int64)
	switch status {
	case rotateStatusNotFound:
		return nil, ErrSessionNotFound
	case rotateStatusExpired:
		return nil, ErrSessionExpired
	case rotateStatusRotated:
		blob, _ := res[1].(string)
		var rs redisSession
		if err := json.Unmarshal([]byte(blob), &rs); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		return rs.toDomain(), nil
	default:
		return nil, fmt.Errorf("rotate script: unknown status %d", status)
	}
}

func (r *RedisStore) Revoke(ctx context.Context, refreshHash string) (bool, error) {
	n, err := revokeSessionLua.Run(ctx, r.rdb,
		[]string{sessionKey(refreshHash)},
		jtiKeyPrefix, userSetPrefix).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisStore) RevokeAllByUser(ctx context.Context, userID string) (int64, error) {
	hashes, err := r.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	var revoked int64
	for _, h := range hashes {
		ok, err := r.Revoke(ctx, h)
		if err != nil {
			return revoked, err
		}
		if ok {
			revoked++
		}
	}
	_ = r.rdb.Del(ctx, userSetKey(userID)).Err()
	return revoked, nil
}
