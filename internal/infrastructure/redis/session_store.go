package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/zuetani/earth-tribe/internal/domain/repository"
)

const sessionKeyPrefix = "user:session:"

// SessionStore keeps the active session id per user in a hash at
// user:session:<uid>. Saving a new sid revokes the previous one.
type SessionStore struct {
	rdb *goredis.Client
	ttl time.Duration
	now func() time.Time
}

func NewSessionStore(rdb *goredis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func sessionKey(userID string) string { return sessionKeyPrefix + userID }

func (s *SessionStore) Save(ctx context.Context, userID, sid string) error {
	key := sessionKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    userID,
		"sid":        sid,
		"created_at": s.now().UTC().Format(time.RFC3339),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Active(ctx context.Context, userID, sid string) (bool, error) {
	if userID == "" || sid == "" {
		return false, nil
	}
	stored, err := s.rdb.HGet(ctx, sessionKey(userID), "sid").Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == sid, nil
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}

var _ repository.SessionStore = (*SessionStore)(nil)
