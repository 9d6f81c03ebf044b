package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/pkg/helpers"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionKey is the redis hash holding a signed-in user's session.
func SessionKey(userID string) string { return "user:session:" + userID }

// SessionStore reads and writes session hashes. The hash carries user_id and email.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, sess entity.Session) error {
	key := SessionKey(sess.UserID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{"user_id": sess.UserID, "email": sess.Email})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*entity.Session, error) {
	data, err := s.rdb.HGetAll(ctx, SessionKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return sessionFromHash(data)
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return helpers.RedisDel(ctx, s.rdb, SessionKey(userID))
}

func sessionFromHash(data map[string]string) (*entity.Session, error) {
	if len(data) == 0 || data["user_id"] == "" {
		return nil, ErrSessionNotFound
	}
	return &entity.Session{UserID: data["user_id"], Email: data["email"]}, nil
}

// UserSession is a SessionProvider bound to one user id. Every call re-reads
// redis so a session deleted elsewhere ends the editing session.
type UserSession struct {
	Store  *SessionStore
	UserID string
}

func (u UserSession) Current(ctx context.Context) (*entity.Session, bool) {
	if u.Store == nil || u.UserID == "" {
		return nil, false
	}
	sess, err := u.Store.Get(ctx, u.UserID)
	if err != nil {
		return nil, false
	}
	return sess, true
}

var _ repository.SessionProvider = UserSession{}
