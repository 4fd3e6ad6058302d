// Package session persists conversation state in Redis and the turn log in
// PostgreSQL.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadbot/internal/common/database"
	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/models"
)

const (
	defaultKeyPrefix  = "session:"
	defaultPendingKey = "leads:pending"
)

// StoreOptions tunes the Redis layout. Zero values fall back to defaults.
type StoreOptions struct {
	KeyPrefix  string
	PendingKey string
	TTL        time.Duration
}

// RedisStore keeps one JSON document per session key plus a set of keys
// whose lead creation must be retried.
type RedisStore struct {
	rdb        redis.Cmdable
	prefix     string
	pendingKey string
	ttl        time.Duration
	now        func() time.Time
}

func NewRedisStore(rdb redis.Cmdable, opts StoreOptions) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	if opts.PendingKey == "" {
		opts.PendingKey = defaultPendingKey
	}
	return &RedisStore{
		rdb:        rdb,
		prefix:     opts.KeyPrefix,
		pendingKey: opts.PendingKey,
		ttl:        opts.TTL,
		now:        time.Now,
	}
}

// Load returns the stored session, or a fresh one when the key is unknown.
// A stored document that no longer decodes is ErrSessionCorrupted.
func (s *RedisStore) Load(ctx context.Context, key string) (*models.ConversationSession, error) {
	var sess models.ConversationSession
	err := database.GetJSON(ctx, s.rdb, s.prefix+key, &sess)
	switch {
	case err == nil:
		if sess.Slots == nil {
			sess.Slots = models.Slots{}
		}
		if sess.SessionKey == "" {
			sess.SessionKey = key
		}
		return &sess, nil
	case errors.Is(err, redis.Nil):
		return models.NewSession(key, s.now().UTC()), nil
	}

	var decodeErr *database.DecodeError
	if errors.As(err, &decodeErr) {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSessionCorrupted, err)
	}
	return nil, fmt.Errorf("%w: load session: %v", apperrors.ErrExternalServiceUnavailable, err)
}

// Save bumps the version, stamps UpdatedAt and writes the session back.
func (s *RedisStore) Save(ctx context.Context, sess *models.ConversationSession) error {
	sess.Version++
	sess.UpdatedAt = s.now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}
	if err := database.SetJSON(ctx, s.rdb, s.prefix+sess.SessionKey, sess, s.ttl); err != nil {
		sess.Version--
		return fmt.Errorf("%w: save session: %v", apperrors.ErrExternalServiceUnavailable, err)
	}
	return nil
}

// MarkPending records that key has a confirmed request without a lead.
func (s *RedisStore) MarkPending(ctx context.Context, key string) error {
	return s.rdb.SAdd(ctx, s.pendingKey, key).Err()
}

// ClearPending drops key from the retry set.
func (s *RedisStore) ClearPending(ctx context.Context, key string) error {
	return s.rdb.SRem(ctx, s.pendingKey, key).Err()
}

// PendingKeys lists the session keys awaiting a lead retry.
func (s *RedisStore) PendingKeys(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, s.pendingKey).Result()
}
