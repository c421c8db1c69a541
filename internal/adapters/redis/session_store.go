// Package redis provides Redis-backed stores for sessions and grievance drafts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "session:"
	draftPrefix   = "draft:"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound error = apperrors.NotFound("not found")

	errEmptyID = errors.New("id cannot be empty")
	errExpired = errors.New("record is already expired")
	errCorrupt = errors.New("undecodable record")
)

// SessionStore keeps sessions in Redis with a TTL matching ExpiresAt.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, sessionPrefix)
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, now: time.Now}
}

// Save writes sess. Sessions that have already expired are rejected.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errEmptyID
	}
	return setJSON(ctx, s.client, s.prefix+sess.ID, sess, sess.ExpiresAt.Sub(s.now()))
}

// Get returns the session stored under id. Undecodable records are reported
// as domainauth.ErrCorruptSession; expiry is left to the caller.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	var sess domainauth.Session
	err := getJSON(ctx, s.client, s.prefix, id, &sess)
	if errors.Is(err, errCorrupt) {
		return domainauth.Session{}, fmt.Errorf("%w: %w", domainauth.ErrCorruptSession, err)
	}
	if err != nil {
		return domainauth.Session{}, err
	}
	return sess, nil
}

// Delete removes the session. Deleting an absent id is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return del(ctx, s.client, s.prefix, id)
}

// Scan lists the ids of stored sessions.
func (s *SessionStore) Scan(ctx context.Context, limit int) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, k[len(s.prefix):])
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

func setJSON(ctx context.Context, client redis.UniversalClient, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		return errExpired
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func getJSON(ctx context.Context, client redis.UniversalClient, prefix, id string, v any) error {
	if id == "" {
		return ErrNotFound
	}
	data, err := client.Get(ctx, prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", errCorrupt, err)
	}
	return nil
}

func del(ctx context.Context, client redis.UniversalClient, prefix, id string) error {
	if id == "" {
		return nil
	}
	if err := client.Del(ctx, prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
