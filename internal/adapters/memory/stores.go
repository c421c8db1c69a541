package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/domain/model"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/ports"
)

var (
	// ErrNotFound is returned when an id is absent or has expired.
	ErrNotFound error = apperrors.NotFound("not found")

	errEmptyID = errors.New("id cannot be empty")
	errExpired = errors.New("record is already expired")
)

// Options configures a store.
type Options struct {
	// Capacity bounds the number of records; the least recently used is evicted first.
	Capacity int
	Now      func() time.Time
}

// SessionStore keeps sessions in process memory until ExpiresAt.
type SessionStore struct {
	c *lru
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore returns an empty SessionStore.
func NewSessionStore(opts Options) *SessionStore {
	return &SessionStore{c: newLRU(opts.Capacity, opts.Now)}
}

// Save stores sess, replacing any session with the same id.
func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	return put(s.c, sess.ID, sess, sess.ExpiresAt)
}

// Get returns the session stored under id.
func (s *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	var sess domainauth.Session
	if err := fetch(s.c, id, &sess); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domainauth.Session{}, err
		}
		return domainauth.Session{}, fmt.Errorf("%w: %w", domainauth.ErrCorruptSession, err)
	}
	return sess, nil
}

// Delete removes the session. Unknown ids are ignored.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.c.delete(id)
	return nil
}

// Scan returns up to limit live session ids.
func (s *SessionStore) Scan(_ context.Context, limit int) ([]string, error) {
	return s.c.keys(limit), nil
}

// Len reports the number of stored sessions, including ones not yet swept.
func (s *SessionStore) Len() int { return s.c.len() }

// Sweep removes expired sessions and reports how many were dropped.
func (s *SessionStore) Sweep(context.Context) (int64, error) { return int64(s.c.sweep()), nil }

// DraftStore keeps grievance drafts in process memory until ExpiresAt.
type DraftStore struct {
	c *lru
}

var _ ports.DraftStore = (*DraftStore)(nil)

// NewDraftStore returns an empty DraftStore.
func NewDraftStore(opts Options) *DraftStore {
	return &DraftStore{c: newLRU(opts.Capacity, opts.Now)}
}

// Save stores d, replacing any draft with the same id.
func (s *DraftStore) Save(_ context.Context, d model.Draft) error {
	return put(s.c, d.ID, d, d.ExpiresAt)
}

// Get returns the draft stored under id.
func (s *DraftStore) Get(_ context.Context, id string) (model.Draft, error) {
	var d model.Draft
	if err := fetch(s.c, id, &d); err != nil {
		return model.Draft{}, err
	}
	return d, nil
}

// Update overwrites d if it is still stored.
func (s *DraftStore) Update(_ context.Context, d model.Draft) error {
	if d.ID == "" {
		return errEmptyID
	}
	b, err := encode(s.c, d, d.ExpiresAt)
	if err != nil {
		return err
	}
	if !s.c.replace(d.ID, b, d.ExpiresAt) {
		return ErrNotFound
	}
	return nil
}

// Take removes the draft and returns it.
func (s *DraftStore) Take(_ context.Context, id string) (model.Draft, error) {
	if id == "" {
		return model.Draft{}, ErrNotFound
	}
	b, ok := s.c.take(id)
	if !ok {
		return model.Draft{}, ErrNotFound
	}
	var d model.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return model.Draft{}, fmt.Errorf("decode record: %w", err)
	}
	return d, nil
}

// Sweep removes expired drafts and reports how many were dropped.
func (s *DraftStore) Sweep(context.Context) (int64, error) { return int64(s.c.sweep()), nil }

// Delete removes the draft.
func (s *DraftStore) Delete(_ context.Context, id string) error {
	s.c.delete(id)
	return nil
}

// records are stored encoded so callers never share memory with the store
func put(c *lru, id string, v any, expires time.Time) error {
	if id == "" {
		return errEmptyID
	}
	b, err := encode(c, v, expires)
	if err != nil {
		return err
	}
	c.set(id, b, expires)
	return nil
}

func encode(c *lru, v any, expires time.Time) ([]byte, error) {
	if !c.now().Before(expires) {
		return nil, errExpired
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

func fetch(c *lru, id string, out any) error {
	if id == "" {
		return ErrNotFound
	}
	b, ok := c.get(id)
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
