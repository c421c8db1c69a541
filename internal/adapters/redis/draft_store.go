package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civicconnect/portal/internal/domain/model"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/redis/go-redis/v9"
)

// DraftStore keeps grievance drafts in Redis until ExpiresAt.
type DraftStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

var _ ports.DraftStore = (*DraftStore)(nil)

// NewDraftStore creates a Redis-based draft store.
func NewDraftStore(client redis.UniversalClient) *DraftStore {
	return &DraftStore{client: client, now: time.Now}
}

// Save writes d with a TTL matching its expiry.
func (s *DraftStore) Save(ctx context.Context, d model.Draft) error {
	if d.ID == "" {
		return errEmptyID
	}
	return setJSON(ctx, s.client, draftPrefix+d.ID, d, d.ExpiresAt.Sub(s.now()))
}

// Get returns the draft stored under id.
func (s *DraftStore) Get(ctx context.Context, id string) (model.Draft, error) {
	var d model.Draft
	if err := getJSON(ctx, s.client, draftPrefix, id, &d); err != nil {
		return model.Draft{}, err
	}
	return d, nil
}

// Update overwrites d only if its key still exists (SET XX).
func (s *DraftStore) Update(ctx context.Context, d model.Draft) error {
	if d.ID == "" {
		return errEmptyID
	}
	ttl := d.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errExpired
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	err = s.client.SetArgs(ctx, draftPrefix+d.ID, data, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis set xx: %w", err)
	}
	return nil
}

// Take reads and deletes the draft in one GETDEL.
func (s *DraftStore) Take(ctx context.Context, id string) (model.Draft, error) {
	if id == "" {
		return model.Draft{}, ErrNotFound
	}
	data, err := s.client.GetDel(ctx, draftPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Draft{}, ErrNotFound
	}
	if err != nil {
		return model.Draft{}, fmt.Errorf("redis getdel: %w", err)
	}
	var d model.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return model.Draft{}, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	return d, nil
}

// Delete removes the draft.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	return del(ctx, s.client, draftPrefix, id)
}
