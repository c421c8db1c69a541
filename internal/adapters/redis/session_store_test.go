package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/domain/model"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id string) domainauth.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return domainauth.Session{
		ID:        id,
		UserID:    "user-123",
		Email:     "citizen@example.com",
		Name:      "Chetan Citizen",
		Role:      domainauth.RoleAdmin,
		IssuedAt:  now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	session := testSession("test-session-1")
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, domainauth.Role("admin"), got.Role)
	assert.True(t, got.Complete())
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)

	ttl, err := client.TTL(ctx, "session:test-session-1").Result()
	require.NoError(t, err)
	assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 5)
}

func TestSessionStore_GetMissing(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)

	_, err := store.Get(context.Background(), "non-existent")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Get(context.Background(), "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_Delete(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("test-session-delete")))
	require.NoError(t, store.Delete(ctx, "test-session-delete"))
	require.NoError(t, store.Delete(ctx, "test-session-delete"))
	require.NoError(t, store.Delete(ctx, ""))

	_, err := store.Get(ctx, "test-session-delete")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_RejectsExpiredAndEmpty(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	expired := testSession("expired")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.Error(t, store.Save(ctx, expired))

	require.Error(t, store.Save(ctx, testSession("")))
}

func TestSessionStore_CorruptRecord(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStoreWithPrefix(client, "test:session:")
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:session:bad", "{not json", time.Minute).Err())

	_, err := store.Get(ctx, "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainauth.ErrCorruptSession))
}

func TestSessionStore_Scan(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStoreWithPrefix(client, "scan:session:")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, testSession(id)))
	}

	ids, err := store.Scan(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

	ids, err = store.Scan(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestDraftStore_RoundTrip(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewDraftStore(client)
	ctx := context.Background()

	loc := geo.Coordinate{Lat: 19.0760, Lng: 72.8777}
	now := time.Now().UTC().Truncate(time.Second)
	d := model.Draft{ID: "01J0DRAFT", OwnerID: "u-cit", Location: &loc, CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.Save(ctx, d))

	got, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Location)
	assert.Equal(t, loc, *got.Location)
	assert.Equal(t, "u-cit", got.OwnerID)

	require.NoError(t, store.Delete(ctx, d.ID))
	_, err = store.Get(ctx, d.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDraftStore_UpdateAndTake(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewDraftStore(client)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	d := model.Draft{ID: "01J0TAKE", OwnerID: "u-cit", CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(time.Hour)}

	assert.True(t, apperrors.IsNotFound(store.Update(ctx, d)), "update never creates")

	require.NoError(t, store.Save(ctx, d))
	loc := geo.Coordinate{Lat: 12.9716, Lng: 77.5946}
	d.Location = &loc
	require.NoError(t, store.Update(ctx, d))

	taken, err := store.Take(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, taken.Location)
	assert.Equal(t, loc, *taken.Location)

	_, err = store.Take(ctx, d.ID)
	assert.True(t, apperrors.IsNotFound(err), "second take finds nothing")
	assert.True(t, apperrors.IsNotFound(store.Update(ctx, d)), "late update does not resurrect")
}
