package redisstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	redisstate "github.com/jacksonwyt/byldur-sub000/internal/infra/state/redis"
)

func newTestRepo(t *testing.T) (*redisstate.RedisStateRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstate.NewRedisStateRepository(client, "test:"), mr
}

func TestPresence_AddListRemove(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPresence(ctx, 1, domain.PresenceEntry{
		ConnID: "c1", UserID: 10, DisplayName: "Ada",
	}))
	require.NoError(t, repo.AddPresence(ctx, 1, domain.PresenceEntry{
		ConnID: "c2", UserID: 11, DisplayName: "Grace",
	}))

	entries, err := repo.ListPresence(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, repo.RemovePresence(ctx, 1, "c1"))
	entries, err = repo.ListPresence(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c2", entries[0].ConnID)
}

func TestPresence_ProjectsAreIsolated(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPresence(ctx, 1, domain.PresenceEntry{ConnID: "c1", UserID: 10}))
	require.NoError(t, repo.AddPresence(ctx, 2, domain.PresenceEntry{ConnID: "c2", UserID: 11}))

	entries, err := repo.ListPresence(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint(10), entries[0].UserID)
}

func TestSetCursor_UpdatesEntry(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPresence(ctx, 1, domain.PresenceEntry{ConnID: "c1", UserID: 10}))
	require.NoError(t, repo.SetCursor(ctx, 1, "c1", &domain.CursorPosition{X: 5, Y: 9, ElementID: "hero"}))

	entries, err := repo.ListPresence(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Cursor)
	assert.Equal(t, 5, entries[0].Cursor.X)
	assert.Equal(t, "hero", entries[0].Cursor.ElementID)
}

func TestSetCursor_MissingEntryIsNotAnError(t *testing.T) {
	repo, _ := newTestRepo(t)
	assert.NoError(t, repo.SetCursor(context.Background(), 1, "ghost", &domain.CursorPosition{X: 1}))
}

func TestCleanupProjectState(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPresence(ctx, 1, domain.PresenceEntry{ConnID: "c1", UserID: 10}))
	require.NoError(t, repo.CleanupProjectState(ctx, 1))

	entries, err := repo.ListPresence(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckRateLimit(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limited, err := repo.CheckRateLimit(ctx, "ip1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, limited, "request %d should pass", i+1)
	}
	limited, err := repo.CheckRateLimit(ctx, "ip1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, limited)

	// A different key has its own counter.
	limited, err = repo.CheckRateLimit(ctx, "ip2", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, limited)
}

func TestRelayPublishSubscribe(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	frames, stop, err := repo.SubscribeRelay(ctx, 1)
	require.NoError(t, err)
	defer stop()

	env, err := domain.NewEnvelope(domain.EventChangeReceive, domain.Change{Kind: "style:set"})
	require.NoError(t, err)
	require.NoError(t, repo.PublishRelay(ctx, 1, domain.RelayFrame{OriginConnID: "c1", Envelope: env}))

	select {
	case frame := <-frames:
		assert.Equal(t, "c1", frame.OriginConnID)
		assert.Equal(t, domain.EventChangeReceive, frame.Envelope.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay frame")
	}
}
