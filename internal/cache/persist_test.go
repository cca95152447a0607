package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestPersister(t *testing.T) (*RedisPersister, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	p := NewRedisPersisterFromClient(client, time.Hour)
	t.Cleanup(func() { _ = p.Close() })
	return p, srv
}

func TestRedisPersister_RoundTripRestoresRefs(t *testing.T) {
	p, _ := newTestPersister(t)
	ctx := context.Background()

	src := NewMemory(testPolicies())
	id, err := src.WriteTree(sessionTree())
	require.NoError(t, err)
	src.Retain(id)

	img := src.Export()
	img.Watermark = 1234
	require.NoError(t, p.Save(ctx, "s", img))

	loaded, ok, err := p.Load(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1234), loaded.Watermark)
	require.NotZero(t, loaded.SavedAt)

	dst := NewMemory(testPolicies())
	dst.Import(loaded)
	require.Equal(t, src.IDs(), dst.IDs())

	session, ok := dst.Read("Session:s")
	require.True(t, ok)
	items := session.Items("workOrders")
	require.Len(t, items, 1)
	require.IsType(t, Ref{}, items[0])

	updated, ok := session.Int64("updatedAt")
	require.True(t, ok)
	require.Equal(t, int64(10), updated)

	// Restored roots keep the tree alive through GC.
	require.Zero(t, dst.GC())
}

func TestRedisPersister_LoadMissing(t *testing.T) {
	p, _ := newTestPersister(t)

	_, ok, err := p.Load(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisPersister_SaveSetsTTLAndDiscard(t *testing.T) {
	p, srv := newTestPersister(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, "s", Image{Records: map[string]Fragment{}}))
	require.Equal(t, time.Hour, srv.TTL(imageKey("s")))

	srv.FastForward(2 * time.Hour)
	_, ok, err := p.Load(ctx, "s")
	require.NoError(t, err)
	require.False(t, ok, "image should expire with its TTL")

	require.NoError(t, p.Save(ctx, "s", Image{}))
	require.NoError(t, p.Discard(ctx, "s"))
	_, ok, err = p.Load(ctx, "s")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRedisPersister_RejectsEmptyURL(t *testing.T) {
	_, err := NewRedisPersister(context.Background(), "  ")
	require.Error(t, err)
}
