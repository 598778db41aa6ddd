package penpost

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLSessionLifecycle(t *testing.T) {
	ss := NewSQLSessionStore(newTestStore(t))
	ctx := context.Background()

	sess, err := ss.Create(ctx, Identity{UserID: "u1", Username: "alice"}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	got, err := ss.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Username: "alice"}, got.Identity())

	require.NoError(t, ss.Delete(ctx, sess.ID))
	_, err = ss.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, ss.Delete(ctx, sess.ID), "deleting twice is fine")
}

func TestSQLSessionIDsAreUnique(t *testing.T) {
	ss := NewSQLSessionStore(newTestStore(t))
	ctx := context.Background()
	a, err := ss.Create(ctx, Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	b, err := ss.Create(ctx, Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSQLSessionExpiry(t *testing.T) {
	ss := NewSQLSessionStore(newTestStore(t))
	ctx := context.Background()
	now := testClock
	ss.now = func() time.Time { return now }

	sess, err := ss.Create(ctx, Identity{UserID: "u1", Username: "alice"}, time.Hour)
	require.NoError(t, err)

	now = testClock.Add(59 * time.Minute)
	_, err = ss.Get(ctx, sess.ID)
	require.NoError(t, err)

	now = testClock.Add(time.Hour)
	_, err = ss.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := ss.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLSessionUnknown(t *testing.T) {
	ss := NewSQLSessionStore(newTestStore(t))
	_, err := ss.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func TestRedisSessionLifecycle(t *testing.T) {
	rdb, _ := newTestRedis(t)
	rs := NewRedisSessionStore(rdb)
	ctx := context.Background()

	sess, err := rs.Create(ctx, Identity{UserID: "u1", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	got, err := rs.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Username: "alice"}, got.Identity())

	ttl, err := rdb.TTL(ctx, rs.prefix+sess.ID).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	require.NoError(t, rs.Delete(ctx, sess.ID))
	_, err = rs.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, rs.Delete(ctx, sess.ID), "deleting twice is fine")
}

func TestRedisSessionExpires(t *testing.T) {
	rdb, mr := newTestRedis(t)
	rs := NewRedisSessionStore(rdb)
	ctx := context.Background()

	sess, err := rs.Create(ctx, Identity{UserID: "u1", Username: "alice"}, time.Hour)
	require.NoError(t, err)

	mr.FastForward(time.Hour)
	_, err = rs.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessionUnavailable(t *testing.T) {
	rdb, mr := newTestRedis(t)
	rs := NewRedisSessionStore(rdb)
	mr.Close()

	_, err := rs.Get(context.Background(), "any")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestInitUsesRedisSessionsWhenConfigured(t *testing.T) {
	_, mr := newTestRedis(t)
	a := newTestApp(t, func(a *App) { a.Config.RedisURL = "redis://" + mr.Addr() })
	_, ok := a.Sessions.(*RedisSessionStore)
	assert.True(t, ok)
	assert.Nil(t, a.stopSweep, "redis expires keys itself")

	b := newBrowser(t, a)
	b.signupAndLogin("rita", "pw")
	resp, body := b.get("/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Log out (rita)")
}
