package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	store := auth.NewMemorySessionStore(time.Hour).WithClock(clk.Now)

	data, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, store.Save(ctx, "sid", auth.SessionData{"user_id": "1"}))

	data, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "1", data["user_id"])

	data["user_id"] = "2"
	again, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "1", again["user_id"], "loaded data must be a copy")

	clk.Advance(59 * time.Minute)
	_, err = store.Load(ctx, "sid")
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	data, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "1", data["user_id"], "loading touches the session")

	clk.Advance(61 * time.Minute)
	data, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Save(ctx, "sid", auth.SessionData{"k": "v"}))
	require.NoError(t, store.Destroy(ctx, "sid"))
	require.NoError(t, store.Destroy(ctx, "sid"))
	assert.Equal(t, 0, store.Len())
}

func TestDBSessionStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	clk := &clock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	store := auth.NewDBSessionStore(db, time.Hour).WithClock(clk.Now)

	data, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, store.Save(ctx, "sid", auth.SessionData{"user_id": "1", "forwarding_url": "/users"}))
	require.NoError(t, store.Save(ctx, "sid", auth.SessionData{"user_id": "2"}))

	data, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, auth.SessionData{"user_id": "2"}, data)

	clk.Advance(2 * time.Hour)
	data, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, store.Destroy(ctx, "sid"))
}

func TestDBSessionStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	clk := &clock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	store := auth.NewDBSessionStore(db, time.Hour).WithClock(clk.Now)

	require.NoError(t, store.Save(ctx, "old", auth.SessionData{"k": "v"}))
	clk.Advance(90 * time.Minute)
	require.NoError(t, store.Save(ctx, "fresh", auth.SessionData{"k": "v"}))

	n, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	data, err := store.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "v", data["k"])
}
