package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries() domain.TimeSeries {
	start := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.Observation, 5)
	for i := range obs {
		obs[i] = domain.Observation{Date: domain.AddDays(start, i), Value: 10 + float64(i)/4}
	}
	return domain.NewTimeSeries(obs)
}

func TestNew_AssignsID(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New("", "W-1", testSeries(), now, time.Hour)

	assert.True(t, ValidID(s.ID))
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)

	kept := New(s.ID, "W-2", testSeries(), now, time.Hour)
	assert.Equal(t, s.ID, kept.ID)
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(NewID()))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("not-a-session"))
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour, clockwork.NewFakeClock())

	s := New("", "W-1", testSeries(), time.Now(), time.Hour)
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "W-1", got.WellID)
	assert.Equal(t, 5, got.Series.Len())

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore(10, 30*time.Minute, clock)

	s := New("", "W-1", testSeries(), clock.Now(), 30*time.Minute)
	require.NoError(t, store.Put(ctx, s))

	clock.Advance(29 * time.Minute)
	_, err := store.Get(ctx, s.ID)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2, time.Hour, clockwork.NewFakeClock())

	a := New("", "A", testSeries(), time.Now(), time.Hour)
	b := New("", "B", testSeries(), time.Now(), time.Hour)
	c := New("", "C", testSeries(), time.Now(), time.Hour)
	require.NoError(t, store.Put(ctx, a))
	require.NoError(t, store.Put(ctx, b))
	_, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, c))

	assert.Equal(t, 2, store.Len())
	_, err = store.Get(ctx, b.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour, nil)

	s := New("", "W-1", testSeries(), time.Now(), time.Hour)
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	got.WellID = "changed"

	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "W-1", again.WellID)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	fetched := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	s := New("", "W-9", testSeries(), fetched, time.Hour)
	require.NoError(t, store.Put(ctx, s))
	assert.True(t, mr.Exists(keyPrefix+s.ID))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "W-9", got.WellID)
	assert.True(t, fetched.Equal(got.FetchedAt))
	assert.Equal(t, s.Series.Observations(), got.Series.Observations())
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 10*time.Minute)

	s := New("", "W-1", testSeries(), time.Now(), 10*time.Minute)
	require.NoError(t, store.Put(ctx, s))
	assert.Equal(t, 10*time.Minute, mr.TTL(keyPrefix+s.ID))

	mr.FastForward(11 * time.Minute)
	_, err := store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Hour)

	s := New("", "W-1", testSeries(), time.Now(), time.Hour)
	require.NoError(t, store.Put(ctx, s))
	require.NoError(t, store.Delete(ctx, s.ID))

	_, err := store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))
	_, err := store.Get(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_PingFailsWhenDown(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := DialRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = DialRedis(context.Background(), "://bad")
	require.Error(t, err)
}
