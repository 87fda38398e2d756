package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiresOnRead(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "blogs", []byte("v1"), time.Minute))

	got, ok, err := m.Get(ctx, "blogs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	now = now.Add(time.Minute)
	_, ok, err = m.Get(ctx, "blogs")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len(), "expired entry is dropped by the read")
}

func TestMemorySweepsExpiredOnWrite(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	const stale = 10
	for i := 0; i < stale; i++ {
		require.NoError(t, m.Set(ctx, "stale:"+strconv.Itoa(i), []byte("v"), time.Minute))
	}
	now = now.Add(2 * time.Minute)

	for i := 0; i < sweepEvery-stale-1; i++ {
		require.NoError(t, m.Set(ctx, "live:"+strconv.Itoa(i), []byte("v"), 0))
	}
	assert.Equal(t, sweepEvery-1, m.Len(), "no sweep before the threshold")

	require.NoError(t, m.Set(ctx, "trigger", []byte("v"), 0))
	assert.Equal(t, sweepEvery-stale, m.Len(), "expired entries never read are dropped")

	_, ok, err := m.Get(ctx, "live:0")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * 365 * time.Hour)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryDeleteAndCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "a", buf, time.Hour))
	require.NoError(t, m.Set(ctx, "b", []byte("x"), time.Hour))
	buf[0] = 'z'

	got, _, _ := m.Get(ctx, "a")
	assert.Equal(t, "abc", string(got))

	require.NoError(t, m.Delete(ctx, "a", "b", "missing"))
	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "b")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type listing struct {
		Title string `json:"title"`
	}
	require.NoError(t, SetJSON(ctx, m, "l", []listing{{Title: "Spring sale"}}, time.Minute))

	var out []listing
	ok, err := GetJSON(ctx, m, "l", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Spring sale", out[0].Title)

	ok, err = GetJSON(ctx, m, "absent", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	r := NewRedis(client, "locarto:")

	require.NoError(t, r.Set(ctx, "product:1", []byte(`{"id":1}`), time.Minute))
	assert.True(t, mr.Exists("locarto:product:1"))

	got, ok, err := r.Get(ctx, "product:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(got))

	mr.FastForward(2 * time.Minute)
	_, ok, err = r.Get(ctx, "product:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, r.Delete(ctx, "a"))
	_, ok, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Delete(ctx))
}
