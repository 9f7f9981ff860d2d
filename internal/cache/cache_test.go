package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytgate/internal/media"
)

func sampleInfo() *media.Info {
	return &media.Info{Title: "cached", Variants: []media.Variant{
		{ID: 22, Container: "mp4", Label: "720p", HasVideo: true, HasAudio: true, Size: 42},
	}}
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(time.Minute)
	defer func() { _ = m.Close() }()
	ctx := context.Background()

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)

	m.Set(ctx, "k", sampleInfo())
	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "cached", got.Title)
	assert.Equal(t, 22, got.Variants[0].ID)
}

func TestMemory_LazyExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	defer func() { _ = m.Close() }()
	ctx := context.Background()

	current := time.Now()
	m.now = func() time.Time { return current }

	m.Set(ctx, "k", sampleInfo())
	_, ok := m.Get(ctx, "k")
	require.True(t, ok)

	// One tick short of the TTL: still visible.
	current = current.Add(time.Minute - time.Millisecond)
	_, ok = m.Get(ctx, "k")
	require.True(t, ok)

	// At the TTL boundary the entry disappears and is deleted.
	current = current.Add(time.Millisecond)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory(time.Minute)
	defer func() { _ = m.Close() }()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				m.Set(ctx, "shared", sampleInfo())
				m.Get(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	_, ok := m.Get(ctx, "shared")
	assert.True(t, ok)
}

func TestRedis_SetGet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, time.Minute)
	defer func() { _ = r.Close() }()
	ctx := context.Background()

	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)

	r.Set(ctx, "k", sampleInfo())
	got, ok := r.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "cached", got.Title)
	require.Len(t, got.Variants, 1)
	assert.True(t, got.Variants[0].HasVideo)
}

func TestRedis_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, time.Minute)
	defer func() { _ = r.Close() }()
	ctx := context.Background()

	r.Set(ctx, "k", sampleInfo())
	mr.FastForward(time.Minute + time.Second)

	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_CorruptEntryDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, time.Minute)
	defer func() { _ = r.Close() }()
	ctx := context.Background()

	require.NoError(t, mr.Set(redisKeyPrefix+"k", "{not json"))
	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, mr.Exists(redisKeyPrefix+"k"))
}
