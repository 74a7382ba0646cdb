package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-graph-service/internal/scheduler"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// runRegistryContract exercises the behavior every registry backend shares.
func runRegistryContract(t *testing.T, newRegistry func(t *testing.T) SessionRegistry) {
	ctx := context.Background()

	t.Run("latest before any upload", func(t *testing.T) {
		r := newRegistry(t)
		_, err := r.Latest(ctx)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("full lifecycle", func(t *testing.T) {
		r := newRegistry(t)
		raw := []byte("%PDF-1.4 fake")

		id, err := r.Create(ctx, raw)
		require.NoError(t, err)
		_, err = uuid.Parse(id)
		require.NoError(t, err)

		_, err = r.ExtractedText(ctx, id)
		assert.ErrorIs(t, err, ErrTextNotReady)

		require.NoError(t, r.SetExtractedText(ctx, id, "Jane Doe"))
		require.NoError(t, r.MarkLatest(ctx, id))

		latest, err := r.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, latest)

		text, err := r.ExtractedText(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", text)

		session, err := r.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, raw, session.Raw)
		assert.True(t, session.HasText)
		assert.False(t, session.CreatedAt.IsZero())
	})

	t.Run("empty text is ready", func(t *testing.T) {
		r := newRegistry(t)
		id, err := r.Create(ctx, []byte("x"))
		require.NoError(t, err)
		require.NoError(t, r.SetExtractedText(ctx, id, ""))

		text, err := r.ExtractedText(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("unknown session", func(t *testing.T) {
		r := newRegistry(t)
		missing := uuid.NewString()

		assert.ErrorIs(t, r.SetExtractedText(ctx, missing, "x"), ErrUnknownSession)
		assert.ErrorIs(t, r.MarkLatest(ctx, missing), ErrUnknownSession)
		_, err := r.ExtractedText(ctx, missing)
		assert.ErrorIs(t, err, ErrUnknownSession)
		_, err = r.Get(ctx, missing)
		assert.ErrorIs(t, err, ErrUnknownSession)
	})

	t.Run("ids are unique", func(t *testing.T) {
		r := newRegistry(t)
		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			id, err := r.Create(ctx, []byte("x"))
			require.NoError(t, err)
			assert.False(t, seen[id])
			seen[id] = true
		}
	})

	t.Run("concurrent mark latest picks one writer", func(t *testing.T) {
		r := newRegistry(t)
		ids := make([]string, 8)
		for i := range ids {
			id, err := r.Create(ctx, []byte("x"))
			require.NoError(t, err)
			ids[i] = id
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				assert.NoError(t, r.MarkLatest(ctx, id))
			}(id)
		}
		wg.Wait()

		latest, err := r.Latest(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, latest)
	})
}

func TestMemorySessionRegistry(t *testing.T) {
	runRegistryContract(t, func(t *testing.T) SessionRegistry {
		return NewMemorySessionRegistry(RetentionOptions{})
	})
}

func TestMemorySessionRegistry_CopiesRawBytes(t *testing.T) {
	r := NewMemorySessionRegistry(RetentionOptions{})
	ctx := context.Background()

	raw := []byte("original")
	id, err := r.Create(ctx, raw)
	require.NoError(t, err)
	raw[0] = 'X'

	session, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", string(session.Raw))
}

func TestMemorySessionRegistry_MaxCountKeepsLatest(t *testing.T) {
	r := NewMemorySessionRegistry(RetentionOptions{MaxCount: 2})
	ctx := context.Background()

	first, err := r.Create(ctx, []byte("1"))
	require.NoError(t, err)
	require.NoError(t, r.MarkLatest(ctx, first))

	second, err := r.Create(ctx, []byte("2"))
	require.NoError(t, err)
	third, err := r.Create(ctx, []byte("3"))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())

	_, err = r.Get(ctx, first)
	assert.NoError(t, err, "latest session must survive eviction")
	_, err = r.Get(ctx, second)
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = r.Get(ctx, third)
	assert.NoError(t, err)
}

func TestMemorySessionRegistry_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewMemorySessionRegistry(RetentionOptions{TTL: time.Minute})
	r.now = clock.Now
	ctx := context.Background()

	id, err := r.Create(ctx, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, r.SetExtractedText(ctx, id, "text"))
	require.NoError(t, r.MarkLatest(ctx, id))

	clock.Advance(59 * time.Second)
	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, latest)

	clock.Advance(time.Second)
	_, err = r.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = r.ExtractedText(ctx, id)
	assert.ErrorIs(t, err, ErrUnknownSession)

	assert.Equal(t, 1, r.Len())
	removed, err := r.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, r.Len())
}

func TestMemorySessionRegistry_SweepWithoutTTL(t *testing.T) {
	r := NewMemorySessionRegistry(RetentionOptions{})
	_, err := r.Create(context.Background(), []byte("x"))
	require.NoError(t, err)

	assert.Zero(t, r.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, r.Len())
}

func TestScheduleSessionSweep(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	r := NewMemorySessionRegistry(RetentionOptions{TTL: time.Minute})
	r.now = clock.Now

	_, err := r.Create(context.Background(), []byte("x"))
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	s := scheduler.NewScheduler(nil)
	scheduled, err := ScheduleSessionSweep(s, r, 20*time.Millisecond, nil)
	require.NoError(t, err)
	require.True(t, scheduled)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleSessionSweep_Disabled(t *testing.T) {
	s := scheduler.NewScheduler(nil)
	scheduled, err := ScheduleSessionSweep(s, NewMemorySessionRegistry(RetentionOptions{}), 0, nil)
	require.NoError(t, err)
	assert.False(t, scheduled)
	assert.Equal(t, 0, s.Len())
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	require.NoError(t, client.FlushDB(context.Background()).Err())
	return client
}

func TestRedisSessionRegistry(t *testing.T) {
	runRegistryContract(t, func(t *testing.T) SessionRegistry {
		r := NewRedisSessionRegistry(newTestRedisClient(t), RetentionOptions{})
		t.Cleanup(func() { _ = r.Close() })
		return r
	})
}

func TestRedisSessionRegistry_CompressesLargeUploads(t *testing.T) {
	client := newTestRedisClient(t)
	r := NewRedisSessionRegistry(client, RetentionOptions{})
	defer r.Close()
	ctx := context.Background()

	raw := []byte{}
	for i := 0; i < 200; i++ {
		raw = append(raw, "BT /F1 12 Tf (Senior Engineer) Tj ET\n"...)
	}
	id, err := r.Create(ctx, raw)
	require.NoError(t, err)

	algo, err := client.HGet(ctx, sessionKey(id), "compression").Result()
	require.NoError(t, err)
	assert.Equal(t, "br", algo)

	session, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, raw, session.Raw)
}

func TestRedisSessionRegistry_MaxCountAndSweep(t *testing.T) {
	client := newTestRedisClient(t)
	r := NewRedisSessionRegistry(client, RetentionOptions{MaxCount: 2})
	defer r.Close()
	ctx := context.Background()

	first, err := r.Create(ctx, []byte("1"))
	require.NoError(t, err)
	require.NoError(t, r.MarkLatest(ctx, first))
	second, err := r.Create(ctx, []byte("2"))
	require.NoError(t, err)
	_, err = r.Create(ctx, []byte("3"))
	require.NoError(t, err)

	_, err = r.Get(ctx, first)
	assert.NoError(t, err)
	_, err = r.Get(ctx, second)
	assert.ErrorIs(t, err, ErrUnknownSession)

	require.NoError(t, client.Del(ctx, sessionKey(first)).Err())
	removed, err := r.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
