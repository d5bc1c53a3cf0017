package session_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore adds latency to provoke lost updates if locking is missing.
type slowStore struct {
	*memory.SessionStore
}

func (s slowStore) Find(ctx context.Context, userKey, accountID string) (*domain.Session, error) {
	time.Sleep(2 * time.Millisecond)
	return s.SessionStore.Find(ctx, userKey, accountID)
}

func (s slowStore) Upsert(ctx context.Context, userKey, accountID string, u domain.SessionUpdate) (*domain.Session, error) {
	time.Sleep(2 * time.Millisecond)
	return s.SessionStore.Upsert(ctx, userKey, accountID, u)
}

func TestManager_SerializesReadModifyWrite(t *testing.T) {
	store := slowStore{memory.NewSessionStore()}
	manager := session.NewManager(store)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithSession(ctx, "u1", "a1", func(ctx context.Context, c *session.Cursor) error {
				n := 0
				if s := c.Session(); s != nil {
					n, _ = strconv.Atoi(s.CurrentNodeID)
				}
				return c.Bind(ctx, "bot", strconv.Itoa(n+1))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := manager.Find(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(writers), s.CurrentNodeID, "every increment must be observed")
}

func TestCursor_BindAndAdvance(t *testing.T) {
	manager := session.NewManager(memory.NewSessionStore())
	ctx := context.Background()

	err := manager.WithSession(ctx, "u1", "a1", func(ctx context.Context, c *session.Cursor) error {
		assert.Nil(t, c.Session())
		assert.ErrorIs(t, c.Advance(ctx, "x"), domain.ErrSessionNotFound)

		require.NoError(t, c.Bind(ctx, "bot-1", "start"))
		require.NoError(t, c.Advance(ctx, "m1"))
		assert.Equal(t, "m1", c.Session().CurrentNodeID)
		assert.Equal(t, "bot-1", c.Session().BoundFlowID)
		return nil
	})
	require.NoError(t, err)

	err = manager.WithSession(ctx, "u1", "a1", func(ctx context.Context, c *session.Cursor) error {
		require.NotNil(t, c.Session())
		assert.Equal(t, "m1", c.Session().CurrentNodeID)
		return nil
	})
	require.NoError(t, err)
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("redis down")
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
	ttl  time.Duration
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	l.ttl = ttl
	return func(context.Context) error { return nil }, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("uses session key and ttl", func(t *testing.T) {
		locker := &recordingLocker{}
		manager := session.NewManager(memory.NewSessionStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
		err := manager.WithSession(ctx, "u1", "a1", func(ctx context.Context, c *session.Cursor) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, []string{"a1:u1"}, locker.keys)
		assert.Equal(t, 5*time.Second, locker.ttl)
	})

	t.Run("lock failure aborts the turn", func(t *testing.T) {
		manager := session.NewManager(memory.NewSessionStore(), session.WithLocker(failingLocker{}))
		called := false
		err := manager.WithSession(ctx, "u1", "a1", func(ctx context.Context, c *session.Cursor) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}
