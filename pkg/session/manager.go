package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, serializing turns per session.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks by session key

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Release with a fresh context so a canceled turn still unlocks.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// WithSession runs fn with exclusive access to the session of (userKey, accountID).
// The Cursor passed to fn writes through to the store without re-locking.
func (m *Manager) WithSession(ctx context.Context, userKey, accountID string, fn func(context.Context, *Cursor) error) error {
	return m.WithLock(ctx, domain.SessionKey(accountID, userKey), func(ctx context.Context) error {
		c := &Cursor{store: m.store, userKey: userKey, accountID: accountID}
		if err := c.load(ctx); err != nil {
			return err
		}
		return fn(ctx, c)
	})
}

// Find retrieves an existing session.
func (m *Manager) Find(ctx context.Context, userKey, accountID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, domain.SessionKey(accountID, userKey), func(ctx context.Context) error {
		var err error
		s, err = m.store.Find(ctx, userKey, accountID)
		return err
	})
	return s, err
}

// Save persists the whole session.
func (m *Manager) Save(ctx context.Context, s *domain.Session) error {
	return m.WithLock(ctx, s.Key(), func(ctx context.Context) error {
		return m.store.Save(ctx, s)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, userKey, accountID string) error {
	return m.WithLock(ctx, domain.SessionKey(accountID, userKey), func(ctx context.Context) error {
		return m.store.Delete(ctx, userKey, accountID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context, accountID string) ([]*domain.Session, error) {
	return m.store.List(ctx, accountID)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Cursor is the locked view of one session during a turn.
type Cursor struct {
	store     ports.SessionStore
	userKey   string
	accountID string
	session   *domain.Session
}

func (c *Cursor) load(ctx context.Context) error {
	s, err := c.store.Find(ctx, c.userKey, c.accountID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	c.session = s
	return nil
}

// Session returns the current session, or nil if none exists yet.
func (c *Cursor) Session() *domain.Session {
	return c.session
}

// Bind points the session at nodeID of flowID, creating it if needed.
func (c *Cursor) Bind(ctx context.Context, flowID, nodeID string) error {
	s, err := c.store.Upsert(ctx, c.userKey, c.accountID, domain.SessionUpdate{
		CurrentNodeID: nodeID,
		BoundFlowID:   flowID,
	})
	if err != nil {
		return fmt.Errorf("failed to bind session: %w", err)
	}
	c.session = s
	return nil
}

// Advance moves the session to nodeID within its bound flow.
func (c *Cursor) Advance(ctx context.Context, nodeID string) error {
	if c.session == nil {
		return domain.ErrSessionNotFound
	}
	return c.Bind(ctx, c.session.BoundFlowID, nodeID)
}
