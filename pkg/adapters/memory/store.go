package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
)

// SessionStore implements ports.SessionStore in memory.
// Safe for concurrent use.
type SessionStore struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.Session),
	}
}

// Find returns a copy of the stored session.
func (s *SessionStore) Find(ctx context.Context, userKey, accountID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[domain.SessionKey(accountID, userKey)]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	// Copy on read so callers can't mutate the stored session by pointer.
	return session.Clone(), nil
}

// Upsert writes the session pointer, creating the session if needed.
func (s *SessionStore) Upsert(ctx context.Context, userKey, accountID string, update domain.SessionUpdate) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.SessionKey(accountID, userKey)
	session, ok := s.data[key]
	if !ok {
		session = domain.NewSession(userKey, accountID, update.BoundFlowID, update.CurrentNodeID)
		s.data[key] = session
		return session.Clone(), nil
	}
	session.CurrentNodeID = update.CurrentNodeID
	session.BoundFlowID = update.BoundFlowID
	session.UpdatedAt = time.Now().UTC()
	return session.Clone(), nil
}

// Save persists a copy of the whole session.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	copied := session.Clone()
	copied.UpdatedAt = time.Now().UTC()
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = copied.UpdatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[copied.Key()] = copied
	return nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, userKey, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, domain.SessionKey(accountID, userKey))
	return nil
}

// List returns the sessions of an account ordered by user key.
func (s *SessionStore) List(ctx context.Context, accountID string) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*domain.Session, 0, len(s.data))
	for _, session := range s.data {
		if accountID != "" && session.AccountID != accountID {
			continue
		}
		sessions = append(sessions, session.Clone())
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Key() < sessions[j].Key()
	})
	return sessions, nil
}
