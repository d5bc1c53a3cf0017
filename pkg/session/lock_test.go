package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
)

type nopStore struct{}

func (nopStore) Find(ctx context.Context, userKey, accountID string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (nopStore) Upsert(ctx context.Context, userKey, accountID string, u domain.SessionUpdate) (*domain.Session, error) {
	return domain.NewSession(userKey, accountID, u.BoundFlowID, u.CurrentNodeID), nil
}
func (nopStore) Save(ctx context.Context, s *domain.Session) error                  { return nil }
func (nopStore) Delete(ctx context.Context, userKey, accountID string) error        { return nil }
func (nopStore) List(ctx context.Context, accountID string) ([]*domain.Session, error) { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		user := fmt.Sprintf("user-%d", i)
		_ = mgr.WithSession(ctx, user, "acct", func(ctx context.Context, c *Cursor) error {
			return c.Bind(ctx, "bot", "start")
		})
		_ = mgr.Delete(ctx, user, "acct")
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
