package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// SessionStore persists the per-user conversation pointer.
// Sessions are keyed by the pair (userKey, accountID).
type SessionStore interface {
	// Find returns the session for the pair.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Find(ctx context.Context, userKey, accountID string) (*domain.Session, error)

	// Upsert writes CurrentNodeID and BoundFlowID, creating the session if needed,
	// and returns the stored session.
	Upsert(ctx context.Context, userKey, accountID string, update domain.SessionUpdate) (*domain.Session, error)

	// Save persists the whole session, including ChatState.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userKey, accountID string) error

	// List returns the sessions of an account, or of every account when accountID is empty.
	List(ctx context.Context, accountID string) ([]*domain.Session, error)
}
