package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// ChatbotStore is the source of flow graphs. Each chatbot carries one flow.
type ChatbotStore interface {
	// Get returns the chatbot with the given id or domain.ErrChatbotNotFound.
	Get(ctx context.Context, id string) (*domain.Chatbot, error)

	// ListByAccount returns every chatbot of the account, oldest first.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Chatbot, error)

	// FindLive returns the chatbot of the account whose mode is active or test.
	// Returns domain.ErrChatbotNotFound when none is live.
	FindLive(ctx context.Context, accountID string) (*domain.Chatbot, error)

	// Save creates or replaces the chatbot, testers included.
	Save(ctx context.Context, bot *domain.Chatbot) error

	// Delete removes the chatbot. Deleting a missing chatbot is not an error.
	Delete(ctx context.Context, id string) error

	// AddTester appends a tester to the allow-list. Adding an existing tester is a no-op.
	AddTester(ctx context.Context, chatbotID string, tester domain.Tester) error

	// RemoveTester drops a tester from the allow-list.
	RemoveTester(ctx context.Context, chatbotID, userPSID string) error
}

// AccountStore persists connected messaging accounts.
type AccountStore interface {
	// Get returns the account with the given id or domain.ErrAccountNotFound.
	Get(ctx context.Context, id string) (*domain.Account, error)

	// FindByExternalID looks an account up by its channel-side id.
	FindByExternalID(ctx context.Context, externalID string) (*domain.Account, error)

	Save(ctx context.Context, account *domain.Account) error
	List(ctx context.Context) ([]*domain.Account, error)
}
