package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
)

// ChatbotStore implements ports.ChatbotStore in memory.
// Chatbots are copied through their JSON form on every read and write, so the
// flow graphs handed to the engine never alias stored data.
type ChatbotStore struct {
	mu   sync.RWMutex
	bots map[string][]byte
}

// NewChatbotStore creates a store seeded with bots.
func NewChatbotStore(bots ...*domain.Chatbot) (*ChatbotStore, error) {
	s := &ChatbotStore{bots: make(map[string][]byte)}
	for _, b := range bots {
		if err := s.Save(context.Background(), b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *ChatbotStore) decode(raw []byte) (*domain.Chatbot, error) {
	var bot domain.Chatbot
	if err := json.Unmarshal(raw, &bot); err != nil {
		return nil, fmt.Errorf("failed to decode chatbot: %w", err)
	}
	return &bot, nil
}

// Get returns a copy of the chatbot.
func (s *ChatbotStore) Get(ctx context.Context, id string) (*domain.Chatbot, error) {
	s.mu.RLock()
	raw, ok := s.bots[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrChatbotNotFound
	}
	return s.decode(raw)
}

// ListByAccount returns the chatbots of an account, oldest first.
func (s *ChatbotStore) ListByAccount(ctx context.Context, accountID string) ([]*domain.Chatbot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Chatbot{}
	for _, raw := range s.bots {
		bot, err := s.decode(raw)
		if err != nil {
			return nil, err
		}
		if bot.AccountID == accountID {
			out = append(out, bot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// FindLive returns the first chatbot of the account in active or test mode.
func (s *ChatbotStore) FindLive(ctx context.Context, accountID string) (*domain.Chatbot, error) {
	bots, err := s.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, b := range bots {
		if b.Mode.Live() {
			return b, nil
		}
	}
	return nil, domain.ErrChatbotNotFound
}

// Save creates or replaces the chatbot.
func (s *ChatbotStore) Save(ctx context.Context, bot *domain.Chatbot) error {
	if bot.ID == "" {
		return fmt.Errorf("chatbot missing ID")
	}
	raw, err := json.Marshal(bot)
	if err != nil {
		return fmt.Errorf("failed to marshal chatbot %s: %w", bot.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[bot.ID] = raw
	return nil
}

// Delete removes the chatbot.
func (s *ChatbotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bots, id)
	return nil
}

// AddTester appends tester unless already present.
func (s *ChatbotStore) AddTester(ctx context.Context, chatbotID string, tester domain.Tester) error {
	return s.update(chatbotID, func(bot *domain.Chatbot) {
		if !bot.HasTester(tester.UserPSID) {
			bot.Testers = append(bot.Testers, tester)
		}
	})
}

// RemoveTester drops a tester from the allow-list.
func (s *ChatbotStore) RemoveTester(ctx context.Context, chatbotID, userPSID string) error {
	return s.update(chatbotID, func(bot *domain.Chatbot) {
		kept := bot.Testers[:0]
		for _, t := range bot.Testers {
			if t.UserPSID != userPSID {
				kept = append(kept, t)
			}
		}
		bot.Testers = kept
	})
}

func (s *ChatbotStore) update(id string, fn func(*domain.Chatbot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.bots[id]
	if !ok {
		return domain.ErrChatbotNotFound
	}
	bot, err := s.decode(raw)
	if err != nil {
		return err
	}
	fn(bot)
	raw, err = json.Marshal(bot)
	if err != nil {
		return fmt.Errorf("failed to marshal chatbot %s: %w", id, err)
	}
	s.bots[id] = raw
	return nil
}

// AccountStore implements ports.AccountStore in memory.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewAccountStore creates a store seeded with accounts.
func NewAccountStore(accounts ...*domain.Account) *AccountStore {
	s := &AccountStore{accounts: make(map[string]domain.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = *a
	}
	return s
}

// Get returns a copy of the account.
func (s *AccountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

// FindByExternalID looks an account up by its channel-side id.
func (s *AccountStore) FindByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.ExternalID == externalID {
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// Save creates or replaces the account.
func (s *AccountStore) Save(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account missing ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
	return nil
}

// List returns every account ordered by id.
func (s *AccountStore) List(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
