// Package chatbots manages chatbots and the messaging accounts they answer for.
package chatbots

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/validator"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/google/uuid"
)

// TriggerLength is the length of generated test triggers.
const TriggerLength = 6

const triggerAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Service implements chatbot and account management.
type Service struct {
	bots     ports.ChatbotStore
	accounts ports.AccountStore
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a management service over the stores.
func New(bots ports.ChatbotStore, accounts ports.AccountStore, opts ...Option) *Service {
	s := &Service{
		bots:     bots,
		accounts: accounts,
		logger:   logging.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "chatbots")
	return s
}

// GenerateTrigger returns a random upper-case base36 code.
func GenerateTrigger() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(triggerAlphabet)))
	for i := 0; i < TriggerLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate trigger: %w", err)
		}
		b.WriteByte(triggerAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// CreateRequest holds the input of Create.
type CreateRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	AccountID string `json:"account_id" validate:"required"`
}

// Create stores a new chatbot with the default flow. It is active when the
// account has no live chatbot yet, inactive otherwise.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Chatbot, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.AccountID == "" {
		return nil, ErrAccountRequired
	}
	if _, err := s.accounts.Get(ctx, req.AccountID); err != nil {
		return nil, err
	}

	existing, err := s.bots.ListByAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chatbots: %w", err)
	}
	mode := domain.ModeActive
	for _, b := range existing {
		if strings.EqualFold(b.Name, req.Name) {
			return nil, ErrDuplicateName
		}
		if b.Mode.Live() {
			mode = domain.ModeInactive
		}
	}

	trigger, err := GenerateTrigger()
	if err != nil {
		return nil, err
	}
	now := s.now()
	bot := &domain.Chatbot{
		ID:          uuid.New().String(),
		Name:        req.Name,
		AccountID:   req.AccountID,
		Flow:        domain.DefaultFlow(),
		Mode:        mode,
		TestTrigger: trigger,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to create chatbot: %w", err)
	}
	s.logger.Info("Chatbot created", "chatbot_id", bot.ID, "account_id", bot.AccountID, "mode", bot.Mode)
	return bot, nil
}

// Get returns a chatbot.
func (s *Service) Get(ctx context.Context, id string) (*domain.Chatbot, error) {
	return s.bots.Get(ctx, id)
}

// ListByAccount returns the chatbots of an account.
func (s *Service) ListByAccount(ctx context.Context, accountID string) ([]*domain.Chatbot, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	return s.bots.ListByAccount(ctx, accountID)
}

// UpdateFlow replaces the flow of a chatbot. The graph is stored as given;
// the returned report lists lint findings for the author.
func (s *Service) UpdateFlow(ctx context.Context, id string, flow domain.FlowGraph) (*domain.Chatbot, validator.Report, error) {
	bot, err := s.bots.Get(ctx, id)
	if err != nil {
		return nil, validator.Report{}, err
	}
	bot.Flow = flow
	bot.UpdatedAt = s.now()
	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, validator.Report{}, fmt.Errorf("failed to update flow: %w", err)
	}
	report := validator.Lint(flow)
	s.logger.Info("Flow updated", "chatbot_id", id, "nodes", len(flow.Nodes), "edges", len(flow.Edges), "issues", len(report.Issues))
	return bot, report, nil
}

// Rename changes the chatbot name.
func (s *Service) Rename(ctx context.Context, id, name string) (*domain.Chatbot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	bot, err := s.bots.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := s.bots.ListByAccount(ctx, bot.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chatbots: %w", err)
	}
	for _, b := range siblings {
		if b.ID != id && strings.EqualFold(b.Name, name) {
			return nil, ErrDuplicateName
		}
	}
	bot.Name = name
	bot.UpdatedAt = s.now()
	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to rename chatbot: %w", err)
	}
	return bot, nil
}

// SetMode changes the mode of a chatbot. Making it live (active or test)
// deactivates every other chatbot of the same account.
func (s *Service) SetMode(ctx context.Context, id string, mode domain.Mode) (*domain.Chatbot, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	bot, err := s.bots.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if mode.Live() {
		siblings, err := s.bots.ListByAccount(ctx, bot.AccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to list chatbots: %w", err)
		}
		for _, other := range siblings {
			if other.ID == id || other.Mode == domain.ModeInactive {
				continue
			}
			other.Mode = domain.ModeInactive
			other.UpdatedAt = now
			if err := s.bots.Save(ctx, other); err != nil {
				return nil, fmt.Errorf("failed to deactivate chatbot %s: %w", other.ID, err)
			}
			s.logger.Info("Chatbot deactivated", "chatbot_id", other.ID, "replaced_by", id)
		}
	}

	bot.Mode = mode
	bot.UpdatedAt = now
	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to set mode: %w", err)
	}
	s.logger.Info("Chatbot mode changed", "chatbot_id", id, "mode", mode)
	return bot, nil
}

// Activate sets the chatbot to active.
func (s *Service) Activate(ctx context.Context, id string) (*domain.Chatbot, error) {
	return s.SetMode(ctx, id, domain.ModeActive)
}

// Deactivate sets the chatbot to inactive.
func (s *Service) Deactivate(ctx context.Context, id string) (*domain.Chatbot, error) {
	return s.SetMode(ctx, id, domain.ModeInactive)
}

// RegenerateTrigger issues a new test trigger and clears the testers.
func (s *Service) RegenerateTrigger(ctx context.Context, id string) (*domain.Chatbot, error) {
	bot, err := s.bots.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	trigger, err := GenerateTrigger()
	if err != nil {
		return nil, err
	}
	bot.TestTrigger = trigger
	bot.Testers = nil
	bot.UpdatedAt = s.now()
	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to regenerate trigger: %w", err)
	}
	return bot, nil
}

// ListTesters returns the allow-listed testers of a chatbot.
func (s *Service) ListTesters(ctx context.Context, id string) ([]domain.Tester, error) {
	bot, err := s.bots.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bot.Testers == nil {
		return []domain.Tester{}, nil
	}
	return bot.Testers, nil
}

// RemoveTester drops a tester from a chatbot.
func (s *Service) RemoveTester(ctx context.Context, id, userPSID string) error {
	if _, err := s.bots.Get(ctx, id); err != nil {
		return err
	}
	return s.bots.RemoveTester(ctx, id, userPSID)
}

// Delete removes a chatbot.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.bots.Get(ctx, id); err != nil {
		return err
	}
	if err := s.bots.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chatbot: %w", err)
	}
	s.logger.Info("Chatbot deleted", "chatbot_id", id)
	return nil
}
