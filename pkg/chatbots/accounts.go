package chatbots

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/google/uuid"
)

// ConnectRequest holds the input of Connect.
type ConnectRequest struct {
	ExternalID  string             `json:"external_id" validate:"required"`
	Type        domain.AccountType `json:"type" validate:"omitempty,oneof=messenger whatsapp"`
	Name        string             `json:"name"`
	AccessToken string             `json:"access_token" validate:"required"`
}

// Connect registers a messaging account or refreshes the token of an
// already connected one.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) (*domain.Account, error) {
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if req.ExternalID == "" {
		return nil, ErrExternalID
	}
	if req.Type == "" {
		req.Type = domain.AccountMessenger
	}

	now := s.now()
	account, err := s.accounts.FindByExternalID(ctx, req.ExternalID)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		account = &domain.Account{ID: uuid.New().String(), ExternalID: req.ExternalID, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	account.Type = req.Type
	account.AccessToken = req.AccessToken
	if req.Name != "" {
		account.Name = req.Name
	}
	account.UpdatedAt = now
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	s.logger.Info("Account connected", "account_id", account.ID, "external_id", account.ExternalID)
	return account, nil
}

// GetAccount returns an account.
func (s *Service) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.Get(ctx, id)
}

// ListAccounts returns every connected account.
func (s *Service) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return s.accounts.List(ctx)
}
