package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
)

// AccountStore implements ports.AccountStore.
type AccountStore struct {
	s *Store
}

const accountColumns = "id, external_id, type, name, access_token, created_at, updated_at"

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var typ string
	if err := row.Scan(&a.ID, &a.ExternalID, &typ, &a.Name, &a.AccessToken, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Type = domain.AccountType(typ)
	return &a, nil
}

func (r *AccountStore) one(ctx context.Context, where string, arg any) (*domain.Account, error) {
	a, err := scanAccount(r.s.queryRow(ctx, r.s.db, "SELECT "+accountColumns+" FROM accounts WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return a, nil
}

// Get returns the account by id.
func (r *AccountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	return r.one(ctx, "id = ?", id)
}

// FindByExternalID returns the account by its page id.
func (r *AccountStore) FindByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	return r.one(ctx, "external_id = ?", externalID)
}

// Save creates or replaces the account.
func (r *AccountStore) Save(ctx context.Context, a *domain.Account) error {
	now := time.Now().UTC()
	created, updated := a.CreatedAt, a.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	_, err := r.s.exec(ctx, r.s.db, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    external_id = excluded.external_id,
    type = excluded.type,
    name = excluded.name,
    access_token = excluded.access_token,
    updated_at = excluded.updated_at`,
		a.ID, a.ExternalID, string(a.Type), a.Name, a.AccessToken, created, updated)
	if err != nil {
		r.s.logger.Error("AccountStore.Save failed", "account_id", a.ID, "err", err)
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// List returns every account ordered by creation.
func (r *AccountStore) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.s.query(ctx, r.s.db, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	out := []*domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
