package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
)

// SessionStore implements ports.SessionStore on a SQL table.
type SessionStore struct {
	s *Store
}

const sessionColumns = "user_key, account_id, current_node_id, bound_flow_id, chat_state, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	var state string
	if err := row.Scan(&sess.UserKey, &sess.AccountID, &sess.CurrentNodeID, &sess.BoundFlowID, &state, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	sess.ChatState = make(map[string]any)
	if state != "" {
		if err := json.Unmarshal([]byte(state), &sess.ChatState); err != nil {
			return nil, fmt.Errorf("failed to decode chat state: %w", err)
		}
	}
	return &sess, nil
}

// Find returns the session for the pair.
func (r *SessionStore) Find(ctx context.Context, userKey, accountID string) (*domain.Session, error) {
	return r.find(ctx, r.s.db, userKey, accountID)
}

func (r *SessionStore) find(ctx context.Context, e execer, userKey, accountID string) (*domain.Session, error) {
	row := r.s.queryRow(ctx, e, "SELECT "+sessionColumns+" FROM sessions WHERE account_id = ? AND user_key = ?", accountID, userKey)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// Upsert moves the session pointer, creating the row if needed. ChatState is kept.
func (r *SessionStore) Upsert(ctx context.Context, userKey, accountID string, update domain.SessionUpdate) (*domain.Session, error) {
	now := time.Now().UTC()
	var out *domain.Session
	err := r.s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := r.s.exec(ctx, tx, `INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, '{}', ?, ?)
ON CONFLICT (account_id, user_key) DO UPDATE SET
    current_node_id = excluded.current_node_id,
    bound_flow_id = excluded.bound_flow_id,
    updated_at = excluded.updated_at`,
			userKey, accountID, update.CurrentNodeID, update.BoundFlowID, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert session: %w", err)
		}
		out, err = r.find(ctx, tx, userKey, accountID)
		return err
	})
	if err != nil {
		r.s.logger.Error("SessionStore.Upsert failed", "account_id", accountID, "err", err)
		return nil, err
	}
	return out, nil
}

// Save persists the whole session.
func (r *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	state, err := json.Marshal(sess.ChatState)
	if err != nil {
		return fmt.Errorf("failed to encode chat state: %w", err)
	}
	if sess.ChatState == nil {
		state = []byte("{}")
	}
	created := sess.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := sess.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err = r.s.exec(ctx, r.s.db, `INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, user_key) DO UPDATE SET
    current_node_id = excluded.current_node_id,
    bound_flow_id = excluded.bound_flow_id,
    chat_state = excluded.chat_state,
    updated_at = excluded.updated_at`,
		sess.UserKey, sess.AccountID, sess.CurrentNodeID, sess.BoundFlowID, string(state), created, updated)
	if err != nil {
		r.s.logger.Error("SessionStore.Save failed", "account_id", sess.AccountID, "err", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (r *SessionStore) Delete(ctx context.Context, userKey, accountID string) error {
	if _, err := r.s.exec(ctx, r.s.db, "DELETE FROM sessions WHERE account_id = ? AND user_key = ?", accountID, userKey); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns the sessions of an account, or all sessions when accountID is empty.
func (r *SessionStore) List(ctx context.Context, accountID string) ([]*domain.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions"
	var args []any
	if accountID != "" {
		query += " WHERE account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.s.query(ctx, r.s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := []*domain.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
