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

// ChatbotStore implements ports.ChatbotStore. Flows are stored as JSON
// documents; testers live in their own table.
type ChatbotStore struct {
	s *Store
}

const chatbotColumns = "id, account_id, name, flow_json, mode, test_trigger, created_at, updated_at"

func scanChatbot(row rowScanner) (*domain.Chatbot, error) {
	var bot domain.Chatbot
	var flow, mode string
	if err := row.Scan(&bot.ID, &bot.AccountID, &bot.Name, &flow, &mode, &bot.TestTrigger, &bot.CreatedAt, &bot.UpdatedAt); err != nil {
		return nil, err
	}
	bot.Mode = domain.Mode(mode)
	if err := json.Unmarshal([]byte(flow), &bot.Flow); err != nil {
		return nil, fmt.Errorf("chatbot %s: failed to decode flow: %w", bot.ID, err)
	}
	return &bot, nil
}

func (r *ChatbotStore) testers(ctx context.Context, e execer, bot *domain.Chatbot) error {
	rows, err := r.s.query(ctx, e, "SELECT user_psid, added_at FROM chatbot_testers WHERE chatbot_id = ? ORDER BY added_at, user_psid", bot.ID)
	if err != nil {
		return fmt.Errorf("failed to load testers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t domain.Tester
		if err := rows.Scan(&t.UserPSID, &t.AddedAt); err != nil {
			return fmt.Errorf("failed to scan tester: %w", err)
		}
		bot.Testers = append(bot.Testers, t)
	}
	return rows.Err()
}

func (r *ChatbotStore) get(ctx context.Context, e execer, id string) (*domain.Chatbot, error) {
	bot, err := scanChatbot(r.s.queryRow(ctx, e, "SELECT "+chatbotColumns+" FROM chatbots WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChatbotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chatbot: %w", err)
	}
	if err := r.testers(ctx, e, bot); err != nil {
		return nil, err
	}
	return bot, nil
}

// Get returns the chatbot with its testers.
func (r *ChatbotStore) Get(ctx context.Context, id string) (*domain.Chatbot, error) {
	return r.get(ctx, r.s.db, id)
}

func (r *ChatbotStore) list(ctx context.Context, where string, args ...any) ([]*domain.Chatbot, error) {
	rows, err := r.s.query(ctx, r.s.db, "SELECT "+chatbotColumns+" FROM chatbots WHERE "+where+" ORDER BY created_at, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chatbots: %w", err)
	}
	out := []*domain.Chatbot{}
	for rows.Next() {
		bot, err := scanChatbot(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, bot)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Testers are loaded after the cursor is closed; SQLite runs on one connection.
	for _, bot := range out {
		if err := r.testers(ctx, r.s.db, bot); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListByAccount returns the chatbots of an account, oldest first.
func (r *ChatbotStore) ListByAccount(ctx context.Context, accountID string) ([]*domain.Chatbot, error) {
	return r.list(ctx, "account_id = ?", accountID)
}

// FindLive returns the account's chatbot in active or test mode.
func (r *ChatbotStore) FindLive(ctx context.Context, accountID string) (*domain.Chatbot, error) {
	bots, err := r.list(ctx, "account_id = ? AND mode IN (?, ?)", accountID, string(domain.ModeActive), string(domain.ModeTest))
	if err != nil {
		return nil, err
	}
	if len(bots) == 0 {
		return nil, domain.ErrChatbotNotFound
	}
	if len(bots) > 1 {
		r.s.logger.Warn("Multiple live chatbots for account", "account_id", accountID, "count", len(bots))
	}
	return bots[0], nil
}

// Save creates or replaces the chatbot and its testers.
func (r *ChatbotStore) Save(ctx context.Context, bot *domain.Chatbot) error {
	flow, err := json.Marshal(bot.Flow)
	if err != nil {
		return fmt.Errorf("failed to encode flow: %w", err)
	}
	now := time.Now().UTC()
	created, updated := bot.CreatedAt, bot.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}

	err = r.s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := r.s.exec(ctx, tx, `INSERT INTO chatbots (`+chatbotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    account_id = excluded.account_id,
    name = excluded.name,
    flow_json = excluded.flow_json,
    mode = excluded.mode,
    test_trigger = excluded.test_trigger,
    updated_at = excluded.updated_at`,
			bot.ID, bot.AccountID, bot.Name, string(flow), string(bot.Mode), bot.TestTrigger, created, updated)
		if err != nil {
			return fmt.Errorf("failed to upsert chatbot: %w", err)
		}
		if _, err := r.s.exec(ctx, tx, "DELETE FROM chatbot_testers WHERE chatbot_id = ?", bot.ID); err != nil {
			return fmt.Errorf("failed to reset testers: %w", err)
		}
		for _, t := range bot.Testers {
			if err := r.insertTester(ctx, tx, bot.ID, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.s.logger.Error("ChatbotStore.Save failed", "chatbot_id", bot.ID, "err", err)
	}
	return err
}

func (r *ChatbotStore) insertTester(ctx context.Context, e execer, chatbotID string, t domain.Tester) error {
	added := t.AddedAt
	if added.IsZero() {
		added = time.Now().UTC()
	}
	_, err := r.s.exec(ctx, e, `INSERT INTO chatbot_testers (chatbot_id, user_psid, added_at) VALUES (?, ?, ?)
ON CONFLICT (chatbot_id, user_psid) DO NOTHING`, chatbotID, t.UserPSID, added)
	if err != nil {
		return fmt.Errorf("failed to add tester: %w", err)
	}
	return nil
}

// Delete removes the chatbot and its testers.
func (r *ChatbotStore) Delete(ctx context.Context, id string) error {
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.s.exec(ctx, tx, "DELETE FROM chatbot_testers WHERE chatbot_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete testers: %w", err)
		}
		if _, err := r.s.exec(ctx, tx, "DELETE FROM chatbots WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete chatbot: %w", err)
		}
		return nil
	})
}

// AddTester adds a tester to the chatbot's allow-list.
func (r *ChatbotStore) AddTester(ctx context.Context, chatbotID string, tester domain.Tester) error {
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := r.s.queryRow(ctx, tx, "SELECT 1 FROM chatbots WHERE id = ?", chatbotID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrChatbotNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load chatbot: %w", err)
		}
		return r.insertTester(ctx, tx, chatbotID, tester)
	})
}

// RemoveTester drops a tester from the allow-list.
func (r *ChatbotStore) RemoveTester(ctx context.Context, chatbotID, userPSID string) error {
	if _, err := r.s.exec(ctx, r.s.db, "DELETE FROM chatbot_testers WHERE chatbot_id = ? AND user_psid = ?", chatbotID, userPSID); err != nil {
		return fmt.Errorf("failed to remove tester: %w", err)
	}
	return nil
}
