package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "chatflow:"
	maxTxRetries  = 5
)

// Store implements ports.SessionStore on Redis.
// Each session is a JSON string; a sorted set indexes session keys so that
// List avoids SCAN. With a TTL the index score is the expiry time and expired
// members are pruned lazily on List.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL expires idle sessions after ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New connects to addr and returns a Store.
func New(addr, password string, db int, opts ...Option) (*Store, error) {
	client := backend.NewClient(&backend.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying client, shared with the Locker.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

func (s *Store) key(sessionKey string) string {
	return s.prefix + "session:" + sessionKey
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) score(now time.Time) float64 {
	if s.ttl > 0 {
		return float64(now.Add(s.ttl).UnixMilli())
	}
	return float64(now.UnixMilli())
}

// Find loads a session.
func (s *Store) Find(ctx context.Context, userKey, accountID string) (*domain.Session, error) {
	return s.get(ctx, s.client, domain.SessionKey(accountID, userKey))
}

type getter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

func (s *Store) get(ctx context.Context, c getter, sessionKey string) (*domain.Session, error) {
	raw, err := c.Get(ctx, s.key(sessionKey)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", sessionKey, err)
	}
	if session.ChatState == nil {
		session.ChatState = make(map[string]any)
	}
	return &session, nil
}

func (s *Store) write(ctx context.Context, pipe backend.Pipeliner, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	pipe.Set(ctx, s.key(session.Key()), raw, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(session.UpdatedAt), Member: session.Key()})
	return nil
}

// Upsert updates the session pointer in an optimistic transaction.
func (s *Store) Upsert(ctx context.Context, userKey, accountID string, update domain.SessionUpdate) (*domain.Session, error) {
	sessionKey := domain.SessionKey(accountID, userKey)
	var result *domain.Session

	txf := func(tx *backend.Tx) error {
		session, err := s.get(ctx, tx, sessionKey)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			session = domain.NewSession(userKey, accountID, update.BoundFlowID, update.CurrentNodeID)
		case err != nil:
			return err
		default:
			session.CurrentNodeID = update.CurrentNodeID
			session.BoundFlowID = update.BoundFlowID
			session.UpdatedAt = time.Now().UTC()
		}

		var encodeErr error
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			encodeErr = s.write(ctx, pipe, session)
			return encodeErr
		})
		if encodeErr != nil {
			return encodeErr
		}
		if err != nil {
			return err
		}
		result = session
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key(sessionKey))
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis upsert failed: %w", err)
		}
		return result, nil
	}
	return nil, fmt.Errorf("redis upsert failed: %w", backend.TxFailedErr)
}

// Save writes the whole session.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	copied := session.Clone()
	copied.UpdatedAt = time.Now().UTC()
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = copied.UpdatedAt
	}

	pipe := s.client.TxPipeline()
	if err := s.write(ctx, pipe, copied); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

// Delete removes the session and its index entry.
func (s *Store) Delete(ctx context.Context, userKey, accountID string) error {
	sessionKey := domain.SessionKey(accountID, userKey)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionKey))
	pipe.ZRem(ctx, s.indexKey(), sessionKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// List returns the sessions of accountID, or all sessions when it is empty.
func (s *Store) List(ctx context.Context, accountID string) ([]*domain.Session, error) {
	if s.ttl > 0 {
		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
			return nil, fmt.Errorf("redis index cleanup failed: %w", err)
		}
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list failed: %w", err)
	}

	sessions := []*domain.Session{}
	for _, m := range members {
		if accountID != "" && !strings.HasPrefix(m, accountID+":") {
			continue
		}
		session, err := s.get(ctx, s.client, m)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if accountID != "" && session.AccountID != accountID {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
