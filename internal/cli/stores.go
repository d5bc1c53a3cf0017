package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/config"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/adapters/redis"
	"github.com/aretw0/chatflow/pkg/adapters/sqlstore"
	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/aretw0/chatflow/pkg/persistence/middleware"
	"github.com/aretw0/chatflow/pkg/ports"
)

// backend is the persistence selected by the store configuration.
type backend struct {
	stores chatflow.Stores
	// locker serializes turns across processes; nil when one process owns the store.
	locker ports.DistributedLocker
	close  func() error
}

// openStores builds the stores for cfg.Driver and seals account tokens when
// an encryption key is configured.
func openStores(cfg config.StoreConfig, logger *slog.Logger) (*backend, error) {
	b, err := openDriver(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.EncryptionKey == "" {
		return b, nil
	}
	keys, err := middleware.ParseKeys(cfg.EncryptionKey, cfg.FallbackKeys...)
	if err != nil {
		_ = b.close()
		return nil, err
	}
	mw, err := middleware.NewEncryptionMiddleware(keys)
	if err != nil {
		_ = b.close()
		return nil, err
	}
	b.stores.Accounts = middleware.Chain(b.stores.Accounts, mw)
	logger.Info("Access token encryption enabled", "fallback_keys", len(keys.FallbackKeys))
	return b, nil
}

// openDriver builds the stores of one driver. Redis keeps sessions only;
// chatbots and accounts then live in memory and come from the seed file.
func openDriver(cfg config.StoreConfig, logger *slog.Logger) (*backend, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memoryBackend()

	case config.StoreRedis:
		sessions, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithTTL(cfg.SessionTTL),
			redis.WithPrefix(cfg.RedisPrefix),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		b, err := memoryBackend()
		if err != nil {
			_ = sessions.Client().Close()
			return nil, err
		}
		b.stores.Sessions = sessions
		b.locker = redis.NewLocker(sessions.Client(), cfg.RedisPrefix)
		b.close = sessions.Client().Close
		logger.Info("Using redis session store", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
		return b, nil

	case config.StorePostgres, config.StoreSQLite:
		open := sqlstore.NewPostgres
		if cfg.Driver == config.StoreSQLite {
			open = sqlstore.NewSQLite
		}
		store, err := open(sqlstore.WithDSN(cfg.DSN), sqlstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("Using SQL store", "driver", cfg.Driver)
		return &backend{
			stores: chatflow.Stores{
				Sessions: store.Sessions(),
				Chatbots: store.Chatbots(),
				Accounts: store.Accounts(),
			},
			close: store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func memoryBackend() (*backend, error) {
	bots, err := memory.NewChatbotStore()
	if err != nil {
		return nil, err
	}
	return &backend{
		stores: chatflow.Stores{
			Sessions: memory.NewSessionStore(),
			Chatbots: bots,
			Accounts: memory.NewAccountStore(),
		},
		close: func() error { return nil },
	}, nil
}

// ensureSeeded loads the seed file into the stores when one is configured.
func (b *backend) ensureSeeded(ctx context.Context, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	seed, err := LoadSeed(path)
	if err != nil {
		return err
	}
	if err := seed.Apply(ctx, b.stores); err != nil {
		return err
	}
	logger.Info("Seed loaded", "path", path, "accounts", len(seed.Accounts), "chatbots", len(seed.Chatbots))
	return nil
}

// OpenChatbots opens the configured stores read by the management tools.
// The returned func closes them.
func OpenChatbots(ctx context.Context, cfg config.Config, logger *slog.Logger) (*chatbots.Service, func() error, error) {
	b, err := openStores(cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := b.ensureSeeded(ctx, cfg.Store.Seed, logger); err != nil {
		_ = b.close()
		return nil, nil, err
	}
	return chatbots.New(b.stores.Chatbots, b.stores.Accounts, chatbots.WithLogger(logger)), b.close, nil
}
