// Package config loads chatflow settings from a YAML or JSON file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Dispatch modes.
const (
	DispatchInline = "inline"
	DispatchQueue  = "queue"
)

// Defaults.
const (
	DefaultAddr         = ":8080"
	DefaultMaxHops      = 50
	DefaultGraphBaseURL = "https://graph.facebook.com"
	DefaultGraphVersion = "v20.0"
	DefaultSQLitePath   = "data/chatflow.db"
	DefaultServiceName  = "chatflow"
	DefaultRedisPrefix  = "chatflow:"
)

// StoreConfig selects and configures persistence.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the Postgres connection string or the SQLite file path.
	DSN           string        `yaml:"dsn" json:"dsn"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" json:"redis_password"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix" json:"redis_prefix"`
	SessionTTL    time.Duration `yaml:"session_ttl" json:"session_ttl"`
	// Seed is a file of accounts and chatbots loaded into the memory store at startup.
	Seed string `yaml:"seed" json:"seed"`
	// EncryptionKey seals account access tokens at rest (base64, 32 bytes).
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	// FallbackKeys still open tokens sealed before a key rotation.
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// MetaConfig holds Messenger platform settings.
type MetaConfig struct {
	VerifyToken  string `yaml:"verify_token" json:"verify_token"`
	AppSecret    string `yaml:"app_secret" json:"app_secret"`
	GraphBaseURL string `yaml:"graph_base_url" json:"graph_base_url"`
	GraphVersion string `yaml:"graph_version" json:"graph_version"`
}

// EngineConfig tunes traversal.
type EngineConfig struct {
	MaxHops int           `yaml:"max_hops" json:"max_hops"`
	LockTTL time.Duration `yaml:"lock_ttl" json:"lock_ttl"`
}

// TracingConfig enables OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// Config is the full application configuration.
type Config struct {
	Addr       string        `yaml:"addr" json:"addr"`
	LogLevel   string        `yaml:"log_level" json:"log_level"`
	LogFormat  string        `yaml:"log_format" json:"log_format"`
	AdminToken string        `yaml:"admin_token" json:"admin_token"`
	Dispatch   string        `yaml:"dispatch" json:"dispatch"`
	Store      StoreConfig   `yaml:"store" json:"store"`
	Meta       MetaConfig    `yaml:"meta" json:"meta"`
	Engine     EngineConfig  `yaml:"engine" json:"engine"`
	Tracing    TracingConfig `yaml:"tracing" json:"tracing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:      DefaultAddr,
		LogLevel:  "info",
		LogFormat: "text",
		Dispatch:  DispatchQueue,
		Store:     StoreConfig{Driver: StoreMemory},
		Meta: MetaConfig{
			GraphBaseURL: DefaultGraphBaseURL,
			GraphVersion: DefaultGraphVersion,
		},
		Engine:  EngineConfig{MaxHops: DefaultMaxHops},
		Tracing: TracingConfig{ServiceName: DefaultServiceName},
	}
}

// Load builds the configuration. path may be empty; envFiles default to ".env"
// and missing .env files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CHATFLOW_ADDR", &cfg.Addr)
	str("PORT", &cfg.Addr)
	str("CHATFLOW_LOG_LEVEL", &cfg.LogLevel)
	str("CHATFLOW_LOG_FORMAT", &cfg.LogFormat)
	str("CHATFLOW_ADMIN_TOKEN", &cfg.AdminToken)
	str("CHATFLOW_DISPATCH", &cfg.Dispatch)
	str("CHATFLOW_STORE", &cfg.Store.Driver)
	str("CHATFLOW_DATABASE_URL", &cfg.Store.DSN)
	str("CHATFLOW_REDIS_ADDR", &cfg.Store.RedisAddr)
	str("CHATFLOW_REDIS_PASSWORD", &cfg.Store.RedisPassword)
	str("CHATFLOW_REDIS_PREFIX", &cfg.Store.RedisPrefix)
	str("CHATFLOW_SEED", &cfg.Store.Seed)
	str("CHATFLOW_ENCRYPTION_KEY", &cfg.Store.EncryptionKey)
	str("META_VERIFY_TOKEN", &cfg.Meta.VerifyToken)
	str("META_APP_SECRET", &cfg.Meta.AppSecret)
	str("CHATFLOW_GRAPH_BASE_URL", &cfg.Meta.GraphBaseURL)
	str("CHATFLOW_GRAPH_VERSION", &cfg.Meta.GraphVersion)
	str("CHATFLOW_SERVICE_NAME", &cfg.Tracing.ServiceName)

	if v, ok := lookup("CHATFLOW_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATFLOW_REDIS_DB: %w", err)
		}
		cfg.Store.RedisDB = n
	}
	if v, ok := lookup("CHATFLOW_MAX_HOPS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATFLOW_MAX_HOPS: %w", err)
		}
		cfg.Engine.MaxHops = n
	}
	for key, dst := range map[string]*time.Duration{
		"CHATFLOW_SESSION_TTL": &cfg.Store.SessionTTL,
		"CHATFLOW_LOCK_TTL":    &cfg.Engine.LockTTL,
	} {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	if v, ok := lookup("CHATFLOW_TRACING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATFLOW_TRACING: %w", err)
		}
		cfg.Tracing.Enabled = b
	}
	return nil
}

// fill applies derived defaults.
func (c *Config) fill() {
	if c.Addr != "" && !strings.Contains(c.Addr, ":") {
		c.Addr = ":" + c.Addr
	}
	if c.Store.Driver == StoreSQLite && c.Store.DSN == "" {
		c.Store.DSN = DefaultSQLitePath
	}
	if c.Store.Driver == StoreRedis && c.Store.RedisPrefix == "" {
		c.Store.RedisPrefix = DefaultRedisPrefix
	}
	if c.Engine.MaxHops <= 0 {
		c.Engine.MaxHops = DefaultMaxHops
	}
}

// Validate reports inconsistent settings.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store %q requires redis_addr", c.Store.Driver)
		}
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store %q requires dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Dispatch {
	case DispatchInline, DispatchQueue:
	default:
		return fmt.Errorf("unknown dispatch mode %q", c.Dispatch)
	}
	return nil
}
