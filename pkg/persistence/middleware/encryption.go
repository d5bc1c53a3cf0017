package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// sealedPrefix marks an access token encrypted by this package.
const sealedPrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a token,
	// so keys can be rotated without downtime.
	FallbackKeys [][]byte
}

// ParseKeys decodes base64 keys into an EncryptionConfig. The first key is active.
func ParseKeys(active string, fallbacks ...string) (EncryptionConfig, error) {
	var cfg EncryptionConfig
	for i, s := range append([]string{active}, fallbacks...) {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return EncryptionConfig{}, fmt.Errorf("encryption key %d: %w", i, err)
		}
		if len(key) != 32 {
			return EncryptionConfig{}, fmt.Errorf("encryption key %d must be 32 bytes, got %d", i, len(key))
		}
		if i == 0 {
			cfg.ActiveKey = key
		} else {
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
	}
	return cfg, nil
}

type encryptionMiddleware struct {
	next   ports.AccountStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals account access
// tokens with AES-GCM before they reach the store. Tokens stored in clear
// before encryption was enabled are returned as is and sealed on their next save.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.AccountStore) ports.AccountStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, account *domain.Account) error {
	sealed := *account
	if account.AccessToken != "" && !strings.HasPrefix(account.AccessToken, sealedPrefix) {
		ciphertext, err := encrypt([]byte(account.AccessToken), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		sealed.AccessToken = sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return m.next.Save(ctx, &sealed)
}

func (m *encryptionMiddleware) Get(ctx context.Context, id string) (*domain.Account, error) {
	a, err := m.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.open(a)
}

func (m *encryptionMiddleware) FindByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	a, err := m.next.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return m.open(a)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Account, 0, len(accounts))
	for _, a := range accounts {
		opened, err := m.open(a)
		if err != nil {
			return nil, err
		}
		out = append(out, opened)
	}
	return out, nil
}

func (m *encryptionMiddleware) open(a *domain.Account) (*domain.Account, error) {
	encoded, ok := strings.CutPrefix(a.AccessToken, sealedPrefix)
	if !ok {
		return a, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("account %s: failed to decode access token: %w", a.ID, err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("account %s: failed to decrypt access token: %w", a.ID, err)
	}
	opened := *a
	opened.AccessToken = string(plain)
	return &opened, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
