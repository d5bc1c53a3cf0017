package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/persistence/middleware"
	contract "github.com/aretw0/chatflow/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secure(t *testing.T, cfg middleware.EncryptionConfig) (*memory.AccountStore, middleware.Middleware) {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return memory.NewAccountStore(), mw
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	raw, mw := secure(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	contract.AccountStoreContractTest(t, mw(raw))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	raw, mw := secure(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	store := mw(raw)

	acct := &domain.Account{ID: "acct", ExternalID: "page-1", AccessToken: "page-secret"}
	require.NoError(t, store.Save(ctx, acct))
	assert.Equal(t, "page-secret", acct.AccessToken, "caller's account must not be modified")

	stored, err := raw.Get(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.AccessToken, "enc:v1:"))
	assert.NotContains(t, stored.AccessToken, "page-secret")

	got, err := store.Get(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, "page-secret", got.AccessToken)

	got, err = store.FindByExternalID(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "page-secret", got.AccessToken)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "page-secret", list[0].AccessToken)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	oldKey, newKey := generateKey(t), generateKey(t)

	raw, oldMW := secure(t, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, oldMW(raw).Save(ctx, &domain.Account{ID: "acct", ExternalID: "page-1", AccessToken: "tok"}))

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	got, err := rotated(raw).Get(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AccessToken)

	wrong, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = wrong(raw).Get(ctx, "acct")
	assert.ErrorContains(t, err, "failed to decrypt")
}

func TestEncryptionMiddleware_PlaintextPassThrough(t *testing.T) {
	ctx := context.Background()
	raw, mw := secure(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, raw.Save(ctx, &domain.Account{ID: "acct", ExternalID: "page-1", AccessToken: "legacy"}))

	got, err := mw(raw).Get(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, "legacy", got.AccessToken)
}

func TestParseKeys(t *testing.T) {
	k1, k2 := generateKey(t), generateKey(t)
	cfg, err := middleware.ParseKeys(base64.StdEncoding.EncodeToString(k1), base64.StdEncoding.EncodeToString(k2))
	require.NoError(t, err)
	assert.Equal(t, k1, cfg.ActiveKey)
	assert.Equal(t, [][]byte{k2}, cfg.FallbackKeys)

	_, err = middleware.ParseKeys("not base64!")
	assert.Error(t, err)
	_, err = middleware.ParseKeys(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
}
