package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ChatbotStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.ChatbotStore.
func ChatbotStoreContractTest(t *testing.T, store ports.ChatbotStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first := &domain.Chatbot{
		ID: "bot-a", Name: "A", AccountID: "acct-1", Flow: domain.DefaultFlow(),
		Mode: domain.ModeActive, TestTrigger: "ABC123", CreatedAt: now, UpdatedAt: now,
	}
	second := &domain.Chatbot{
		ID: "bot-b", Name: "B", AccountID: "acct-1", Flow: domain.DefaultFlow(),
		Mode: domain.ModeInactive, TestTrigger: "XYZ789", CreatedAt: now.Add(time.Second), UpdatedAt: now,
	}
	other := &domain.Chatbot{
		ID: "bot-c", Name: "C", AccountID: "acct-2", Flow: domain.DefaultFlow(),
		Mode: domain.ModeInactive, TestTrigger: "QWE456", CreatedAt: now, UpdatedAt: now,
	}

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrChatbotNotFound)
	})

	t.Run("Save_Get", func(t *testing.T) {
		for _, b := range []*domain.Chatbot{first, second, other} {
			require.NoError(t, store.Save(ctx, b))
		}
		got, err := store.Get(ctx, "bot-a")
		require.NoError(t, err)
		assert.Equal(t, "A", got.Name)
		assert.Equal(t, domain.ModeActive, got.Mode)
		assert.Equal(t, "ABC123", got.TestTrigger)
		assert.Equal(t, first.Flow, got.Flow)
	})

	t.Run("ListByAccount", func(t *testing.T) {
		bots, err := store.ListByAccount(ctx, "acct-1")
		require.NoError(t, err)
		require.Len(t, bots, 2)
		assert.Equal(t, "bot-a", bots[0].ID)
		assert.Equal(t, "bot-b", bots[1].ID)
	})

	t.Run("FindLive", func(t *testing.T) {
		live, err := store.FindLive(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, "bot-a", live.ID)

		_, err = store.FindLive(ctx, "acct-2")
		assert.ErrorIs(t, err, domain.ErrChatbotNotFound)
	})

	t.Run("Testers", func(t *testing.T) {
		tester := domain.Tester{UserPSID: "psid-1", AddedAt: now}
		require.NoError(t, store.AddTester(ctx, "bot-a", tester))
		require.NoError(t, store.AddTester(ctx, "bot-a", tester))
		require.NoError(t, store.AddTester(ctx, "bot-a", domain.Tester{UserPSID: "psid-2", AddedAt: now}))

		got, err := store.Get(ctx, "bot-a")
		require.NoError(t, err)
		require.Len(t, got.Testers, 2)
		assert.True(t, got.HasTester("psid-1"))

		require.NoError(t, store.RemoveTester(ctx, "bot-a", "psid-1"))
		got, err = store.Get(ctx, "bot-a")
		require.NoError(t, err)
		assert.False(t, got.HasTester("psid-1"))
		assert.True(t, got.HasTester("psid-2"))

		assert.ErrorIs(t, store.AddTester(ctx, "missing", tester), domain.ErrChatbotNotFound)
	})

	t.Run("Save_Replaces", func(t *testing.T) {
		got, err := store.Get(ctx, "bot-a")
		require.NoError(t, err)
		got.Mode = domain.ModeInactive
		got.Testers = nil
		require.NoError(t, store.Save(ctx, got))

		_, err = store.FindLive(ctx, "acct-1")
		assert.ErrorIs(t, err, domain.ErrChatbotNotFound)

		got, err = store.Get(ctx, "bot-a")
		require.NoError(t, err)
		assert.Empty(t, got.Testers)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "bot-b"))
		require.NoError(t, store.Delete(ctx, "bot-b"))
		_, err := store.Get(ctx, "bot-b")
		assert.ErrorIs(t, err, domain.ErrChatbotNotFound)
	})
}

// AccountStoreContractTest verifies if an adapter complies with ports.AccountStore.
func AccountStoreContractTest(t *testing.T, store ports.AccountStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	page := &domain.Account{
		ID: "acct-1", ExternalID: "page-100", Type: domain.AccountMessenger,
		Name: "My Page", AccessToken: "token-1", CreatedAt: now, UpdatedAt: now,
	}

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		_, err = store.FindByExternalID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("Save_Lookup", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, page))

		got, err := store.Get(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, "page-100", got.ExternalID)
		assert.Equal(t, "token-1", got.AccessToken)

		got, err = store.FindByExternalID(ctx, "page-100")
		require.NoError(t, err)
		assert.Equal(t, "acct-1", got.ID)
	})

	t.Run("Save_Replaces", func(t *testing.T) {
		updated := *page
		updated.AccessToken = "token-2"
		require.NoError(t, store.Save(ctx, &updated))

		got, err := store.Get(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, "token-2", got.AccessToken)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &domain.Account{ID: "acct-2", ExternalID: "page-200", Type: domain.AccountMessenger, CreatedAt: now, UpdatedAt: now}))
		accounts, err := store.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(accounts))
		for _, a := range accounts {
			ids = append(ids, a.ID)
		}
		assert.ElementsMatch(t, []string{"acct-1", "acct-2"}, ids)
	})
}
