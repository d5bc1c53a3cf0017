package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000000")
	account := "acct-" + suffix
	user := "user-" + suffix

	t.Run("Find Non-Existent", func(t *testing.T) {
		_, err := store.Find(ctx, "missing-"+user, account)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Upsert Creates", func(t *testing.T) {
		s, err := store.Upsert(ctx, user, account, domain.SessionUpdate{CurrentNodeID: "start", BoundFlowID: "bot-1"})
		require.NoError(t, err)
		assert.Equal(t, user, s.UserKey)
		assert.Equal(t, account, s.AccountID)
		assert.Equal(t, "start", s.CurrentNodeID)
		assert.Equal(t, "bot-1", s.BoundFlowID)

		found, err := store.Find(ctx, user, account)
		require.NoError(t, err)
		assert.Equal(t, "start", found.CurrentNodeID)
		assert.Equal(t, "bot-1", found.BoundFlowID)
	})

	t.Run("Upsert Updates Pointer And Keeps State", func(t *testing.T) {
		s, err := store.Find(ctx, user, account)
		require.NoError(t, err)
		s.ChatState = map[string]any{"name": "Ana"}
		require.NoError(t, store.Save(ctx, s))

		updated, err := store.Upsert(ctx, user, account, domain.SessionUpdate{CurrentNodeID: "q1", BoundFlowID: "bot-1"})
		require.NoError(t, err)
		assert.Equal(t, "q1", updated.CurrentNodeID)
		assert.Equal(t, "Ana", updated.ChatState["name"])
	})

	t.Run("Sessions Are Keyed By Account", func(t *testing.T) {
		_, err := store.Find(ctx, user, "other-"+account)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Save And Find", func(t *testing.T) {
		s := domain.NewSession(user+"-save", account, "bot-2", "m1")
		s.ChatState["count"] = 2
		require.NoError(t, store.Save(ctx, s))

		found, err := store.Find(ctx, s.UserKey, account)
		require.NoError(t, err)
		assert.Equal(t, "m1", found.CurrentNodeID)
		assert.Equal(t, "bot-2", found.BoundFlowID)
		// JSON backed stores turn numbers into float64.
		assert.EqualValues(t, 2, found.ChatState["count"])
	})

	t.Run("List", func(t *testing.T) {
		sessions, err := store.List(ctx, account)
		require.NoError(t, err)
		keys := make([]string, 0, len(sessions))
		for _, s := range sessions {
			assert.Equal(t, account, s.AccountID)
			keys = append(keys, s.UserKey)
		}
		assert.ElementsMatch(t, []string{user, user + "-save"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, user, account))
		require.NoError(t, store.Delete(ctx, user+"-save", account))
		require.NoError(t, store.Delete(ctx, "never-existed", account))

		_, err := store.Find(ctx, user, account)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Find after Delete should return ErrSessionNotFound")

		sessions, err := store.List(ctx, account)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}
