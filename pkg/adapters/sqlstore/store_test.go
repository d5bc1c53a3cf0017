package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/sqlstore"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	contract "github.com/aretw0/chatflow/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.NewSQLite(sqlstore.WithDSN(filepath.Join(t.TempDir(), "data", "chatflow.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, newSQLite(t).Sessions())
}

func TestSQLiteChatbotStore_Contract(t *testing.T) {
	contract.ChatbotStoreContractTest(t, newSQLite(t).Chatbots())
}

func TestSQLiteAccountStore_Contract(t *testing.T) {
	contract.AccountStoreContractTest(t, newSQLite(t).Accounts())
}

func TestSQLite_MissingDSN(t *testing.T) {
	_, err := sqlstore.NewSQLite()
	assert.Error(t, err)
}

func TestSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "chatflow.db")

	store, err := sqlstore.NewSQLite(sqlstore.WithDSN(dsn))
	require.NoError(t, err)
	_, err = store.Sessions().Upsert(ctx, "u1", "acct", domain.SessionUpdate{CurrentNodeID: "q1", BoundFlowID: "bot"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations are idempotent and data survives.
	store, err = sqlstore.NewSQLite(sqlstore.WithDSN(dsn))
	require.NoError(t, err)
	defer store.Close()
	s, err := store.Sessions().Find(ctx, "u1", "acct")
	require.NoError(t, err)
	assert.Equal(t, "q1", s.CurrentNodeID)
}

func TestSQLiteChatbotStore_FlowRoundTrip(t *testing.T) {
	ctx := context.Background()
	bots := newSQLite(t).Chatbots()

	flow := domain.FlowGraph{
		Nodes: []domain.Node{
			{ID: "s", Type: domain.KindStart, Data: domain.StartData{}},
			{ID: "q", Type: domain.KindQuickReply, Data: domain.QuickReplyData{
				Message: "Pick", Replies: []domain.QuickReply{{Title: "A"}, {Title: "B"}},
			}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "s", Target: "q"},
			{ID: "e2", Source: "q", Target: "s", SourceHandle: domain.Ptr("handle-1")},
		},
	}
	require.NoError(t, bots.Save(ctx, &domain.Chatbot{ID: "b", AccountID: "a", Flow: flow, Mode: domain.ModeTest}))

	got, err := bots.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, flow, got.Flow)
	assert.Equal(t, domain.ModeTest, got.Mode)
	assert.False(t, got.CreatedAt.IsZero())
}
