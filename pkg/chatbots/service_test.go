package chatbots_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*chatbots.Service, *domain.Account) {
	t.Helper()
	bots, err := memory.NewChatbotStore()
	require.NoError(t, err)
	svc := chatbots.New(bots, memory.NewAccountStore())

	account, err := svc.Connect(context.Background(), chatbots.ConnectRequest{ExternalID: "page-1", Name: "Page", AccessToken: "tok"})
	require.NoError(t, err)
	return svc, account
}

func TestGenerateTrigger(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-Z]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		trigger, err := chatbots.GenerateTrigger()
		require.NoError(t, err)
		assert.Regexp(t, re, trigger)
		seen[trigger] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, account := newService(t)

	first, err := svc.Create(ctx, chatbots.CreateRequest{Name: "Support", AccountID: account.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, domain.ModeActive, first.Mode, "first chatbot of an account goes live")
	assert.Equal(t, domain.DefaultFlow(), first.Flow)
	assert.Len(t, first.TestTrigger, chatbots.TriggerLength)

	second, err := svc.Create(ctx, chatbots.CreateRequest{Name: "Sales", AccountID: account.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeInactive, second.Mode)

	_, err = svc.Create(ctx, chatbots.CreateRequest{Name: "support", AccountID: account.ID})
	assert.ErrorIs(t, err, chatbots.ErrDuplicateName)
	assert.True(t, chatbots.IsConflictError(err))

	_, err = svc.Create(ctx, chatbots.CreateRequest{Name: " ", AccountID: account.ID})
	assert.True(t, chatbots.IsValidationError(err))

	_, err = svc.Create(ctx, chatbots.CreateRequest{Name: "X", AccountID: "missing"})
	assert.True(t, chatbots.IsNotFound(err))

	list, err := svc.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSetMode_SingleLiveChatbot(t *testing.T) {
	ctx := context.Background()
	svc, account := newService(t)

	a, err := svc.Create(ctx, chatbots.CreateRequest{Name: "A", AccountID: account.ID})
	require.NoError(t, err)
	b, err := svc.Create(ctx, chatbots.CreateRequest{Name: "B", AccountID: account.ID})
	require.NoError(t, err)

	_, err = svc.SetMode(ctx, b.ID, domain.ModeTest)
	require.NoError(t, err)

	gotA, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeInactive, gotA.Mode)

	_, err = svc.Activate(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeInactive, gotB.Mode)

	_, err = svc.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	gotA, err = svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeInactive, gotA.Mode)

	_, err = svc.SetMode(ctx, a.ID, "paused")
	assert.ErrorIs(t, err, chatbots.ErrInvalidMode)
}

func TestTriggerAndTesters(t *testing.T) {
	ctx := context.Background()
	bots, err := memory.NewChatbotStore()
	require.NoError(t, err)
	accounts := memory.NewAccountStore()
	svc := chatbots.New(bots, accounts)
	account, err := svc.Connect(ctx, chatbots.ConnectRequest{ExternalID: "page-1", AccessToken: "tok"})
	require.NoError(t, err)

	bot, err := svc.Create(ctx, chatbots.CreateRequest{Name: "A", AccountID: account.ID})
	require.NoError(t, err)
	require.NoError(t, bots.AddTester(ctx, bot.ID, domain.Tester{UserPSID: "u1"}))
	require.NoError(t, bots.AddTester(ctx, bot.ID, domain.Tester{UserPSID: "u2"}))

	testers, err := svc.ListTesters(ctx, bot.ID)
	require.NoError(t, err)
	assert.Len(t, testers, 2)

	require.NoError(t, svc.RemoveTester(ctx, bot.ID, "u1"))
	testers, err = svc.ListTesters(ctx, bot.ID)
	require.NoError(t, err)
	require.Len(t, testers, 1)
	assert.Equal(t, "u2", testers[0].UserPSID)

	updated, err := svc.RegenerateTrigger(ctx, bot.ID)
	require.NoError(t, err)
	assert.Len(t, updated.TestTrigger, chatbots.TriggerLength)
	testers, err = svc.ListTesters(ctx, bot.ID)
	require.NoError(t, err)
	assert.Empty(t, testers)
}

func TestUpdateFlow_ReturnsLintReport(t *testing.T) {
	ctx := context.Background()
	svc, account := newService(t)
	bot, err := svc.Create(ctx, chatbots.CreateRequest{Name: "A", AccountID: account.ID})
	require.NoError(t, err)

	flow := domain.FlowGraph{Nodes: []domain.Node{
		{ID: "m", Type: domain.KindMessage, Data: domain.MessageData{Message: "no start"}},
	}}
	updated, report, err := svc.UpdateFlow(ctx, bot.ID, flow)
	require.NoError(t, err)
	assert.Equal(t, flow, updated.Flow, "flows are stored even when lint finds errors")
	assert.True(t, report.HasErrors())

	_, _, err = svc.UpdateFlow(ctx, "missing", flow)
	assert.ErrorIs(t, err, domain.ErrChatbotNotFound)
}

func TestRenameAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, account := newService(t)
	a, err := svc.Create(ctx, chatbots.CreateRequest{Name: "A", AccountID: account.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, chatbots.CreateRequest{Name: "B", AccountID: account.ID})
	require.NoError(t, err)

	_, err = svc.Rename(ctx, a.ID, "b")
	assert.ErrorIs(t, err, chatbots.ErrDuplicateName)
	renamed, err := svc.Rename(ctx, a.ID, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", renamed.Name)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), domain.ErrChatbotNotFound)
}

func TestConnect_UpsertsByExternalID(t *testing.T) {
	ctx := context.Background()
	svc, account := newService(t)

	again, err := svc.Connect(ctx, chatbots.ConnectRequest{ExternalID: "page-1", AccessToken: "tok-2"})
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
	assert.Equal(t, "tok-2", again.AccessToken)
	assert.Equal(t, "Page", again.Name)
	assert.Equal(t, domain.AccountMessenger, again.Type)

	got, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.AccessToken)

	all, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.Connect(ctx, chatbots.ConnectRequest{AccessToken: "x"})
	assert.ErrorIs(t, err, chatbots.ErrExternalID)
}
