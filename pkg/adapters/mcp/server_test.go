package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const drinksFlow = `{
	"nodes": [
		{"id": "start", "type": "start", "data": {"label": "Start"}},
		{"id": "ask", "type": "quickReply", "data": {"message": "Coffee or tea?", "replies": [{"title": "Coffee"}, {"title": "Tea"}]}},
		{"id": "coffee", "type": "end", "data": {"message": "Coffee it is."}},
		{"id": "tea", "type": "end", "data": {"message": "Tea it is."}}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "ask"},
		{"id": "e2", "source": "ask", "target": "coffee", "sourceHandle": "handle-0"},
		{"id": "e3", "source": "ask", "target": "tea", "sourceHandle": "handle-1"}
	]
}`

func TestSimulate(t *testing.T) {
	s := NewServer()

	resp, err := s.handleSimulate(context.Background(), mcp.CallToolRequest{}, SimulateArgs{
		Flow:   drinksFlow,
		Inputs: `["hi", "#2"]`,
	})
	require.NoError(t, err)
	require.Len(t, resp.Turns, 2)

	first := resp.Turns[0]
	assert.Equal(t, domain.OutcomeAwaiting, first.Outcome)
	require.Len(t, first.Messages, 1)
	assert.Contains(t, first.Messages[0], "1. Coffee")
	assert.Contains(t, first.Messages[0], "2. Tea")
	assert.Len(t, first.Choices, 2)

	second := resp.Turns[1]
	assert.Equal(t, domain.OutcomeEnded, second.Outcome)
	assert.Equal(t, []string{"Tea it is."}, second.Messages)
	assert.Equal(t, "tea", resp.CurrentNodeID)
}

func TestSimulate_DefaultInput(t *testing.T) {
	s := NewServer()

	resp, err := s.handleSimulate(context.Background(), mcp.CallToolRequest{}, SimulateArgs{Flow: drinksFlow})
	require.NoError(t, err)
	require.Len(t, resp.Turns, 1)
	assert.Equal(t, "hi", resp.Turns[0].Input)
	assert.Equal(t, "ask", resp.CurrentNodeID)
}

func TestSimulate_Errors(t *testing.T) {
	s := NewServer()
	ctx := context.Background()

	_, err := s.handleSimulate(ctx, mcp.CallToolRequest{}, SimulateArgs{Flow: "{"})
	assert.Error(t, err)

	_, err = s.handleSimulate(ctx, mcp.CallToolRequest{}, SimulateArgs{Flow: drinksFlow, Inputs: `"hi"`})
	assert.Error(t, err)

	_, err = s.handleSimulate(ctx, mcp.CallToolRequest{}, SimulateArgs{Flow: drinksFlow, Inputs: `["hi", "#9"]`})
	assert.ErrorContains(t, err, "out of range")
}

func TestValidate(t *testing.T) {
	s := NewServer()
	ctx := context.Background()

	resp, err := s.handleValidate(ctx, mcp.CallToolRequest{}, FlowArgs{Flow: drinksFlow})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.NotNil(t, resp.Issues)

	resp, err = s.handleValidate(ctx, mcp.CallToolRequest{}, FlowArgs{Flow: `{"nodes": [{"id": "m", "type": "message", "data": {"message": "hi"}}], "edges": []}`})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Issues)
}

func TestListChatbots(t *testing.T) {
	ctx := context.Background()
	bots, err := memory.NewChatbotStore()
	require.NoError(t, err)
	accounts := memory.NewAccountStore(&domain.Account{ID: "acct", ExternalID: "page-1"})
	svc := chatbots.New(bots, accounts)
	created, err := svc.Create(ctx, chatbots.CreateRequest{Name: "Support", AccountID: "acct"})
	require.NoError(t, err)

	s := NewServer(WithChatbots(svc))
	resp, err := s.handleListChatbots(ctx, mcp.CallToolRequest{}, AccountArgs{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, resp.Chatbots, 1)
	assert.Equal(t, ChatbotSummary{
		ID:          created.ID,
		Name:        "Support",
		Mode:        domain.ModeActive,
		TestTrigger: created.TestTrigger,
		Nodes:       len(domain.DefaultFlow().Nodes),
	}, resp.Chatbots[0])

	resp, err = s.handleListChatbots(ctx, mcp.CallToolRequest{}, AccountArgs{AccountID: "other"})
	require.NoError(t, err)
	assert.Empty(t, resp.Chatbots)
}
