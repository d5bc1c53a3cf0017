package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/stretchr/testify/require"
)

func node(id string, data domain.NodeData) domain.Node {
	return domain.Node{ID: id, Type: data.Kind(), Data: data}
}

func edge(source, target string, handle ...string) domain.Edge {
	e := domain.Edge{ID: source + "-" + target, Source: source, Target: target}
	if len(handle) > 0 {
		e.SourceHandle = domain.Ptr(handle[0])
	}
	return e
}

func msg(text string) domain.MessageData {
	return domain.MessageData{Message: text}
}

func passMsg(text string) domain.MessageData {
	return domain.MessageData{Message: text, WaitForReply: domain.Ptr(false)}
}

func graph(nodes []domain.Node, edges ...domain.Edge) domain.FlowGraph {
	return domain.FlowGraph{Nodes: nodes, Edges: edges}
}

type harness struct {
	engine   *runtime.Engine
	sessions *memory.SessionStore
	sender   *memory.Recorder
	account  *domain.Account
	bot      *domain.Chatbot
}

func newHarness(t *testing.T, g domain.FlowGraph, opts ...runtime.Option) *harness {
	t.Helper()
	h := &harness{
		sessions: memory.NewSessionStore(),
		sender:   memory.NewRecorder(),
		account:  &domain.Account{ID: "acct", ExternalID: "page-1", AccessToken: "page-token"},
		bot:      &domain.Chatbot{ID: "bot", AccountID: "acct", Flow: g, Mode: domain.ModeActive},
	}
	h.engine = runtime.NewEngine(session.NewManager(h.sessions), h.sender, opts...)
	return h
}

func (h *harness) turn(t *testing.T, ev domain.Event) domain.TurnResult {
	t.Helper()
	if ev.SenderID == "" {
		ev.SenderID = "user-1"
	}
	ev.RecipientID = h.account.ExternalID
	res, err := h.engine.HandleTurn(context.Background(), domain.Turn{Event: ev, Account: h.account, Chatbot: h.bot})
	require.NoError(t, err)
	return res
}

func (h *harness) text(t *testing.T, text string) domain.TurnResult {
	return h.turn(t, domain.Event{Kind: domain.EventFreeText, Text: text})
}

func (h *harness) quickReply(t *testing.T, payload, title string) domain.TurnResult {
	return h.turn(t, domain.Event{Kind: domain.EventQuickReply, Payload: payload, Text: title})
}

func (h *harness) postback(t *testing.T, payload, title string) domain.TurnResult {
	return h.turn(t, domain.Event{Kind: domain.EventPostback, Payload: payload, Text: title})
}

// current returns the session pointer of user-1, or "" when there is no session.
func (h *harness) current(t *testing.T) string {
	t.Helper()
	s, err := h.sessions.Find(context.Background(), "user-1", h.account.ID)
	if err != nil {
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
		return ""
	}
	return s.CurrentNodeID
}

// place positions user-1 at nodeID of the harness chatbot.
func (h *harness) place(t *testing.T, nodeID string) {
	t.Helper()
	_, err := h.sessions.Upsert(context.Background(), "user-1", h.account.ID, domain.SessionUpdate{CurrentNodeID: nodeID, BoundFlowID: h.bot.ID})
	require.NoError(t, err)
}

func texts(payloads []domain.Payload) []string {
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		switch v := p.(type) {
		case domain.TextPayload:
			out = append(out, v.Text)
		case domain.QuickRepliesPayload:
			out = append(out, v.Text)
		case domain.ImagePayload:
			out = append(out, v.URL)
		case domain.CardsPayload:
			out = append(out, v.Elements[0].Title)
		}
	}
	return out
}
