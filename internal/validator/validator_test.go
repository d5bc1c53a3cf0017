package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(r Report) []string {
	out := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		out = append(out, i.String())
	}
	return out
}

func hasIssue(r Report, sev Severity, fragment string) bool {
	for _, i := range r.Issues {
		if i.Severity == sev && strings.Contains(i.Message, fragment) {
			return true
		}
	}
	return false
}

func TestLint_DefaultFlowIsClean(t *testing.T) {
	r := Lint(domain.DefaultFlow())
	assert.Empty(t, r.Issues, messages(r))
	assert.NoError(t, r.Err())
}

func TestLint_Structure(t *testing.T) {
	g := domain.FlowGraph{
		Nodes: []domain.Node{
			{ID: "s", Type: domain.KindStart, Data: domain.StartData{}},
			{ID: "m", Type: domain.KindMessage, Data: domain.MessageData{Message: "hi"}},
			{ID: "l", Type: domain.KindLoop, Data: domain.LoopData{TargetNodeID: "ghost"}},
			{ID: "x", Type: "sticker", Data: domain.UnknownData{Type: "sticker"}},
			{ID: "orphan", Type: domain.KindMessage, Data: domain.MessageData{Message: "alone"}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "s", Target: "m"},
			{ID: "e2", Source: "s", Target: "l"},
			{ID: "e3", Source: "m", Target: "nowhere"},
			{ID: "e4", Source: "m", Target: "x", SourceHandle: domain.Ptr("bogus")},
		},
	}

	r := Lint(g)
	assert.True(t, r.HasErrors())
	assert.True(t, hasIssue(r, SeverityWarning, "only the first is followed"), messages(r))
	assert.True(t, hasIssue(r, SeverityError, `loop target "ghost"`), messages(r))
	assert.True(t, hasIssue(r, SeverityError, `target "nowhere"`), messages(r))
	assert.True(t, hasIssue(r, SeverityError, `unknown handle "bogus"`), messages(r))
	assert.True(t, hasIssue(r, SeverityWarning, `unknown node type "sticker"`), messages(r))
	assert.True(t, hasIssue(r, SeverityWarning, "not reachable"), messages(r))
	assert.Contains(t, r.Err().Error(), "errors")
}

func TestLint_StartCount(t *testing.T) {
	r := Lint(domain.FlowGraph{Nodes: []domain.Node{{ID: "m", Type: domain.KindMessage, Data: domain.MessageData{}}}})
	assert.True(t, hasIssue(r, SeverityError, domain.ErrNoStartNode.Error()))

	r = Lint(domain.FlowGraph{Nodes: []domain.Node{
		{ID: "a", Type: domain.KindStart, Data: domain.StartData{}},
		{ID: "b", Type: domain.KindStart, Data: domain.StartData{}},
	}})
	assert.False(t, r.HasErrors())
	assert.True(t, hasIssue(r, SeverityWarning, "2 start nodes"))
}

func TestLint_Handles(t *testing.T) {
	g := domain.FlowGraph{
		Nodes: []domain.Node{
			{ID: "s", Type: domain.KindStart, Data: domain.StartData{}},
			{ID: "q", Type: domain.KindQuickReply, Data: domain.QuickReplyData{
				Message: "?", Replies: []domain.QuickReply{{Title: "A"}, {Title: "B"}},
			}},
			{ID: "c", Type: domain.KindCard, Data: domain.CardData{Card: domain.Card{
				Title:   "Card",
				Buttons: []domain.CardButton{{Title: "Go", Type: domain.ButtonPostback}, {Title: "Site", Type: domain.ButtonWebURL, URL: "https://example.com"}},
			}}},
			{ID: "e", Type: domain.KindEnd, Data: domain.EndData{}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "s", Target: "q"},
			{ID: "e2", Source: "q", Target: "c", SourceHandle: domain.Ptr("handle-0")},
			{ID: "e3", Source: "q", Target: "e", SourceHandle: domain.Ptr("handle-5")},
			{ID: "e4", Source: "c", Target: "e", SourceHandle: domain.Ptr("button-0")},
			{ID: "e5", Source: "c", Target: "e", SourceHandle: domain.Ptr("button-1")},
			{ID: "e6", Source: "e", Target: "s"},
			{ID: "e7", Source: "c", Target: "e", SourceHandle: domain.Ptr("default-output")},
		},
	}

	r := Lint(g)
	assert.False(t, r.HasErrors(), messages(r))

	byEdge := map[string]bool{}
	for _, i := range r.Issues {
		byEdge[i.EdgeID] = true
	}
	assert.True(t, byEdge["e3"], "reply index out of range")
	assert.True(t, byEdge["e5"], "link buttons do not advance")
	assert.True(t, byEdge["e6"], "end nodes have no outputs")
	assert.True(t, byEdge["e7"], "a card waiting for a tap never passes through")
	assert.False(t, byEdge["e2"])
	assert.False(t, byEdge["e4"])
}

func TestLint_Limits(t *testing.T) {
	replies := make([]domain.QuickReply, 8)
	g := domain.FlowGraph{Nodes: []domain.Node{
		{ID: "s", Type: domain.KindStart, Data: domain.StartData{}},
		{ID: "q", Type: domain.KindQuickReply, Data: domain.QuickReplyData{Replies: replies}},
	}, Edges: []domain.Edge{{ID: "e", Source: "s", Target: "q"}}}

	r := Lint(g)
	assert.True(t, hasIssue(r, SeverityWarning, "8 replies; only the first 6"), messages(r))
}

func TestValidateDocument(t *testing.T) {
	t.Run("Schema violation", func(t *testing.T) {
		_, r, err := ValidateDocument([]byte(`{"nodes": [{"type": "start"}]}`))
		require.NoError(t, err)
		assert.True(t, r.HasErrors())
		assert.True(t, hasIssue(r, SeverityError, "schema"))
	})

	t.Run("Builder document with editor fields", func(t *testing.T) {
		raw := `{
			"nodes": [
				{"id": "1", "type": "input", "data": {"label": "Start", "color": "#fff"}, "position": {"x": 0, "y": 0}},
				{"id": "2", "type": "messageNode", "data": {"message": "Hi", "availableNodes": []}}
			],
			"edges": [{"id": "e1-2", "source": "1", "target": "2", "sourceHandle": null}]
		}`
		g, r, err := ValidateDocument([]byte(raw))
		require.NoError(t, err)
		assert.False(t, r.HasErrors(), messages(r))
		require.Len(t, g.Nodes, 2)
		assert.Equal(t, domain.KindStart, g.Nodes[0].Type)
	})

	t.Run("Not JSON", func(t *testing.T) {
		_, _, err := ValidateDocument([]byte("nodes:"))
		assert.Error(t, err)
	})
}
