package runtime_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_QuickReply(t *testing.T) {
	replies := make([]domain.QuickReply, 8)
	for i := range replies {
		replies[i] = domain.QuickReply{Title: fmt.Sprintf("R%d", i)}
	}
	replies[2].Title = "  "

	p, ok := runtime.Render(node("q", domain.QuickReplyData{Message: "Pick", Replies: replies}))
	require.True(t, ok)
	qr := p.(domain.QuickRepliesPayload)
	assert.Equal(t, "Pick", qr.Text)
	require.Len(t, qr.Replies, domain.MaxQuickReplies)
	assert.Equal(t, "Option 3", qr.Replies[2].Title)
	for i, r := range qr.Replies {
		nodeID, handle, ok := domain.ParseSelectionToken(r.Payload)
		require.True(t, ok)
		assert.Equal(t, "q", nodeID)
		assert.Equal(t, domain.QuickReplyHandle(i), handle)
	}
}

func TestRender_Card(t *testing.T) {
	card := domain.CardData{Card: domain.Card{
		Title: "T", Subtitle: "S", ImageURL: "http://img",
		Buttons: []domain.CardButton{
			{Title: "Site", Type: domain.ButtonWebURL, URL: "http://x"},
			{Title: "Next", Type: domain.ButtonPostback, Payload: "author"},
			{Title: "Bare"},
			{Title: "Dropped", Type: domain.ButtonPostback},
		},
	}}
	p, ok := runtime.Render(node("c", card))
	require.True(t, ok)
	cards := p.(domain.CardsPayload)
	require.Len(t, cards.Elements, 1)
	el := cards.Elements[0]
	assert.Equal(t, "T", el.Title)
	assert.Equal(t, "http://img", el.ImageURL)
	assert.Equal(t, []domain.TemplateButton{
		{Type: domain.ButtonWebURL, Title: "Site", URL: "http://x"},
		{Type: domain.ButtonPostback, Title: "Next", Payload: domain.SelectionToken("c", "button-1")},
		{Type: domain.ButtonPostback, Title: "Bare", Payload: domain.SelectionToken("c", "button-2")},
	}, el.Buttons)
}

func TestRender_CardSkipsLinkWithoutURL(t *testing.T) {
	card := domain.CardData{Card: domain.Card{
		Title: "T",
		Buttons: []domain.CardButton{
			{Title: "Broken", Type: domain.ButtonWebURL},
			{Title: "Buy", Type: domain.ButtonPostback},
		},
	}}
	p, ok := runtime.Render(node("c", card))
	require.True(t, ok)
	assert.Equal(t, []domain.TemplateButton{
		{Type: domain.ButtonPostback, Title: "Buy", Payload: domain.SelectionToken("c", "button-1")},
	}, p.(domain.CardsPayload).Elements[0].Buttons)
}

func TestDefaultHandles(t *testing.T) {
	waiting := domain.CardData{Card: domain.Card{Buttons: []domain.CardButton{{Title: "Buy", Type: domain.ButtonPostback}}}}
	links := domain.CardData{Card: domain.Card{Buttons: []domain.CardButton{{Title: "Site", Type: domain.ButtonWebURL, URL: "http://x"}}}}

	assert.Equal(t, []string{""}, runtime.DefaultHandles(node("w", waiting)))
	assert.Equal(t, []string{domain.DefaultOutputHandle, ""}, runtime.DefaultHandles(node("l", links)))
	assert.Equal(t, []string{domain.DefaultOutputHandle, ""}, runtime.DefaultHandles(node("k", domain.CarouselData{})))
	assert.Equal(t, []string{""}, runtime.DefaultHandles(node("m", msg("hi"))))
}

func TestRender_Carousel(t *testing.T) {
	cards := make([]domain.Card, 12)
	for i := range cards {
		cards[i] = domain.Card{Title: fmt.Sprintf("C%d", i), Buttons: []domain.CardButton{{Title: "Go", Type: domain.ButtonPostback}}}
	}
	p, ok := runtime.Render(node("k", domain.CarouselData{Cards: cards}))
	require.True(t, ok)
	els := p.(domain.CardsPayload).Elements
	require.Len(t, els, domain.MaxCarouselCards)
	assert.Equal(t, domain.SelectionToken("k", "card-4-button-0"), els[4].Buttons[0].Payload)

	_, ok = runtime.Render(node("k", domain.CarouselData{}))
	assert.False(t, ok)
}

func TestRender_Silent(t *testing.T) {
	for _, n := range []domain.Node{
		node("s", domain.StartData{}),
		node("l", domain.LoopData{TargetNodeID: "x"}),
		node("m", msg("")),
		node("i", domain.MediaData{}),
		node("e", domain.EndData{Message: "bye", SendMessage: domain.Ptr(false)}),
		node("e2", domain.EndData{}),
		{ID: "u", Type: "video", Data: domain.UnknownData{Type: "video"}},
	} {
		_, ok := runtime.Render(n)
		assert.False(t, ok, n.ID)
	}

	p, ok := runtime.Render(node("e", domain.EndData{Message: "bye"}))
	require.True(t, ok)
	assert.Equal(t, domain.TextPayload{Text: "bye"}, p)

	p, ok = runtime.Render(node("i", domain.MediaData{ImageURL: "http://pic"}))
	require.True(t, ok)
	assert.Equal(t, domain.ImagePayload{URL: "http://pic"}, p)
}

func TestHalts(t *testing.T) {
	advance := domain.Card{Buttons: []domain.CardButton{{Title: "Go", Type: domain.ButtonPostback}}}
	link := domain.Card{Buttons: []domain.CardButton{{Title: "Site", Type: domain.ButtonWebURL, URL: "http://x"}}}
	hidden := domain.Card{Buttons: []domain.CardButton{
		{Type: domain.ButtonWebURL, URL: "a"}, {Type: domain.ButtonWebURL, URL: "b"}, {Type: domain.ButtonWebURL, URL: "c"},
		{Title: "fourth", Type: domain.ButtonPostback},
	}}

	tests := []struct {
		name string
		data domain.NodeData
		want bool
	}{
		{"start", domain.StartData{}, false},
		{"message waits by default", msg("x"), true},
		{"message without wait", passMsg("x"), false},
		{"message explicit wait", domain.MessageData{Message: "x", WaitForReply: domain.Ptr(true)}, true},
		{"quick reply", domain.QuickReplyData{}, true},
		{"card with advance button", domain.CardData{Card: advance}, true},
		{"card with links only", domain.CardData{Card: link}, false},
		{"card advance button beyond limit", domain.CardData{Card: hidden}, false},
		{"carousel with one advancing card", domain.CarouselData{Cards: []domain.Card{link, advance}}, true},
		{"carousel links only", domain.CarouselData{Cards: []domain.Card{link}}, false},
		{"media", domain.MediaData{}, false},
		{"loop", domain.LoopData{}, false},
		{"end", domain.EndData{SendMessage: domain.Ptr(false)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runtime.Halts(node("n", tt.data)))
		})
	}
}

func TestMatchTitle(t *testing.T) {
	q := node("q", domain.QuickReplyData{Replies: []domain.QuickReply{{Title: "Yes"}, {Title: ""}, {Title: "No"}}})
	h, ok := runtime.MatchTitle(q, " no ")
	assert.True(t, ok)
	assert.Equal(t, "handle-2", h)

	h, ok = runtime.MatchTitle(q, "option 2")
	assert.True(t, ok)
	assert.Equal(t, "handle-1", h)

	_, ok = runtime.MatchTitle(q, "maybe")
	assert.False(t, ok)

	c := node("c", domain.CardData{Card: domain.Card{Buttons: []domain.CardButton{
		{Title: "Site", Type: domain.ButtonWebURL, URL: "http://x"},
		{Title: "Buy", Type: domain.ButtonPostback},
	}}})
	h, ok = runtime.MatchTitle(c, "BUY")
	assert.True(t, ok)
	assert.Equal(t, "button-1", h)
	_, ok = runtime.MatchTitle(c, "site")
	assert.False(t, ok, "link buttons do not advance")

	k := node("k", domain.CarouselData{Cards: []domain.Card{
		{Title: "A", Buttons: []domain.CardButton{{Title: "Pick A", Type: domain.ButtonPostback}}},
		{Title: "B", Buttons: []domain.CardButton{{Title: "Info", Type: domain.ButtonWebURL, URL: "u"}, {Title: "Pick B", Type: domain.ButtonPostback}}},
	}})
	h, ok = runtime.MatchTitle(k, "pick b")
	assert.True(t, ok)
	assert.Equal(t, "card-1-button-1", h)
}
