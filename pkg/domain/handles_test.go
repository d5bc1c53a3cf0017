package domain_test

import (
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseHandle(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Handle
	}{
		{"", domain.Handle{Kind: domain.HandleDefault}},
		{"default-output", domain.Handle{Kind: domain.HandleDefaultOutput, String: "default-output"}},
		{"handle-3", domain.Handle{Kind: domain.HandleQuickReply, Index: 3, String: "handle-3"}},
		{"button-0", domain.Handle{Kind: domain.HandleButton, Index: 0, String: "button-0"}},
		{"card-2-button-1", domain.Handle{Kind: domain.HandleCarouselButton, Card: 2, Index: 1, String: "card-2-button-1"}},
		{"handle-x", domain.Handle{Kind: domain.HandleInvalid, String: "handle-x"}},
		{"card-1", domain.Handle{Kind: domain.HandleInvalid, String: "card-1"}},
		{"button--1", domain.Handle{Kind: domain.HandleInvalid, String: "button--1"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ParseHandle(tt.in))
		})
	}
}

func TestSelectionToken_RoundTrip(t *testing.T) {
	for i := 0; i < domain.MaxQuickReplies; i++ {
		token := domain.SelectionToken("node|with|pipes", domain.QuickReplyHandle(i))
		node, handle, ok := domain.ParseSelectionToken(token)
		assert.True(t, ok)
		assert.Equal(t, "node|with|pipes", node)
		assert.Equal(t, domain.QuickReplyHandle(i), handle)
	}

	node, handle, ok := domain.ParseSelectionToken(domain.SelectionToken("k", domain.CarouselButtonHandle(1, 2)))
	assert.True(t, ok)
	assert.Equal(t, "k", node)
	assert.Equal(t, "card-1-button-2", handle)
}

func TestParseSelectionToken_Legacy(t *testing.T) {
	node, handle, ok := domain.ParseSelectionToken("BUTTON_2_CLICKED")
	assert.True(t, ok)
	assert.Empty(t, node)
	assert.Equal(t, "button-2", handle)
}

func TestParseSelectionToken_Rejects(t *testing.T) {
	for _, p := range []string{"", "GET_STARTED", "CHATFLOW|", "CHATFLOW|n|", "CHATFLOW||handle-1", "CHATFLOW|n|bogus", "BUTTON_x_CLICKED"} {
		_, _, ok := domain.ParseSelectionToken(p)
		assert.False(t, ok, p)
	}
}
