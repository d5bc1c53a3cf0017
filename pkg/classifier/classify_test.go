package classifier_test

import (
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/adapters/messenger"
	"github.com/aretw0/chatflow/pkg/classifier"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func raw() messenger.MessagingEvent {
	return messenger.MessagingEvent{
		Sender:    messenger.Party{ID: "U1"},
		Recipient: messenger.Party{ID: "PAGE"},
		Timestamp: 1700000000000,
	}
}

func TestClassify(t *testing.T) {
	text := raw()
	text.Message = &messenger.Message{MID: "m1", Text: "hi"}

	quick := raw()
	quick.Message = &messenger.Message{MID: "m2", Text: "Sales", QuickReply: &messenger.QuickReply{Payload: "CHATFLOW|q|handle-0"}}

	postback := raw()
	postback.Postback = &messenger.Postback{Title: "Buy", Payload: "CHATFLOW|c|button-1"}

	tests := []struct {
		name string
		in   messenger.MessagingEvent
		want domain.Event
	}{
		{"free text", text, domain.Event{Kind: domain.EventFreeText, Text: "hi", MessageID: "m1"}},
		{"quick reply", quick, domain.Event{Kind: domain.EventQuickReply, Text: "Sales", Payload: "CHATFLOW|q|handle-0", MessageID: "m2"}},
		{"postback", postback, domain.Event{Kind: domain.EventPostback, Text: "Buy", Payload: "CHATFLOW|c|button-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifier.Classify(tt.in)
			assert.True(t, ok)
			tt.want.SenderID = "U1"
			tt.want.RecipientID = "PAGE"
			tt.want.Timestamp = time.UnixMilli(1700000000000).UTC()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Skips(t *testing.T) {
	echo := raw()
	echo.Message = &messenger.Message{Text: "bot said this", IsEcho: true}

	attachment := raw()
	attachment.Message = &messenger.Message{Attachments: []messenger.Attachment{{Type: "image"}}}

	delivery := raw()
	delivery.Delivery = []byte(`{"mids":["m1"]}`)

	anonymous := raw()
	anonymous.Sender.ID = ""
	anonymous.Message = &messenger.Message{Text: "hi"}

	for name, ev := range map[string]messenger.MessagingEvent{
		"echo": echo, "attachment only": attachment, "delivery": delivery, "no sender": anonymous,
	} {
		_, ok := classifier.Classify(ev)
		assert.False(t, ok, name)
	}
}
