package classifier

import (
	"time"

	"github.com/aretw0/chatflow/pkg/adapters/messenger"
	"github.com/aretw0/chatflow/pkg/domain"
)

// Classify turns a raw messaging event into a domain event.
// It reports false for events the engine does not process: echoes of the
// page's own messages, deliveries, reads and messages without text.
func Classify(raw messenger.MessagingEvent) (domain.Event, bool) {
	ev := domain.Event{
		SenderID:    raw.Sender.ID,
		RecipientID: raw.Recipient.ID,
		Timestamp:   timestamp(raw.Timestamp),
	}
	if ev.SenderID == "" || ev.RecipientID == "" {
		return domain.Event{}, false
	}

	switch {
	case raw.Postback != nil:
		ev.Kind = domain.EventPostback
		ev.Payload = raw.Postback.Payload
		ev.Text = raw.Postback.Title
		ev.MessageID = raw.Postback.MID
		return ev, true

	case raw.Message != nil:
		m := raw.Message
		if m.IsEcho {
			return domain.Event{}, false
		}
		ev.MessageID = m.MID
		ev.Text = m.Text
		if m.QuickReply != nil && m.QuickReply.Payload != "" {
			ev.Kind = domain.EventQuickReply
			ev.Payload = m.QuickReply.Payload
			return ev, true
		}
		if m.Text == "" {
			return domain.Event{}, false
		}
		ev.Kind = domain.EventFreeText
		return ev, true
	}
	return domain.Event{}, false
}

func timestamp(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
