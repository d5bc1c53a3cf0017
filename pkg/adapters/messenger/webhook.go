package messenger

import (
	"encoding/json"
	"fmt"
)

// ObjectPage is the webhook object type of Messenger page subscriptions.
const ObjectPage = "page"

// Envelope is the body of a webhook POST.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the messaging events of one page.
type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// Party identifies the sender or recipient of an event.
type Party struct {
	ID string `json:"id"`
}

// MessagingEvent is a single callback. Exactly one of Message, Postback,
// Delivery or Read is set for the events this package handles.
type MessagingEvent struct {
	Sender    Party           `json:"sender"`
	Recipient Party           `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *Message        `json:"message,omitempty"`
	Postback  *Postback       `json:"postback,omitempty"`
	Delivery  json.RawMessage `json:"delivery,omitempty"`
	Read      json.RawMessage `json:"read,omitempty"`
}

// Message is an inbound or echoed message.
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// QuickReply carries the payload of a tapped quick reply.
type QuickReply struct {
	Payload string `json:"payload"`
}

// Attachment is a media attachment sent by the user.
type Attachment struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Postback is a tap on a postback button.
type Postback struct {
	MID     string `json:"mid,omitempty"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// ParseEnvelope decodes a webhook body.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	return &env, nil
}

// Events flattens the messaging events of a page envelope.
// Envelopes for other objects yield nothing.
func (e *Envelope) Events() []MessagingEvent {
	if e.Object != ObjectPage {
		return nil
	}
	var out []MessagingEvent
	for _, entry := range e.Entry {
		out = append(out, entry.Messaging...)
	}
	return out
}
