package domain

import "time"

// EventKind classifies an inbound messaging event.
type EventKind string

const (
	// EventFreeText is a typed message.
	EventFreeText EventKind = "free_text"
	// EventQuickReply is a tap on a quick reply.
	EventQuickReply EventKind = "quick_reply"
	// EventPostback is a tap on a postback button.
	EventPostback EventKind = "postback"
)

// Event is a classified inbound event.
type Event struct {
	Kind EventKind `json:"kind"`

	// SenderID is the page-scoped id of the end user.
	SenderID string `json:"sender_id"`

	// RecipientID is the external id of the account that received the event.
	RecipientID string `json:"recipient_id"`

	// Text is the message text, or the tapped reply/button title.
	Text string `json:"text,omitempty"`

	// Payload is the opaque selection payload for quick replies and postbacks.
	Payload string `json:"payload,omitempty"`

	MessageID string    `json:"mid,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsSelection reports whether the event is a quick reply or postback tap.
func (e Event) IsSelection() bool {
	return e.Kind == EventQuickReply || e.Kind == EventPostback
}

// Turn is an admitted event together with the context it runs against.
type Turn struct {
	Event   Event
	Account *Account
	Chatbot *Chatbot

	// Restart forces the session back to the start node before resolution.
	Restart bool
}

// Outcome describes how a turn ended.
type Outcome string

const (
	// OutcomeAwaiting means the session halted on a node waiting for input.
	OutcomeAwaiting Outcome = "awaiting"
	// OutcomeEnded means an end node was reached.
	OutcomeEnded Outcome = "ended"
	// OutcomeDeadEnd means no next node could be resolved.
	OutcomeDeadEnd Outcome = "dead_end"
	// OutcomeIgnored means the event was dropped without any state change.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFlowError means traversal exceeded the hop limit.
	OutcomeFlowError Outcome = "flow_error"
	// OutcomeSendFailed means an outbound send failed and the turn stopped.
	OutcomeSendFailed Outcome = "send_failed"
)

// TurnResult summarises the processing of one inbound event.
type TurnResult struct {
	Outcome     Outcome  `json:"outcome"`
	Visited     []string `json:"visited,omitempty"`
	Sent        int      `json:"sent"`
	FinalNodeID string   `json:"final_node_id,omitempty"`
	Restarted   bool     `json:"restarted,omitempty"`
}
