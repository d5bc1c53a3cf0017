package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventSend      EventType = "send"
	EventTurnEnd   EventType = "turn_end"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	// SessionKey identifies the session (account:user).
	SessionKey string `json:"session_key"`
}

// NodeEvent is emitted when traversal enters a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeKind `json:"node_type"`
}

// SendEvent is emitted after each outbound send attempt.
type SendEvent struct {
	EventBase
	NodeID      string `json:"node_id"`
	PayloadKind string `json:"payload_kind"`
	Err         error  `json:"-"`
}

// TurnEvent is emitted once per processed turn.
type TurnEvent struct {
	EventBase
	ChatbotID string        `json:"chatbot_id"`
	Result    TurnResult    `json:"result"`
	Duration  time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnSend      func(context.Context, *SendEvent)
	OnTurnEnd   func(context.Context, *TurnEvent)
}
