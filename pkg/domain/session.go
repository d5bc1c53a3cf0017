package domain

import (
	"strings"
	"time"
)

// Session is the per end-user, per-account pointer into a flow.
type Session struct {
	// UserKey is the page-scoped id of the end user.
	UserKey string `json:"user_key"`

	// AccountID references the connected messaging account.
	AccountID string `json:"account_id"`

	// CurrentNodeID is the id of the last node sent to the user.
	CurrentNodeID string `json:"current_node_id"`

	// BoundFlowID is the chatbot whose flow CurrentNodeID belongs to.
	BoundFlowID string `json:"bound_flow_id"`

	// ChatState holds free-form variables for the conversation.
	ChatState map[string]any `json:"chat_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session positioned at nodeID of flowID.
func NewSession(userKey, accountID, flowID, nodeID string) *Session {
	now := time.Now().UTC()
	return &Session{
		UserKey:       userKey,
		AccountID:     accountID,
		CurrentNodeID: nodeID,
		BoundFlowID:   flowID,
		ChatState:     make(map[string]any),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// SessionKey identifies a session across stores and locks as "account:user".
// Colons inside either id are percent-escaped so distinct pairs never collide.
func SessionKey(accountID, userKey string) string {
	return keyEscaper.Replace(accountID) + ":" + keyEscaper.Replace(userKey)
}

// Key returns the session's SessionKey.
func (s *Session) Key() string {
	return SessionKey(s.AccountID, s.UserKey)
}

// Clone returns a copy that does not share ChatState with s.
func (s *Session) Clone() *Session {
	c := *s
	c.ChatState = make(map[string]any, len(s.ChatState))
	for k, v := range s.ChatState {
		c.ChatState[k] = v
	}
	return &c
}

// SessionUpdate carries the fields written by Upsert.
type SessionUpdate struct {
	CurrentNodeID string
	BoundFlowID   string
}
