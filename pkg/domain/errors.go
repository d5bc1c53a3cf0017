package domain

import "errors"

// ErrSessionNotFound is returned when a session cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrChatbotNotFound is returned when a chatbot lookup has no match.
var ErrChatbotNotFound = errors.New("chatbot not found")

// ErrAccountNotFound is returned when an account lookup has no match.
var ErrAccountNotFound = errors.New("account not found")

// ErrNoStartNode is returned when a flow graph has no start node.
var ErrNoStartNode = errors.New("flow has no start node")

// ErrHopLimit is returned when a single turn auto-continues through more nodes
// than allowed, which indicates a cycle of non-halting nodes.
var ErrHopLimit = errors.New("hop limit exceeded")

// ErrInvalidMode is returned for an unknown chatbot mode.
var ErrInvalidMode = errors.New("invalid chatbot mode")
