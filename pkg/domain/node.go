package domain

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// NodeKind identifies the behavior of a node in a flow graph.
type NodeKind string

const (
	// KindStart marks the entry point of a flow. It renders nothing.
	KindStart NodeKind = "start"
	// KindMessage sends a plain text message.
	KindMessage NodeKind = "message"
	// KindQuickReply sends a question with up to MaxQuickReplies tappable replies.
	KindQuickReply NodeKind = "quickReply"
	// KindCard sends a single rich card.
	KindCard NodeKind = "card"
	// KindCarousel sends a horizontal list of cards.
	KindCarousel NodeKind = "carousel"
	// KindMedia sends a single image.
	KindMedia NodeKind = "media"
	// KindLoop jumps to another node of the same graph (silent step).
	KindLoop NodeKind = "loop"
	// KindEnd terminates the conversation.
	KindEnd NodeKind = "end"
)

// Legacy kind names produced by early versions of the flow builder.
var kindAliases = map[string]NodeKind{
	"input":       KindStart,
	"messageNode": KindMessage,
}

// Platform limits enforced at render time.
const (
	MaxQuickReplies  = 6
	MaxCardButtons   = 3
	MaxCarouselCards = 10
)

// Position is the canvas position used by the flow builder. The engine ignores it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a logical unit in the flow graph.
// Data always holds the variant that matches Type.
type Node struct {
	ID       string    `json:"id"`
	Type     NodeKind  `json:"type"`
	Data     NodeData  `json:"data"`
	Position *Position `json:"position,omitempty"`
}

type wireNode struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Position *Position       `json:"position,omitempty"`
}

// UnmarshalJSON decodes a node and its kind-specific data.
// Unknown fields inside data are ignored so that styling or editor-only
// properties added by the builder do not break the engine.
func (n *Node) UnmarshalJSON(b []byte) error {
	var w wireNode
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	kind := NodeKind(w.Type)
	if alias, ok := kindAliases[w.Type]; ok {
		kind = alias
	}

	raw := map[string]any{}
	if len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, &raw); err != nil {
			return fmt.Errorf("node %s: invalid data: %w", w.ID, err)
		}
	}

	data, err := decodeNodeData(kind, raw)
	if err != nil {
		return fmt.Errorf("node %s: %w", w.ID, err)
	}

	n.ID = w.ID
	n.Type = kind
	n.Data = data
	n.Position = w.Position
	return nil
}

// MarshalJSON writes the node back in the builder's wire format.
func (n Node) MarshalJSON() ([]byte, error) {
	var data any = map[string]any{}
	if n.Data != nil {
		data = n.Data
	}
	if u, ok := n.Data.(UnknownData); ok {
		data = u.Raw
	}
	return json.Marshal(struct {
		ID       string    `json:"id"`
		Type     NodeKind  `json:"type"`
		Data     any       `json:"data"`
		Position *Position `json:"position,omitempty"`
	}{n.ID, n.Type, data, n.Position})
}

func decodeNodeData(kind NodeKind, raw map[string]any) (NodeData, error) {
	var target NodeData
	switch kind {
	case KindStart:
		target = &StartData{}
	case KindMessage:
		target = &MessageData{}
	case KindQuickReply:
		target = &QuickReplyData{}
	case KindCard:
		target = &CardData{}
	case KindCarousel:
		target = &CarouselData{}
	case KindMedia:
		target = &MediaData{}
	case KindLoop:
		target = &LoopData{}
	case KindEnd:
		target = &EndData{}
	default:
		return UnknownData{Type: string(kind), Raw: raw}, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", kind, err)
	}

	// Store values, not pointers, so the sum type is comparable by kind only.
	switch d := target.(type) {
	case *StartData:
		return *d, nil
	case *MessageData:
		return *d, nil
	case *QuickReplyData:
		return *d, nil
	case *CardData:
		return *d, nil
	case *CarouselData:
		return *d, nil
	case *MediaData:
		return *d, nil
	case *LoopData:
		return *d, nil
	case *EndData:
		return *d, nil
	}
	return nil, fmt.Errorf("unsupported node kind %q", kind)
}
