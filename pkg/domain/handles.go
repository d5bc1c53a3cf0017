package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultOutputHandle is the pass-through output of card and carousel nodes.
const DefaultOutputHandle = "default-output"

const tokenPrefix = "CHATFLOW|"

// QuickReplyHandle returns the output handle for reply index i.
func QuickReplyHandle(i int) string {
	return fmt.Sprintf("handle-%d", i)
}

// ButtonHandle returns the output handle for card button index i.
func ButtonHandle(i int) string {
	return fmt.Sprintf("button-%d", i)
}

// CarouselButtonHandle returns the output handle for button b of card c.
func CarouselButtonHandle(c, b int) string {
	return fmt.Sprintf("card-%d-button-%d", c, b)
}

// HandleKind classifies an output handle.
type HandleKind int

const (
	HandleInvalid HandleKind = iota
	HandleDefault
	HandleQuickReply
	HandleButton
	HandleCarouselButton
	HandleDefaultOutput
)

// Handle is a parsed output handle.
type Handle struct {
	Kind   HandleKind
	Card   int
	Index  int
	String string
}

// ParseHandle classifies a handle string. The empty string is the default output.
func ParseHandle(h string) Handle {
	out := Handle{String: h}
	switch {
	case h == "":
		out.Kind = HandleDefault
	case h == DefaultOutputHandle:
		out.Kind = HandleDefaultOutput
	case strings.HasPrefix(h, "handle-"):
		if i, ok := parseIndex(strings.TrimPrefix(h, "handle-")); ok {
			out.Kind, out.Index = HandleQuickReply, i
		}
	case strings.HasPrefix(h, "button-"):
		if i, ok := parseIndex(strings.TrimPrefix(h, "button-")); ok {
			out.Kind, out.Index = HandleButton, i
		}
	case strings.HasPrefix(h, "card-"):
		rest := strings.TrimPrefix(h, "card-")
		c, b, found := strings.Cut(rest, "-button-")
		if !found {
			break
		}
		ci, ok1 := parseIndex(c)
		bi, ok2 := parseIndex(b)
		if ok1 && ok2 {
			out.Kind, out.Card, out.Index = HandleCarouselButton, ci, bi
		}
	}
	return out
}

func parseIndex(s string) (int, bool) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// SelectionToken encodes the payload attached to a quick reply or postback
// button. It is derived from the node id and the handle, so a selection can be
// mapped back to its edge without extra state.
func SelectionToken(nodeID, handle string) string {
	return tokenPrefix + nodeID + "|" + handle
}

// ParseSelectionToken decodes a payload produced by SelectionToken.
// Payloads in the legacy form "BUTTON_{i}_CLICKED" decode to "button-{i}"
// with an empty node id.
func ParseSelectionToken(payload string) (nodeID, handle string, ok bool) {
	if rest, found := strings.CutPrefix(payload, tokenPrefix); found {
		idx := strings.LastIndex(rest, "|")
		if idx <= 0 || idx == len(rest)-1 {
			return "", "", false
		}
		nodeID, handle = rest[:idx], rest[idx+1:]
		if ParseHandle(handle).Kind == HandleInvalid {
			return "", "", false
		}
		return nodeID, handle, true
	}

	if inner, found := strings.CutPrefix(payload, "BUTTON_"); found {
		if num, found := strings.CutSuffix(inner, "_CLICKED"); found {
			if i, ok := parseIndex(num); ok {
				return "", ButtonHandle(i), true
			}
		}
	}
	return "", "", false
}
