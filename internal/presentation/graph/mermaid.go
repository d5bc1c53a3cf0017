// Package graph renders flow graphs as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/chatflow/pkg/domain"
)

const maxLabel = 32

// Overlay marks session progress on the chart.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of g. Shapes follow the node kind:
//   - start: ((circle))
//   - end: (((double circle)))
//   - quickReply: [/parallelogram/]
//   - card, carousel: [[subroutine]]
//   - everything else: [rectangle]
//
// Edges leaving a named handle are labelled with the option that selects them
// and loop jumps are drawn dotted.
func GenerateMermaid(g domain.FlowGraph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	nodes := make(map[string]domain.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			continue
		}
		nodes[n.ID] = n

		opener, closer := "[", "]"
		switch n.Type {
		case domain.KindStart:
			opener, closer = "((", "))"
		case domain.KindEnd:
			opener, closer = "(((", ")))"
		case domain.KindQuickReply:
			opener, closer = "[/", "/]"
		case domain.KindCard, domain.KindCarousel:
			opener, closer = "[[", "]]"
		}

		label := n.ID
		if summary := summarize(n); summary != "" {
			label += "<br/>" + summary
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(n.ID), opener, escape(label), closer)

		if loop, ok := n.Data.(domain.LoopData); ok && loop.TargetNodeID != "" {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", sanitizeMermaidID(n.ID), sanitizeMermaidID(loop.TargetNodeID))
		}
	}

	for _, e := range g.Edges {
		arrow := "-->"
		if h := e.Handle(); h != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(handleLabel(nodes[e.Source], h)))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if id == "" || seen[safeID] || id == overlay.CurrentNode {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// summarize returns the text a node shows, shortened.
func summarize(n domain.Node) string {
	var s string
	switch d := n.Data.(type) {
	case domain.MessageData:
		s = d.Message
	case domain.QuickReplyData:
		s = d.Message
	case domain.CardData:
		s = d.Title
	case domain.CarouselData:
		s = fmt.Sprintf("%d cards", len(d.Cards))
	case domain.MediaData:
		s = "image"
	case domain.EndData:
		s = d.Message
	case domain.UnknownData:
		s = "unknown: " + d.Type
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxLabel {
		s = string(r[:maxLabel-1]) + "…"
	}
	return s
}

// handleLabel names the option behind handle, falling back to the handle itself.
func handleLabel(n domain.Node, handle string) string {
	h := domain.ParseHandle(handle)
	switch d := n.Data.(type) {
	case domain.QuickReplyData:
		if h.Kind == domain.HandleQuickReply && h.Index < len(d.Replies) {
			return d.Replies[h.Index].Title
		}
	case domain.CardData:
		if h.Kind == domain.HandleButton && h.Index < len(d.Buttons) {
			return d.Buttons[h.Index].Title
		}
	case domain.CarouselData:
		if h.Kind == domain.HandleCarouselButton && h.Card < len(d.Cards) && h.Index < len(d.Cards[h.Card].Buttons) {
			return d.Cards[h.Card].Title + ": " + d.Cards[h.Card].Buttons[h.Index].Title
		}
	}
	if h.Kind == domain.HandleDefaultOutput {
		return "default"
	}
	return handle
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
	if s != "" && unicode.IsDigit(rune(s[0])) {
		s = "n" + s
	}
	return s
}
