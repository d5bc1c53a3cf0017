// Package validator lints flow graphs. Linting is advisory: the engine runs
// any decodable graph and turns authoring mistakes into dead ends.
package validator

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed flow.schema.json
var flowSchema string

// Severity ranks an issue.
type Severity string

const (
	// SeverityError marks a mistake that breaks traversal.
	SeverityError Severity = "error"
	// SeverityWarning marks a construct the engine tolerates but probably surprises the author.
	SeverityWarning Severity = "warning"
)

// Issue is a single lint finding.
type Issue struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	var where string
	switch {
	case i.NodeID != "":
		where = " node " + i.NodeID
	case i.EdgeID != "":
		where = " edge " + i.EdgeID
	}
	return fmt.Sprintf("[%s]%s: %s", i.Severity, where, i.Message)
}

// Report collects the issues of one flow.
type Report struct {
	Issues []Issue `json:"issues"`
}

// HasErrors reports whether any issue has error severity.
func (r Report) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err summarizes error-severity issues, or returns nil.
func (r Report) Err() error {
	var lines []string
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			lines = append(lines, i.String())
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(lines), strings.Join(lines, "\n- "))
}

func (r *Report) add(sev Severity, nodeID, edgeID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, NodeID: nodeID, EdgeID: edgeID, Message: fmt.Sprintf(format, args...)})
}

// ValidateDocument checks raw against the flow JSON schema, decodes it and lints the result.
// The error is non-nil only when the document cannot be decoded at all.
func ValidateDocument(raw []byte) (domain.FlowGraph, Report, error) {
	var report Report

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(flowSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return domain.FlowGraph{}, report, fmt.Errorf("invalid flow document: %w", err)
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			report.add(SeverityError, "", "", "schema: %s", desc.String())
		}
		return domain.FlowGraph{}, report, nil
	}

	var g domain.FlowGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		return domain.FlowGraph{}, report, fmt.Errorf("invalid flow document: %w", err)
	}
	lint := Lint(g)
	report.Issues = append(report.Issues, lint.Issues...)
	return g, report, nil
}

// Lint inspects a decoded graph.
func Lint(g domain.FlowGraph) Report {
	var r Report
	nodes := make(map[string]domain.Node, len(g.Nodes))

	starts := 0
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			r.add(SeverityError, n.ID, "", "duplicate node id; only the first node is reachable")
			continue
		}
		nodes[n.ID] = n
		if n.Type == domain.KindStart {
			starts++
		}
		lintNode(&r, g, n)
	}
	switch {
	case starts == 0:
		r.add(SeverityError, "", "", "%v", domain.ErrNoStartNode)
	case starts > 1:
		r.add(SeverityWarning, "", "", "flow has %d start nodes; the first one is used", starts)
	}

	type outlet struct{ source, handle string }
	seen := make(map[outlet]string)
	for _, e := range g.Edges {
		src, okSrc := nodes[e.Source]
		if !okSrc {
			r.add(SeverityError, "", e.ID, "source %q does not exist", e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			r.add(SeverityError, "", e.ID, "target %q does not exist", e.Target)
		}
		key := outlet{e.Source, e.Handle()}
		if first, dup := seen[key]; dup {
			r.add(SeverityWarning, "", e.ID, "duplicates edge %s on handle %q; only the first is followed", first, e.Handle())
		} else {
			seen[key] = e.ID
		}
		if okSrc {
			lintHandle(&r, src, e)
		}
	}

	for _, id := range unreachable(g, nodes) {
		r.add(SeverityWarning, id, "", "node is not reachable from the start node")
	}
	return r
}

func lintNode(r *Report, g domain.FlowGraph, n domain.Node) {
	switch d := n.Data.(type) {
	case domain.UnknownData:
		r.add(SeverityWarning, n.ID, "", "unknown node type %q; traversal stops here", d.Type)
	case domain.LoopData:
		if d.TargetNodeID == "" {
			r.add(SeverityError, n.ID, "", "loop has no target")
		} else if _, ok := g.Node(d.TargetNodeID); !ok {
			r.add(SeverityError, n.ID, "", "loop target %q does not exist", d.TargetNodeID)
		}
	case domain.QuickReplyData:
		if len(d.Replies) == 0 {
			r.add(SeverityWarning, n.ID, "", "quick reply has no replies")
		}
		if len(d.Replies) > domain.MaxQuickReplies {
			r.add(SeverityWarning, n.ID, "", "%d replies; only the first %d are sent", len(d.Replies), domain.MaxQuickReplies)
		}
	case domain.CardData:
		lintCard(r, n.ID, "card", d.Card)
	case domain.CarouselData:
		if len(d.Cards) > domain.MaxCarouselCards {
			r.add(SeverityWarning, n.ID, "", "%d cards; only the first %d are sent", len(d.Cards), domain.MaxCarouselCards)
		}
		for i, c := range d.Cards {
			lintCard(r, n.ID, fmt.Sprintf("card %d", i), c)
		}
	case domain.MediaData:
		if d.ImageURL == "" {
			r.add(SeverityWarning, n.ID, "", "media node has no image URL; nothing is sent")
		}
	}
}

func lintCard(r *Report, nodeID, label string, c domain.Card) {
	if len(c.Buttons) > domain.MaxCardButtons {
		r.add(SeverityWarning, nodeID, "", "%s has %d buttons; only the first %d are sent", label, len(c.Buttons), domain.MaxCardButtons)
	}
	for i, b := range c.Buttons {
		if b.Type == domain.ButtonWebURL && b.URL == "" {
			r.add(SeverityWarning, nodeID, "", "%s button %d is a link without URL", label, i)
		}
	}
}

// lintHandle checks that the edge's handle can be produced by its source node.
func lintHandle(r *Report, src domain.Node, e domain.Edge) {
	h := domain.ParseHandle(e.Handle())
	if h.Kind == domain.HandleInvalid {
		r.add(SeverityError, "", e.ID, "unknown handle %q", e.Handle())
		return
	}

	ok := true
	switch d := src.Data.(type) {
	case domain.QuickReplyData:
		ok = h.Kind == domain.HandleQuickReply && h.Index < min(len(d.Replies), domain.MaxQuickReplies)
	case domain.CardData:
		ok = h.Kind == domain.HandleDefault || (h.Kind == domain.HandleDefaultOutput && !d.HasAdvanceButton()) ||
			(h.Kind == domain.HandleButton && advances(d.Card, h.Index))
	case domain.CarouselData:
		ok = h.Kind == domain.HandleDefault || (h.Kind == domain.HandleDefaultOutput && !d.HasAdvanceButton()) ||
			(h.Kind == domain.HandleCarouselButton && h.Card < min(len(d.Cards), domain.MaxCarouselCards) && advances(d.Cards[h.Card], h.Index))
	case domain.EndData:
		r.add(SeverityWarning, "", e.ID, "edge leaves an end node and is never followed")
		return
	default:
		ok = h.Kind == domain.HandleDefault
	}
	if !ok {
		r.add(SeverityWarning, "", e.ID, "handle %q is never produced by %s node %s", e.Handle(), src.Type, src.ID)
	}
}

func advances(c domain.Card, i int) bool {
	return i < min(len(c.Buttons), domain.MaxCardButtons) && c.Buttons[i].Advances()
}

// unreachable crawls edges and loop jumps from the start node.
func unreachable(g domain.FlowGraph, nodes map[string]domain.Node) []string {
	start, ok := g.StartNode()
	if !ok {
		return nil
	}
	adj := make(map[string][]string)
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	visited := map[string]bool{}
	queue := []string{start.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		next := adj[id]
		if loop, ok := nodes[id].Data.(domain.LoopData); ok && loop.TargetNodeID != "" {
			next = append(next, loop.TargetNodeID)
		}
		for _, t := range next {
			if _, exists := nodes[t]; exists && !visited[t] {
				queue = append(queue, t)
			}
		}
	}

	var out []string
	for _, n := range g.Nodes {
		if !visited[n.ID] && n.Type != domain.KindStart {
			out = append(out, n.ID)
		}
	}
	return dedupe(out)
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
