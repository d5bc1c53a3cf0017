package dsl

import (
	"fmt"

	"github.com/aretw0/chatflow/internal/validator"
	"github.com/aretw0/chatflow/pkg/domain"
)

// Builder manages the graph construction. Nodes and edges keep their
// insertion order.
type Builder struct {
	nodes []*NodeBuilder
	index map[string]*NodeBuilder
	edges []domain.Edge
	x, y  float64
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{index: make(map[string]*NodeBuilder)}
}

// add creates the node or, when id exists, replaces its data.
func (b *Builder) add(id string, data domain.NodeData) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		nb.node.Type, nb.node.Data = data.Kind(), data
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:       id,
			Type:     data.Kind(),
			Data:     data,
			Position: &domain.Position{X: b.x, Y: b.y},
		},
		builder: b,
	}
	// Lay nodes out top-down so the builder shows something sensible.
	b.y += 120
	b.nodes = append(b.nodes, nb)
	b.index[id] = nb
	return nb
}

// Start adds the entry node.
func (b *Builder) Start(id string) *NodeBuilder {
	return b.add(id, domain.StartData{Label: "Start"})
}

// Message adds a text message that waits for a reply.
func (b *Builder) Message(id, text string) *NodeBuilder {
	return b.add(id, domain.MessageData{Message: text})
}

// Say adds a text message that continues without waiting.
func (b *Builder) Say(id, text string) *NodeBuilder {
	return b.add(id, domain.MessageData{Message: text, WaitForReply: domain.Ptr(false)})
}

// QuickReply adds a question with one reply button per title.
func (b *Builder) QuickReply(id, text string, titles ...string) *NodeBuilder {
	replies := make([]domain.QuickReply, len(titles))
	for i, t := range titles {
		replies[i] = domain.QuickReply{Title: t}
	}
	return b.add(id, domain.QuickReplyData{Message: text, Replies: replies})
}

// Card adds a single rich card.
func (b *Builder) Card(id string, card domain.Card) *NodeBuilder {
	return b.add(id, domain.CardData{Card: card})
}

// Carousel adds a list of cards.
func (b *Builder) Carousel(id string, cards ...domain.Card) *NodeBuilder {
	return b.add(id, domain.CarouselData{Cards: cards})
}

// Media adds an image.
func (b *Builder) Media(id, imageURL string) *NodeBuilder {
	return b.add(id, domain.MediaData{ImageURL: imageURL})
}

// Loop adds a node that jumps to target.
func (b *Builder) Loop(id, target string) *NodeBuilder {
	return b.add(id, domain.LoopData{TargetNodeID: target})
}

// End adds a terminal node. An empty message sends nothing.
func (b *Builder) End(id, message string) *NodeBuilder {
	d := domain.EndData{Label: "End", Message: message}
	if message == "" {
		d.SendMessage = domain.Ptr(false)
	}
	return b.add(id, d)
}

func (b *Builder) connect(source, handle, target string) {
	e := domain.Edge{
		ID:     fmt.Sprintf("e%d-%s-%s", len(b.edges)+1, source, target),
		Source: source,
		Target: target,
	}
	if handle != "" {
		e.SourceHandle = domain.Ptr(handle)
	}
	b.edges = append(b.edges, e)
}

// Graph returns the graph as built, without checks.
func (b *Builder) Graph() domain.FlowGraph {
	g := domain.FlowGraph{
		Nodes: make([]domain.Node, 0, len(b.nodes)),
		Edges: append([]domain.Edge(nil), b.edges...),
	}
	for _, nb := range b.nodes {
		g.Nodes = append(g.Nodes, nb.node)
	}
	return g
}

// Build returns the graph, failing when the linter reports errors.
// Warnings are tolerated.
func (b *Builder) Build() (domain.FlowGraph, error) {
	g := b.Graph()
	if err := validator.Lint(g).Err(); err != nil {
		return domain.FlowGraph{}, err
	}
	return g, nil
}
