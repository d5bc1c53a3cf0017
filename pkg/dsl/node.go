package dsl

import "github.com/aretw0/chatflow/pkg/domain"

// NodeBuilder provides a fluent API for wiring a node's outputs.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Go connects the default output to target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, "", target)
	return n
}

// Reply connects quick reply i to target.
func (n *NodeBuilder) Reply(i int, target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.QuickReplyHandle(i), target)
	return n
}

// Button connects postback button i of a card to target.
func (n *NodeBuilder) Button(i int, target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.ButtonHandle(i), target)
	return n
}

// CarouselButton connects button b of carousel card c to target.
func (n *NodeBuilder) CarouselButton(c, b int, target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.CarouselButtonHandle(c, b), target)
	return n
}

// Otherwise connects the pass-through output of a card or carousel to target.
// It is followed only when the node has no postback button to wait for.
func (n *NodeBuilder) Otherwise(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.DefaultOutputHandle, target)
	return n
}

// At overrides the editor position of the node.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = &domain.Position{X: x, Y: y}
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
