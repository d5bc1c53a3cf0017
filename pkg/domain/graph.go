package domain

// Edge connects an output handle of Source to Target.
// A nil SourceHandle is the node's single default output.
type Edge struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
}

// HasHandle reports whether the edge leaves through handle.
// An empty handle matches only edges without a handle.
func (e Edge) HasHandle(handle string) bool {
	if handle == "" {
		return e.SourceHandle == nil || *e.SourceHandle == ""
	}
	return e.SourceHandle != nil && *e.SourceHandle == handle
}

// Handle returns the source handle, or "" for the default output.
func (e Edge) Handle() string {
	if e.SourceHandle == nil {
		return ""
	}
	return *e.SourceHandle
}

// FlowGraph is the node/edge document produced by the flow builder.
// The engine treats it as read-only.
type FlowGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the first node with the given id.
func (g FlowGraph) Node(id string) (Node, bool) {
	if id == "" {
		return Node{}, false
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// StartNode returns the first node of kind start.
func (g FlowGraph) StartNode() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Type == KindStart {
			return n, true
		}
	}
	return Node{}, false
}

// Ptr returns a pointer to s. Convenient for optional handles and flags.
func Ptr[T any](v T) *T {
	return &v
}
