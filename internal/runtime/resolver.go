package runtime

import "github.com/aretw0/chatflow/pkg/domain"

// Resolve follows the first edge leaving sourceID through handle and returns
// its target. An empty handle matches only edges without a handle.
// It reports false when no edge matches or the target does not exist.
func Resolve(g domain.FlowGraph, sourceID, handle string) (domain.Node, bool) {
	for _, e := range g.Edges {
		if e.Source != sourceID || !e.HasHandle(handle) {
			continue
		}
		return g.Node(e.Target)
	}
	return domain.Node{}, false
}

// ResolveAny tries handles in order and returns the first resolved target.
func ResolveAny(g domain.FlowGraph, sourceID string, handles []string) (domain.Node, bool) {
	for _, h := range handles {
		if n, ok := Resolve(g, sourceID, h); ok {
			return n, true
		}
	}
	return domain.Node{}, false
}
