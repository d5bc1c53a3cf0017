package chatflow

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/chatflow/pkg/domain"
)

// ParseFlow decodes a flow document in the builder's JSON format.
// Structural problems are left to the validator; only undecodable input fails.
func ParseFlow(raw []byte) (domain.FlowGraph, error) {
	var g domain.FlowGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		return domain.FlowGraph{}, fmt.Errorf("invalid flow document: %w", err)
	}
	return g, nil
}

// LoadFlow reads and decodes the flow document at path.
func LoadFlow(path string) (domain.FlowGraph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.FlowGraph{}, fmt.Errorf("failed to read flow: %w", err)
	}
	return ParseFlow(raw)
}
