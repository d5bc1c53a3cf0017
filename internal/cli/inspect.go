package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/internal/validator"
)

// ValidateFlow lints the flow at path and prints one line per issue.
// It reports whether the flow is free of errors; warnings do not fail it.
func ValidateFlow(path string, w io.Writer) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read flow: %w", err)
	}
	_, report, err := validator.ValidateDocument(raw)
	if err != nil {
		return false, err
	}
	for _, issue := range report.Issues {
		fmt.Fprintln(w, issue.String())
	}
	return !report.HasErrors(), nil
}

// GraphFlow writes the Mermaid diagram of the flow at path.
func GraphFlow(path string, w io.Writer) error {
	flow, err := chatflow.LoadFlow(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(flow, nil))
	return err
}
