package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/presentation/tui"
	"github.com/aretw0/chatflow/pkg/domain"
	"golang.org/x/term"
)

// RunOptions configures RunFlow.
type RunOptions struct {
	FlowPath string
	// Headless disables the banner, prompts and Markdown rendering.
	Headless bool
	Input    io.Reader
	Output   io.Writer
	Logger   *slog.Logger
}

// RunFlow plays the flow at opts.FlowPath in the terminal simulator.
func RunFlow(ctx context.Context, opts RunOptions) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var (
		flow = domain.DefaultFlow()
		err  error
	)
	if opts.FlowPath != "" {
		if flow, err = chatflow.LoadFlow(opts.FlowPath); err != nil {
			return err
		}
	}

	simOpts := []chatflow.Option{}
	if opts.Logger != nil {
		simOpts = append(simOpts, chatflow.WithLogger(opts.Logger))
	}
	sim, err := chatflow.NewSimulator(flow, simOpts...)
	if err != nil {
		return err
	}

	r := chatflow.NewRunner(opts.Input, opts.Output)
	r.Headless = opts.Headless
	if !opts.Headless {
		tui.PrintBanner(opts.Output, chatflow.Version)
		if isTerminal(opts.Output) {
			render, err := tui.NewRenderer(tui.DefaultWordWrap)
			if err != nil {
				return fmt.Errorf("failed to create renderer: %w", err)
			}
			r.Renderer = render
		}
	}
	return r.Run(ctx, sim)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
