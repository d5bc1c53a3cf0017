package chatflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// ContentRenderer transforms Markdown before output, e.g. into ANSI for a terminal.
type ContentRenderer func(string) (string, error)

// Runner drives a Simulator from line-based IO. A number taps the matching
// option; anything else is sent as free text.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// NewRunner creates a Runner over the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run plays the conversation until it ends, the input is exhausted or the
// user types exit.
func (r *Runner) Run(ctx context.Context, sim *Simulator) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- chatflow simulator (type exit to quit) ---")
	}

	step, err := sim.Say(ctx, "")
	if err != nil {
		return err
	}
	for {
		r.show(step)
		switch step.Result.Outcome {
		case domain.OutcomeEnded:
			if !r.Headless {
				fmt.Fprintln(r.Output, "(conversation ended)")
			}
			return nil
		case domain.OutcomeDeadEnd, domain.OutcomeFlowError, domain.OutcomeSendFailed:
			fmt.Fprintf(r.Output, "(%s)\n", step.Result.Outcome)
		case domain.OutcomeIgnored:
			if !r.Headless {
				fmt.Fprintln(r.Output, "(ignored: pick one of the options)")
			}
		}

		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && text != "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)
		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}

		if n, convErr := strconv.Atoi(input); convErr == nil && n >= 1 && n <= len(sim.Choices()) {
			step, err = sim.Choose(ctx, n)
		} else {
			step, err = sim.Say(ctx, input)
		}
		if err != nil {
			return err
		}
	}
}

func (r *Runner) show(step Step) {
	n := 1
	for _, p := range step.Payloads {
		out := FormatPayload(p, n)
		n += choiceCount(p)
		if r.Renderer != nil {
			if rendered, err := r.Renderer(out); err == nil {
				out = rendered
			}
		}
		fmt.Fprintln(r.Output, strings.TrimSpace(out))
	}
}
