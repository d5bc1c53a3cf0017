// Package dispatch decouples webhook acknowledgment from event processing.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Inline processes each event before Dispatch returns.
// It is used by tests and the CLI simulator where ordering must be deterministic.
type Inline struct {
	handler ports.TurnHandler
	logger  *slog.Logger
}

// NewInline creates an Inline dispatcher.
func NewInline(handler ports.TurnHandler, logger *slog.Logger) *Inline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Inline{handler: handler, logger: logger.With("component", "dispatch")}
}

// Dispatch runs the handler and returns its error.
func (d *Inline) Dispatch(ctx context.Context, event domain.Event) error {
	_, err := d.handler.HandleEvent(ctx, event)
	return err
}

// Close is a no-op.
func (d *Inline) Close() error {
	return nil
}
