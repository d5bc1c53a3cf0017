package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// TurnHandler processes one classified inbound event.
type TurnHandler interface {
	HandleEvent(ctx context.Context, event domain.Event) (domain.TurnResult, error)
}

// Dispatcher hands classified events to a TurnHandler, possibly asynchronously.
// Dispatch returns once the event is accepted, not once it is processed.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.Event) error
	Close() error
}
