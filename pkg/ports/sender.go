package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Sender delivers outbound payloads to an end user.
// The engine never retries a failed send.
type Sender interface {
	// Send delivers payload to recipientID on behalf of the account owning credential.
	Send(ctx context.Context, recipientID string, payload domain.Payload, credential string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, recipientID string, payload domain.Payload, credential string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, recipientID string, payload domain.Payload, credential string) error {
	return f(ctx, recipientID, payload, credential)
}
