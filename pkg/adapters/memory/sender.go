package memory

import (
	"context"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Sent is one delivery captured by Recorder.
type Sent struct {
	RecipientID string
	Payload     domain.Payload
	Credential  string
}

// Recorder implements ports.Sender by recording every payload.
// FailOn makes Send fail for matching payloads.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent

	FailOn func(domain.Payload) error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the payload, or returns the error produced by FailOn.
func (r *Recorder) Send(ctx context.Context, recipientID string, payload domain.Payload, credential string) error {
	if r.FailOn != nil {
		if err := r.FailOn(payload); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{RecipientID: recipientID, Payload: payload, Credential: credential})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Payloads returns the recorded payloads in order.
func (r *Recorder) Payloads() []domain.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Payload, len(r.sent))
	for i, s := range r.sent {
		out[i] = s.Payload
	}
	return out
}

// Reset clears the recorded deliveries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
