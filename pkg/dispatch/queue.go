package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Topic carries classified inbound events.
const Topic = "chatflow.events"

const sessionKeyMetadata = "session_key"

// Queue publishes events on an in-process watermill channel and processes each
// one in its own goroutine. Events of the same session are serialized later by
// the session lock, not by the queue.
type Queue struct {
	pubsub  *gochannel.GoChannel
	handler ports.TurnHandler
	logger  *slog.Logger
	timeout time.Duration

	inflight sync.WaitGroup
	done     chan struct{}
	close    sync.Once
}

// QueueOption configures the Queue.
type QueueOption func(*Queue)

// WithLogger configures the queue logger.
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = logger }
}

// WithTimeout bounds the processing of a single event.
func WithTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue creates a Queue and starts consuming.
func NewQueue(handler ports.TurnHandler, opts ...QueueOption) (*Queue, error) {
	q := &Queue{
		handler: handler,
		logger:  logging.NewNop(),
		timeout: 30 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With("component", "queue")

	q.pubsub = gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            1000,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(q.logger),
	)

	messages, err := q.pubsub.Subscribe(context.Background(), Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}
	go q.consume(messages)
	return q, nil
}

// Dispatch publishes the event and returns without waiting for processing.
func (q *Queue) Dispatch(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(sessionKeyMetadata, event.RecipientID+":"+event.SenderID)
	return q.pubsub.Publish(Topic, msg)
}

func (q *Queue) consume(messages <-chan *message.Message) {
	defer close(q.done)
	for msg := range messages {
		var event domain.Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			q.logger.Error("Dropping undecodable event", "message_uuid", msg.UUID, "err", err)
			msg.Ack()
			continue
		}

		q.inflight.Add(1)
		go q.process(msg.UUID, msg.Metadata.Get(sessionKeyMetadata), event)

		// Delivery is fire-and-forget: ack as soon as the event is owned by a worker.
		msg.Ack()
	}
}

func (q *Queue) process(id, key string, event domain.Event) {
	defer q.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	res, err := q.handler.HandleEvent(ctx, event)
	if err != nil {
		q.logger.Error("Event processing failed", "message_uuid", id, "session_key", key, "err", err)
		return
	}
	q.logger.Debug("Event processed", "message_uuid", id, "session_key", key, "outcome", res.Outcome)
}

// Close stops accepting events and waits for in-flight events to finish.
func (q *Queue) Close() error {
	var err error
	q.close.Do(func() {
		err = q.pubsub.Close()
		<-q.done
		q.inflight.Wait()
	})
	return err
}
