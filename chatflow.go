package chatflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/adapters/messenger"
	"github.com/aretw0/chatflow/pkg/classifier"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
)

// Version is the release of the chatflow module. It is overridden at build time.
var Version = "0.4.0-dev"

// Stores groups the persistence ports the Service needs.
type Stores struct {
	Sessions ports.SessionStore
	Chatbots ports.ChatbotStore
	Accounts ports.AccountStore
}

// Service is the high-level entry point: it gates inbound events and runs
// admitted ones through the traversal engine.
type Service struct {
	engine   *runtime.Engine
	gate     *classifier.Gate
	sessions *session.Manager
	stores   Stores
	logger   *slog.Logger

	hooks      domain.LifecycleHooks
	maxHops    int
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	onAdmitted func(reason string)
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithMaxHops bounds the nodes entered by a single turn.
func WithMaxHops(n int) Option {
	return func(s *Service) {
		s.maxHops = n
	}
}

// WithLocker serializes turns across processes sharing the session store.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithAdmissionObserver is called with the reason of every gating decision.
func WithAdmissionObserver(fn func(reason string)) Option {
	return func(s *Service) {
		s.onAdmitted = fn
	}
}

// New wires the session manager, traversal engine and gate.
func New(stores Stores, sender ports.Sender, opts ...Option) (*Service, error) {
	if stores.Sessions == nil || stores.Chatbots == nil || stores.Accounts == nil {
		return nil, fmt.Errorf("sessions, chatbots and accounts stores are required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}

	s := &Service{stores: stores}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	managerOpts := []session.Option{session.WithLogger(s.logger)}
	if s.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(s.locker), session.WithLockTTL(s.lockTTL))
	}
	s.sessions = session.NewManager(stores.Sessions, managerOpts...)
	s.engine = runtime.NewEngine(s.sessions, sender,
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
		runtime.WithMaxHops(s.maxHops),
	)
	s.gate = classifier.NewGate(stores.Accounts, stores.Chatbots, classifier.WithLogger(s.logger))
	return s, nil
}

// HandleEvent gates ev and, when admitted, processes it as one turn.
// Events that are not admitted yield OutcomeIgnored without touching any session.
func (s *Service) HandleEvent(ctx context.Context, ev domain.Event) (domain.TurnResult, error) {
	adm, err := s.gate.Admit(ctx, ev)
	if err != nil {
		return domain.TurnResult{}, err
	}
	if s.onAdmitted != nil {
		s.onAdmitted(string(adm.Reason))
	}
	if !adm.Admitted {
		return domain.TurnResult{Outcome: domain.OutcomeIgnored}, nil
	}
	return s.engine.HandleTurn(ctx, adm.Turn)
}

// Webhook classifies the events of a webhook body and hands each processable
// one to d. It returns how many events were dispatched. Bodies for objects
// other than pages dispatch nothing.
func (s *Service) Webhook(ctx context.Context, body []byte, d ports.Dispatcher) (int, error) {
	env, err := messenger.ParseEnvelope(body)
	if err != nil {
		return 0, err
	}
	if env.Object != messenger.ObjectPage {
		s.logger.Debug("Ignoring webhook object", "object", env.Object)
		return 0, nil
	}

	var errs []error
	n := 0
	for _, raw := range env.Events() {
		ev, ok := classifier.Classify(raw)
		if !ok {
			continue
		}
		if err := d.Dispatch(ctx, ev); err != nil {
			s.logger.Error("Dispatch failed", "sender", ev.SenderID, "recipient", ev.RecipientID, "err", err)
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// ResetSession forgets the conversation of a user so the next event starts over.
func (s *Service) ResetSession(ctx context.Context, userKey, accountID string) error {
	return s.sessions.Delete(ctx, userKey, accountID)
}

// Sessions exposes the session manager.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Stores returns the stores the Service was built with.
func (s *Service) Stores() Stores {
	return s.stores
}
