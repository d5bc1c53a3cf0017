package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxHops bounds the nodes entered during a single turn.
const DefaultMaxHops = 50

// Engine advances conversations through flow graphs.
// It is stateless between turns; all progress lives in the session store.
type Engine struct {
	sessions *session.Manager
	sender   ports.Sender
	maxHops  int
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	tracer   trace.Tracer
}

// Option configures the Engine.
type Option func(*Engine)

// WithMaxHops sets the hop limit of a turn. Non-positive values are ignored.
func WithMaxHops(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// WithLogger configures the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates an engine that persists through sessions and delivers through sender.
func NewEngine(sessions *session.Manager, sender ports.Sender, opts ...Option) *Engine {
	e := &Engine{
		sessions: sessions,
		sender:   sender,
		maxHops:  DefaultMaxHops,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/aretw0/chatflow/internal/runtime")
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// turn carries the mutable state of one HandleTurn call.
type turn struct {
	domain.Turn
	graph  domain.FlowGraph
	cursor *session.Cursor
	result domain.TurnResult
	hops   int
	log    *slog.Logger
	span   trace.Span
}

// HandleTurn processes one admitted event against the chatbot's flow.
// The whole turn runs under the session lock. The returned error is non-nil
// only for infrastructure failures (lock or store); authoring errors, send
// failures and ignored input are reported through TurnResult.Outcome.
func (e *Engine) HandleTurn(ctx context.Context, in domain.Turn) (domain.TurnResult, error) {
	started := time.Now()
	key := domain.SessionKey(in.Account.ID, in.Event.SenderID)

	ctx, span := e.tracer.Start(ctx, "chatflow.turn", trace.WithAttributes(
		attribute.String(observability.ChatbotIDKey, in.Chatbot.ID),
		attribute.String(observability.SessionKeyKey, key),
		attribute.String("chatflow.event_kind", string(in.Event.Kind)),
	))
	defer span.End()

	t := &turn{
		Turn:  in,
		graph: in.Chatbot.Flow,
		log:   e.logger.With("session_key", key, "chatbot_id", in.Chatbot.ID),
		span:  span,
	}

	err := e.sessions.WithSession(ctx, in.Event.SenderID, in.Account.ID, func(ctx context.Context, c *session.Cursor) error {
		t.cursor = c
		return e.run(ctx, t)
	})
	if err != nil {
		observability.SetError(span, err)
		t.log.Error("Turn failed", "err", err)
		return t.result, err
	}

	if s := t.cursor.Session(); s != nil {
		t.result.FinalNodeID = s.CurrentNodeID
	}
	span.SetAttributes(
		attribute.String(observability.OutcomeKey, string(t.result.Outcome)),
		attribute.Int("chatflow.hops", t.hops),
	)
	if e.hooks.OnTurnEnd != nil {
		e.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
			EventBase: e.base(domain.EventTurnEnd, key),
			ChatbotID: in.Chatbot.ID,
			Result:    t.result,
			Duration:  time.Since(started),
		})
	}
	t.log.Debug("Turn processed", "outcome", t.result.Outcome, "sent", t.result.Sent, "visited", t.result.Visited)
	return t.result, nil
}

func (e *Engine) run(ctx context.Context, t *turn) error {
	current, err := e.position(ctx, t)
	if err != nil {
		return err
	}
	if t.result.Outcome != "" {
		return nil
	}

	next, ok, ignored := e.firstStep(t, current)
	if ignored {
		t.result.Outcome = domain.OutcomeIgnored
		return nil
	}

	for {
		if !ok {
			t.log.Debug("Dead end: no outgoing edge", "node_id", current.ID)
			t.result.Outcome = domain.OutcomeDeadEnd
			return nil
		}

		next, ok = e.followLoops(t, next)
		if !ok {
			return nil
		}
		if !e.hop(t) {
			return nil
		}

		e.enter(ctx, t, next)
		if payload, has := Render(next); has {
			if err := e.send(ctx, t, next, payload); err != nil {
				t.log.Error("Send failed", "node_id", next.ID, "payload", payload.PayloadKind(), "err", err)
				t.result.Outcome = domain.OutcomeSendFailed
				return nil
			}
		}

		if err := t.cursor.Advance(ctx, next.ID); err != nil {
			return err
		}
		current = next

		if current.Type == domain.KindEnd {
			t.result.Outcome = domain.OutcomeEnded
			return nil
		}
		if Halts(current) {
			t.result.Outcome = domain.OutcomeAwaiting
			return nil
		}
		next, ok = ResolveAny(t.graph, current.ID, DefaultHandles(current))
	}
}

// position returns the node the turn starts from, restarting the session at
// the start node when it is new, bound to another flow, points at a node that
// no longer exists, has finished, or when the turn forces a restart.
func (e *Engine) position(ctx context.Context, t *turn) (domain.Node, error) {
	s := t.cursor.Session()
	reason := ""
	var current domain.Node
	switch {
	case t.Restart:
		reason = "forced"
	case s == nil:
		reason = "new_session"
	case s.BoundFlowID != t.Chatbot.ID:
		reason = "flow_changed"
	default:
		n, ok := t.graph.Node(s.CurrentNodeID)
		switch {
		case !ok:
			reason = "node_missing"
		case n.Type == domain.KindEnd:
			reason = "flow_finished"
		default:
			current = n
		}
	}
	if reason == "" {
		return current, nil
	}

	start, ok := t.graph.StartNode()
	if !ok {
		t.log.Warn("Flow has no start node", "err", domain.ErrNoStartNode)
		t.result.Outcome = domain.OutcomeDeadEnd
		return domain.Node{}, nil
	}
	if err := t.cursor.Bind(ctx, t.Chatbot.ID, start.ID); err != nil {
		return domain.Node{}, err
	}
	t.result.Restarted = true
	t.log.Debug("Session restarted", "reason", reason, "start_node", start.ID)
	return start, nil
}

// firstStep resolves the node reached from current by the inbound event.
// ignored is true when the event must be dropped without any state change.
func (e *Engine) firstStep(t *turn, current domain.Node) (next domain.Node, ok, ignored bool) {
	ev := t.Event
	if current.Type == domain.KindStart {
		next, ok = ResolveAny(t.graph, current.ID, DefaultHandles(current))
		return next, ok, false
	}

	if !ev.IsSelection() {
		if current.Type == domain.KindQuickReply {
			t.log.Debug("Ignoring free text while awaiting a quick reply", "node_id", current.ID)
			return domain.Node{}, false, true
		}
		next, ok = ResolveAny(t.graph, current.ID, DefaultHandles(current))
		return next, ok, false
	}

	handle, found := selectionHandle(current, ev)
	if !found {
		t.log.Debug("Ignoring selection that does not belong to the current node",
			"node_id", current.ID, "payload", ev.Payload)
		return domain.Node{}, false, true
	}
	next, ok = Resolve(t.graph, current.ID, handle)
	return next, ok, false
}

func selectionHandle(current domain.Node, ev domain.Event) (string, bool) {
	if nodeID, handle, ok := domain.ParseSelectionToken(ev.Payload); ok {
		if nodeID != "" && nodeID != current.ID {
			return "", false
		}
		return handle, true
	}
	return MatchTitle(current, ev.Text)
}

// followLoops substitutes loop nodes by their targets.
func (e *Engine) followLoops(t *turn, n domain.Node) (domain.Node, bool) {
	for n.Type == domain.KindLoop {
		if !e.hop(t) {
			return domain.Node{}, false
		}
		t.result.Visited = append(t.result.Visited, n.ID)
		target := n.Data.(domain.LoopData).TargetNodeID
		resolved, ok := t.graph.Node(target)
		if !ok {
			t.log.Warn("Loop target cannot be resolved", "node_id", n.ID, "target", target)
			t.result.Outcome = domain.OutcomeDeadEnd
			return domain.Node{}, false
		}
		n = resolved
	}
	if _, unknown := n.Data.(domain.UnknownData); unknown {
		t.log.Warn("Unknown node kind", "node_id", n.ID, "type", n.Type)
		t.result.Outcome = domain.OutcomeDeadEnd
		return domain.Node{}, false
	}
	return n, true
}

// hop counts one traversal step and reports false once the limit is exceeded.
func (e *Engine) hop(t *turn) bool {
	t.hops++
	if t.hops <= e.maxHops {
		return true
	}
	t.log.Warn("Flow error", "err", domain.ErrHopLimit, "max_hops", e.maxHops)
	observability.SetError(t.span, domain.ErrHopLimit, attribute.Int("chatflow.max_hops", e.maxHops))
	t.result.Outcome = domain.OutcomeFlowError
	return false
}

func (e *Engine) enter(ctx context.Context, t *turn, n domain.Node) {
	t.result.Visited = append(t.result.Visited, n.ID)
	t.span.AddEvent("node.enter", trace.WithAttributes(
		attribute.String(observability.NodeIDKey, n.ID),
		attribute.String("chatflow.node_type", string(n.Type)),
	))
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: e.base(domain.EventNodeEnter, domain.SessionKey(t.Account.ID, t.Event.SenderID)),
			NodeID:    n.ID,
			NodeType:  n.Type,
		})
	}
}

func (e *Engine) send(ctx context.Context, t *turn, n domain.Node, payload domain.Payload) error {
	err := e.sender.Send(ctx, t.Event.SenderID, payload, t.Account.AccessToken)
	if err == nil {
		t.result.Sent++
	}
	if e.hooks.OnSend != nil {
		e.hooks.OnSend(ctx, &domain.SendEvent{
			EventBase:   e.base(domain.EventSend, domain.SessionKey(t.Account.ID, t.Event.SenderID)),
			NodeID:      n.ID,
			PayloadKind: payload.PayloadKind(),
			Err:         err,
		})
	}
	return err
}

func (e *Engine) base(typ domain.EventType, key string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now().UTC(), Type: typ, SessionKey: key}
}
