package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the chatflow collectors.
type Metrics struct {
	registry   *prometheus.Registry
	turns      *prometheus.CounterVec
	sends      *prometheus.CounterVec
	visits     *prometheus.CounterVec
	admissions *prometheus.CounterVec
	hops       prometheus.Histogram
	duration   prometheus.Histogram
	logger     *slog.Logger
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithLogger logs every lifecycle event at debug level.
func WithLogger(logger *slog.Logger) MetricsOption {
	return func(m *Metrics) { m.logger = logger }
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logger:   logging.NewNop(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatflow_turns_total",
			Help: "Processed turns by outcome",
		}, []string{"outcome"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatflow_sends_total",
			Help: "Outbound send attempts by payload kind and result",
		}, []string{"kind", "result"}),
		visits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatflow_node_visits_total",
			Help: "Nodes entered by kind",
		}, []string{"kind"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatflow_admissions_total",
			Help: "Inbound events by gating decision",
		}, []string{"reason"}),
		hops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatflow_turn_hops",
			Help:    "Nodes visited per turn",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 50},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatflow_turn_duration_seconds",
			Help:    "Turn processing time including sends",
			Buckets: prometheus.DefBuckets,
		}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "metrics")
	m.registry.MustRegister(
		m.turns, m.sends, m.visits, m.admissions, m.hops, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAdmission counts a gating decision.
func (m *Metrics) ObserveAdmission(reason string) {
	m.admissions.WithLabelValues(reason).Inc()
}

// Hooks returns lifecycle hooks that record metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.logger.Debug("node_enter", "session_key", e.SessionKey, "node_id", e.NodeID, "type", e.NodeType)
			m.visits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnSend: func(ctx context.Context, e *domain.SendEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.logger.Debug("send", "session_key", e.SessionKey, "node_id", e.NodeID, "kind", e.PayloadKind, "result", result)
			m.sends.WithLabelValues(e.PayloadKind, result).Inc()
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			m.logger.Debug("turn_end", "session_key", e.SessionKey, "outcome", e.Result.Outcome, "duration", e.Duration)
			m.turns.WithLabelValues(string(e.Result.Outcome)).Inc()
			m.hops.Observe(float64(len(e.Result.Visited)))
			m.duration.Observe(e.Duration.Seconds())
		},
	}
}

// Chain merges hook sets; every non-nil callback runs in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		h := h
		if f := h.OnNodeEnter; f != nil {
			prev := out.OnNodeEnter
			out.OnNodeEnter = func(ctx context.Context, e *domain.NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				f(ctx, e)
			}
		}
		if f := h.OnSend; f != nil {
			prev := out.OnSend
			out.OnSend = func(ctx context.Context, e *domain.SendEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				f(ctx, e)
			}
		}
		if f := h.OnTurnEnd; f != nil {
			prev := out.OnTurnEnd
			out.OnTurnEnd = func(ctx context.Context, e *domain.TurnEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				f(ctx, e)
			}
		}
	}
	return out
}
