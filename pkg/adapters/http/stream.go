package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/go-chi/chi/v5"
)

const streamBuffer = 10

// StreamManager fans turn results out to SSE subscribers, keyed by chatbot id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager. A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger.With("component", "stream"),
	}
}

// Subscribe registers a channel for chatbotID. The returned func unregisters
// and closes it.
func (sm *StreamManager) Subscribe(chatbotID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, streamBuffer)
	if _, ok := sm.subscribers[chatbotID]; !ok {
		sm.subscribers[chatbotID] = make(map[chan string]struct{})
	}
	sm.subscribers[chatbotID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			subs := sm.subscribers[chatbotID]
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, chatbotID)
			}
		})
	}
}

// Subscribers returns how many channels listen on chatbotID.
func (sm *StreamManager) Subscribers(chatbotID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[chatbotID])
}

// Broadcast sends msg to every subscriber of chatbotID. Slow subscribers miss it.
func (sm *StreamManager) Broadcast(chatbotID, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[chatbotID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("Subscriber buffer full, dropping event", "chatbot_id", chatbotID)
		}
	}
}

// Hooks publishes every finished turn to the subscribers of its chatbot.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(_ context.Context, ev *domain.TurnEvent) {
			if sm.Subscribers(ev.ChatbotID) == 0 {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				sm.logger.Error("Failed to encode turn event", "err", err)
				return
			}
			sm.Broadcast(ev.ChatbotID, string(b))
		},
	}
}

// subscribeEvents handles GET /api/chatbots/{id}/events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.bots.Get(r.Context(), id); err != nil {
		s.serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE client subscribed", "chatbot_id", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "chatbot_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: turn\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
