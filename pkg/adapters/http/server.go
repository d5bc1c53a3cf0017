// Package http exposes the Messenger webhook, the chatbot management API and
// operational endpoints over chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/adapters/messenger"
	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxWebhookBody caps the size of an inbound webhook body.
const MaxWebhookBody = 1 << 20

// WebhookProcessor classifies a webhook body and dispatches its events.
type WebhookProcessor interface {
	Webhook(ctx context.Context, body []byte, d ports.Dispatcher) (int, error)
}

// SessionResetter forgets the conversation of a user.
type SessionResetter interface {
	ResetSession(ctx context.Context, userKey, accountID string) error
}

// Config wires the handler to the rest of the application.
type Config struct {
	Webhook    WebhookProcessor
	Dispatcher ports.Dispatcher
	// VerifyToken answers the subscription handshake.
	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 verification when set.
	AppSecret string

	Chatbots *chatbots.Service
	Sessions SessionResetter
	// Streams receives turn results for SSE; nil disables the events route.
	Streams *StreamManager
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// AdminToken protects /api with a bearer token when set.
	AdminToken string
	Version    string
	Logger     *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	cfg      Config
	bots     *chatbots.Service
	streams  *StreamManager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		bots:     cfg.Chatbots,
		streams:  cfg.Streams,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.Webhook != nil {
		r.Get("/webhook", s.verifyWebhook)
		r.Post("/webhook", s.receiveWebhook)
	}

	if s.bots != nil {
		r.Route("/api", s.routeAPI)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>chatflow API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "chatflow",
		"version":     strings.TrimSpace(s.cfg.Version),
		"api_version": apiVersion,
	})
}

// verifyWebhook answers the subscription handshake of the platform.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || s.cfg.VerifyToken == "" || q.Get("hub.verify_token") != s.cfg.VerifyToken {
		s.logger.Warn("Webhook verification rejected", "mode", q.Get("hub.mode"))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// receiveWebhook acknowledges every well-signed delivery with 200 so the
// platform does not retry; processing errors are only logged.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	log := s.logger.With("delivery_id", uuid.New().String())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBody))
	if err != nil {
		log.Warn("Failed to read webhook body", "err", err)
		writeJSON(w, http.StatusOK, successBody)
		return
	}

	if s.cfg.AppSecret != "" {
		if err := messenger.VerifySignature(s.cfg.AppSecret, body, r.Header.Get(messenger.SignatureHeader)); err != nil {
			log.Warn("Webhook signature rejected", "err", err)
			unauthorized(w, r, err.Error())
			return
		}
	}

	n, err := s.cfg.Webhook.Webhook(r.Context(), body, s.cfg.Dispatcher)
	if err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			log.Warn("Malformed webhook body", "err", err)
		} else {
			log.Error("Webhook processing failed", "dispatched", n, "err", err)
		}
	} else {
		log.Debug("Webhook accepted", "dispatched", n)
	}
	writeJSON(w, http.StatusOK, successBody)
}

var successBody = map[string]string{"status": "success"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
