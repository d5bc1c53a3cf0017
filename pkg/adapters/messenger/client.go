package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v20.0"
)

// SendError is a failed Graph API call.
type SendError struct {
	Status  int
	Code    int
	Subcode int
	Type    string
	Message string
	TraceID string
}

func (e *SendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("graph api: status %d: (#%d) %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("graph api: status %d: %s", e.Status, e.Message)
}

// Client implements ports.Sender on the Messenger Send API.
type Client struct {
	baseURL string
	version string
	http    *http.Client
	logger  *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another Graph API host (tests, proxies).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithAPIVersion sets the Graph API version path segment.
func WithAPIVersion(v string) ClientOption {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger configures the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Send API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		version: DefaultAPIVersion,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "messenger")
	return c
}

type sendRequest struct {
	Recipient     Party           `json:"recipient"`
	MessagingType string          `json:"messaging_type"`
	Message       outboundMessage `json:"message"`
}

type outboundMessage struct {
	Text         string              `json:"text,omitempty"`
	QuickReplies []outboundQuickRepl `json:"quick_replies,omitempty"`
	Attachment   *outboundAttachment `json:"attachment,omitempty"`
}

type outboundQuickRepl struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type outboundAttachment struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type genericTemplate struct {
	TemplateType string                   `json:"template_type"`
	Elements     []domain.TemplateElement `json:"elements"`
}

type imagePayload struct {
	URL        string `json:"url"`
	IsReusable bool   `json:"is_reusable"`
}

// buildMessage maps a rendered payload to the Send API message object.
func buildMessage(p domain.Payload) (outboundMessage, error) {
	switch v := p.(type) {
	case domain.TextPayload:
		return outboundMessage{Text: v.Text}, nil
	case domain.QuickRepliesPayload:
		msg := outboundMessage{Text: v.Text}
		for _, r := range v.Replies {
			msg.QuickReplies = append(msg.QuickReplies, outboundQuickRepl{ContentType: "text", Title: r.Title, Payload: r.Payload})
		}
		return msg, nil
	case domain.CardsPayload:
		return outboundMessage{Attachment: &outboundAttachment{
			Type:    "template",
			Payload: genericTemplate{TemplateType: "generic", Elements: v.Elements},
		}}, nil
	case domain.ImagePayload:
		return outboundMessage{Attachment: &outboundAttachment{
			Type:    "image",
			Payload: imagePayload{URL: v.URL, IsReusable: true},
		}}, nil
	}
	return outboundMessage{}, fmt.Errorf("unsupported payload %T", p)
}

// Send posts payload to recipientID using the page access token.
func (c *Client) Send(ctx context.Context, recipientID string, payload domain.Payload, credential string) error {
	msg, err := buildMessage(payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(sendRequest{
		Recipient:     Party{ID: recipientID},
		MessagingType: "RESPONSE",
		Message:       msg,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/me/messages?access_token=%s", c.baseURL, c.version, url.QueryEscape(credential))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("Message sent", "recipient", recipientID, "payload", payload.PayloadKind())
		return nil
	}
	return decodeError(resp.StatusCode, raw)
}

func decodeError(status int, raw []byte) error {
	var body struct {
		Error struct {
			Message   string `json:"message"`
			Type      string `json:"type"`
			Code      int    `json:"code"`
			Subcode   int    `json:"error_subcode"`
			FBTraceID string `json:"fbtrace_id"`
		} `json:"error"`
	}
	se := &SendError{Status: status, Message: http.StatusText(status)}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		se.Message = body.Error.Message
		se.Type = body.Error.Type
		se.Code = body.Error.Code
		se.Subcode = body.Error.Subcode
		se.TraceID = body.Error.FBTraceID
	}
	return se
}
