package messenger_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/messenger"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	path  string
	token string
	body  map[string]any
}

func newGraph(t *testing.T, status int, reply string) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.token = r.URL.Query().Get("access_token")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestClient_SendText(t *testing.T) {
	srv, got := newGraph(t, http.StatusOK, `{"recipient_id":"u1","message_id":"m1"}`)
	client := messenger.NewClient(messenger.WithBaseURL(srv.URL))

	err := client.Send(context.Background(), "u1", domain.TextPayload{Text: "hello"}, "tok&en")
	require.NoError(t, err)

	assert.Equal(t, "/v20.0/me/messages", got.path)
	assert.Equal(t, "tok&en", got.token)
	assert.Equal(t, "RESPONSE", got.body["messaging_type"])
	assert.Equal(t, map[string]any{"id": "u1"}, got.body["recipient"])
	assert.Equal(t, map[string]any{"text": "hello"}, got.body["message"])
}

func TestClient_SendQuickReplies(t *testing.T) {
	srv, got := newGraph(t, http.StatusOK, `{}`)
	client := messenger.NewClient(messenger.WithBaseURL(srv.URL), messenger.WithAPIVersion("v19.0"))

	err := client.Send(context.Background(), "u1", domain.QuickRepliesPayload{
		Text:    "Pick",
		Replies: []domain.QuickReplyOption{{Title: "A", Payload: "CHATFLOW|q|handle-0"}},
	}, "tok")
	require.NoError(t, err)

	assert.Equal(t, "/v19.0/me/messages", got.path)
	msg := got.body["message"].(map[string]any)
	assert.Equal(t, "Pick", msg["text"])
	assert.Equal(t, []any{map[string]any{"content_type": "text", "title": "A", "payload": "CHATFLOW|q|handle-0"}}, msg["quick_replies"])
}

func TestClient_SendCards(t *testing.T) {
	srv, got := newGraph(t, http.StatusOK, `{}`)
	client := messenger.NewClient(messenger.WithBaseURL(srv.URL))

	err := client.Send(context.Background(), "u1", domain.CardsPayload{Elements: []domain.TemplateElement{{
		Title: "T", ImageURL: "http://img",
		Buttons: []domain.TemplateButton{{Type: domain.ButtonWebURL, Title: "Site", URL: "http://x"}},
	}}}, "tok")
	require.NoError(t, err)

	att := got.body["message"].(map[string]any)["attachment"].(map[string]any)
	assert.Equal(t, "template", att["type"])
	payload := att["payload"].(map[string]any)
	assert.Equal(t, "generic", payload["template_type"])
	el := payload["elements"].([]any)[0].(map[string]any)
	assert.Equal(t, "http://img", el["image_url"])
}

func TestClient_SendImage(t *testing.T) {
	srv, got := newGraph(t, http.StatusOK, `{}`)
	client := messenger.NewClient(messenger.WithBaseURL(srv.URL))

	require.NoError(t, client.Send(context.Background(), "u1", domain.ImagePayload{URL: "http://pic"}, "tok"))
	att := got.body["message"].(map[string]any)["attachment"].(map[string]any)
	assert.Equal(t, "image", att["type"])
	assert.Equal(t, map[string]any{"url": "http://pic", "is_reusable": true}, att["payload"])
}

func TestClient_GraphError(t *testing.T) {
	srv, _ := newGraph(t, http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190,"fbtrace_id":"abc"}}`)
	client := messenger.NewClient(messenger.WithBaseURL(srv.URL))

	err := client.Send(context.Background(), "u1", domain.TextPayload{Text: "x"}, "bad")
	var se *messenger.SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, 190, se.Code)
	assert.Equal(t, "OAuthException", se.Type)
	assert.Equal(t, "abc", se.TraceID)
	assert.Contains(t, err.Error(), "(#190)")
}

func TestClient_NonJSONError(t *testing.T) {
	srv, _ := newGraph(t, http.StatusBadGateway, `upstream down`)
	client := messenger.NewClient(messenger.WithBaseURL(srv.URL))

	err := client.Send(context.Background(), "u1", domain.TextPayload{Text: "x"}, "tok")
	var se *messenger.SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Bad Gateway", se.Message)
}
