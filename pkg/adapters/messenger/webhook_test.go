package messenger_test

import (
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/messenger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageBody = `{
  "object": "page",
  "entry": [
    {"id": "PAGE", "time": 1, "messaging": [
      {"sender": {"id": "U1"}, "recipient": {"id": "PAGE"}, "timestamp": 10, "message": {"mid": "m1", "text": "hi"}},
      {"sender": {"id": "U1"}, "recipient": {"id": "PAGE"}, "timestamp": 11, "postback": {"title": "Buy", "payload": "P"}}
    ]},
    {"id": "PAGE", "time": 2, "messaging": [
      {"sender": {"id": "U2"}, "recipient": {"id": "PAGE"}, "timestamp": 12, "message": {"mid": "m2", "text": "Yes", "quick_reply": {"payload": "Q"}}}
    ]}
  ]
}`

func TestParseEnvelope(t *testing.T) {
	env, err := messenger.ParseEnvelope([]byte(pageBody))
	require.NoError(t, err)

	events := env.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "hi", events[0].Message.Text)
	assert.Equal(t, "P", events[1].Postback.Payload)
	assert.Equal(t, "Q", events[2].Message.QuickReply.Payload)
}

func TestEnvelope_IgnoresOtherObjects(t *testing.T) {
	env, err := messenger.ParseEnvelope([]byte(`{"object":"instagram","entry":[{"messaging":[{"sender":{"id":"x"}}]}]}`))
	require.NoError(t, err)
	assert.Empty(t, env.Events())

	_, err = messenger.ParseEnvelope([]byte(`{`))
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(pageBody)
	sig := messenger.Sign("secret", body)

	assert.NoError(t, messenger.VerifySignature("secret", body, sig))
	assert.ErrorIs(t, messenger.VerifySignature("other", body, sig), messenger.ErrBadSignature)
	assert.ErrorIs(t, messenger.VerifySignature("secret", append(body, ' '), sig), messenger.ErrBadSignature)
	assert.ErrorIs(t, messenger.VerifySignature("secret", body, ""), messenger.ErrMissingSignature)
	assert.ErrorIs(t, messenger.VerifySignature("secret", body, "sha1=abc"), messenger.ErrBadSignature)
	assert.ErrorIs(t, messenger.VerifySignature("secret", body, "sha256=zz"), messenger.ErrBadSignature)
}
