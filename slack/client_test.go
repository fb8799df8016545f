package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/herald/config"
)

type recordedCall struct {
	Method  string
	Payload map[string]any
}

// fakeSlack stands in for the Slack Web API
func fakeSlack(t *testing.T, calls *[]recordedCall) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat.postMessage":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			*calls = append(*calls, recordedCall{Method: "chat.postMessage", Payload: payload})
			json.NewEncoder(w).Encode(map[string]any{
				"ok": true, "channel": payload["channel"], "ts": "1700000000.000100",
			})
		case "/chat.update":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			*calls = append(*calls, recordedCall{Method: "chat.update", Payload: payload})
			json.NewEncoder(w).Encode(map[string]any{
				"ok": true, "channel": payload["channel"], "ts": payload["ts"],
			})
		case "/chat.getPermalink":
			*calls = append(*calls, recordedCall{Method: "chat.getPermalink"})
			json.NewEncoder(w).Encode(map[string]any{
				"ok": true, "permalink": "https://example.slack.com/archives/C01/p1700000000000100",
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
		}
	}))
}

func newTestClient(t *testing.T, apiURL string, mentionUsers []string) *Client {
	t.Helper()
	client, err := NewClient(config.SlackConfig{
		Token:         "xoxb-test",
		APIURL:        apiURL,
		MentionUsers:  mentionUsers,
		RatePerSecond: 1000, // don't throttle tests
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.SlackConfig{}, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestPostTop(t *testing.T) {
	var calls []recordedCall
	srv := fakeSlack(t, &calls)
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	result, err := client.PostTop(context.Background(), "C01", "Deploy", map[string]string{"branch": "main"}, true)
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, "1700000000.000100", result.Handle)
	assert.Equal(t, "https://example.slack.com/archives/C01/p1700000000000100", result.Permalink)

	require.Len(t, calls, 2)
	assert.Equal(t, "chat.postMessage", calls[0].Method)
	text := calls[0].Payload["text"].(string)
	assert.Contains(t, text, "*Deploy*")
	assert.Contains(t, text, "branch: main")
	assert.Contains(t, text, "<!here>", "broadcast notice when no recipients configured")
	assert.Equal(t, "chat.getPermalink", calls[1].Method)
}

func TestPostReplyThreadsAndMentions(t *testing.T) {
	var calls []recordedCall
	srv := fakeSlack(t, &calls)
	defer srv.Close()

	client := newTestClient(t, srv.URL, []string{"U1", "U2"})

	result, err := client.PostReply(context.Background(), "C01", "1700000000.000100", "Building...", true)
	require.NoError(t, err)
	assert.True(t, result.OK)

	require.Len(t, calls, 1)
	assert.Equal(t, "1700000000.000100", calls[0].Payload["thread_ts"])
	text := calls[0].Payload["text"].(string)
	assert.Contains(t, text, "<@U1> <@U2>", "targeted mentions when recipients configured")
}

func TestPostReplyWithoutMention(t *testing.T) {
	var calls []recordedCall
	srv := fakeSlack(t, &calls)
	defer srv.Close()

	client := newTestClient(t, srv.URL, []string{"U1"})

	_, err := client.PostReply(context.Background(), "C01", "1700000000.000100", "Building...", false)
	require.NoError(t, err)

	text := calls[0].Payload["text"].(string)
	assert.NotContains(t, text, "<@U1>")
	assert.NotContains(t, text, "<!here>")
}

func TestUpsertReplyPostsWhenNoExistingHandle(t *testing.T) {
	var calls []recordedCall
	srv := fakeSlack(t, &calls)
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	result, err := client.UpsertReply(context.Background(), "C01", "1700000000.000100", "Step 1", false, "")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", calls[0].Payload["thread_ts"])
	assert.Equal(t, "chat.postMessage", calls[0].Method)
	assert.NotEmpty(t, result.Handle)
}

func TestUpsertReplyEditsExistingHandle(t *testing.T) {
	var calls []recordedCall
	srv := fakeSlack(t, &calls)
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	result, err := client.UpsertReply(context.Background(), "C01", "1700000000.000100", "Step 2", false, "1700000000.000500")
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "chat.update", calls[0].Method)
	assert.Equal(t, "1700000000.000500", calls[0].Payload["ts"])
	assert.Equal(t, "1700000000.000500", result.Handle, "edit returns the existing handle")
}

func TestAPIErrorSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.PostReply(context.Background(), "C_BAD", "ts", "text", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
