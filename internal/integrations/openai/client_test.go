package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dinner-agent/internal/domain"
)

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_NilKeySource(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"))
	require.NoError(t, err)
	require.Equal(t, "https://api.openai.com/v1", c.baseURL)
	require.Equal(t, DefaultModel, c.Model())
	require.InDelta(t, 0.7, c.temperature, 1e-9)
}

func TestNewClient_BlankModelKeepsDefault(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"), WithModel("  "))
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.Model())
}

// ---------------------------------------------------------------------------
// key resolution
// ---------------------------------------------------------------------------

type fakeKeySource struct {
	key   string
	err   error
	calls int
}

func (f *fakeKeySource) APIKey(_ context.Context) (string, error) {
	f.calls++
	return f.key, f.err
}

func TestStaticKey(t *testing.T) {
	key, err := StaticKey("  sk-abc ").APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-abc", key)

	_, err = StaticKey(" ").APIKey(context.Background())
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestConfigured_CachesSuccessfulLookup(t *testing.T) {
	keys := &fakeKeySource{key: "sk-from-source"}
	c, err := NewClient(keys)
	require.NoError(t, err)

	require.NoError(t, c.Configured(context.Background()))
	require.NoError(t, c.Configured(context.Background()))
	require.Equal(t, 1, keys.calls, "a resolved key must be reused")
}

func TestConfigured_RetriesFailedLookup(t *testing.T) {
	keys := &fakeKeySource{err: errors.New("ssm unavailable")}
	c, err := NewClient(keys)
	require.NoError(t, err)

	require.ErrorContains(t, c.Configured(context.Background()), "ssm unavailable")

	keys.err = nil
	keys.key = "sk-later"
	require.NoError(t, c.Configured(context.Background()))
	require.Equal(t, 2, keys.calls)
}

func TestConfigured_BlankKeyIsMissing(t *testing.T) {
	c, err := NewClient(&fakeKeySource{key: "   "})
	require.NoError(t, err)
	require.ErrorIs(t, c.Configured(context.Background()), ErrMissingAPIKey)
}

// ---------------------------------------------------------------------------
// Client.Complete
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		StaticKey("sk-test"),
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func replyServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Complete_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req chatRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		require.Equal(t, "gpt-4o-mini", req.Model)
		require.InDelta(t, 0.7, req.Temperature, 1e-9)
		require.Equal(t, []domain.ChatMessage{
			{Role: "system", Content: "추천 도우미"},
			{Role: "user", Content: "내 조건: 매콤한 한식, 1만원대"},
		}, req.Messages)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1670000000,
			"choices": [{
				"index": 0,
				"message": { "role": "assistant", "content": "  🍜 추천1 ...\n" }
			}]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Complete(context.Background(), "추천 도우미", "매콤한 한식, 1만원대")
	require.NoError(t, err)
	require.Equal(t, "🍜 추천1 ...", resp)
}

func TestClient_Complete_UsesConfiguredModelAndTemperature(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(StaticKey("sk-test"), WithBaseURL(srv.URL), WithModel("gpt-mock"), WithTemperature(0.2))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "sys", "hi")
	require.NoError(t, err)
	require.Equal(t, "gpt-mock", got.Model)
	require.InDelta(t, 0.2, got.Temperature, 1e-9)
}

func TestClient_Complete_FallbackWhenNoText(t *testing.T) {
	cases := map[string]string{
		"no choices":    `{"choices":[]}`,
		"empty content": `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
		"no message":    `{"choices":[{"index":0}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, replyServer(t, 200, body))
			resp, err := c.Complete(context.Background(), "sys", "hi")
			require.NoError(t, err)
			require.Equal(t, FallbackReply, resp)
		})
	}
}

func TestClient_Complete_Non200(t *testing.T) {
	c := newTestClient(t, replyServer(t, 401, "invalid_api_key"))
	_, err := c.Complete(context.Background(), "sys", "hi")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 401, statusErr.HTTPStatusCode())
	require.Equal(t, "invalid_api_key", statusErr.ResponseBody())
	require.Contains(t, err.Error(), "unexpected status 401")
}

func TestClient_Complete_ServerErrors(t *testing.T) {
	for _, status := range []int{429, 500} {
		c := newTestClient(t, replyServer(t, status, `{"error":"nope"}`))
		_, err := c.Complete(context.Background(), "sys", "hi")
		var statusErr *HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, status, statusErr.StatusCode)
	}
}

func TestClient_Complete_UnreadableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Declares more bytes than it sends, so reading the body fails.
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Complete(context.Background(), "sys", "hi")
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Empty(t, statusErr.Body)
}

func TestClient_Complete_InvalidJSON(t *testing.T) {
	c := newTestClient(t, replyServer(t, 200, `not-a-json`))
	_, err := c.Complete(context.Background(), "sys", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Complete(context.Background(), "sys", "hi")
	require.Error(t, err)
}

func TestClient_Complete_NetworkError(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"))
	require.NoError(t, err)
	c.baseURL = "http://127.0.0.1:1"
	c.httpClient = &http.Client{Timeout: 100 * time.Millisecond}

	_, err = c.Complete(context.Background(), "sys", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestClient_Complete_MissingKeyNeverCallsEndpoint(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, err := NewClient(StaticKey(""), WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "sys", "hi")
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.False(t, called)
}
