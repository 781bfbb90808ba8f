package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAvailable(t *testing.T) {
	assert.False(t, NewClient("", "", "").IsAvailable())
	assert.True(t, NewClient("", "sk-test", "").IsAvailable())
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", "sk-test", "")
	assert.Equal(t, "https://api.openai.com/v1", c.baseURL)
	assert.Equal(t, "gpt-4o-mini", c.model)

	c = NewClient("https://llm.example.com/v1/", "sk-test", "custom-model")
	assert.Equal(t, "https://llm.example.com/v1", c.baseURL, "trailing slash is trimmed")
	assert.Equal(t, "custom-model", c.model)
}

func TestRespond(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[0].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk-test", "test-model")
	reply, err := c.Respond(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
}

func TestRespondErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "sk-test", "m").Respond(context.Background(), "hello")
		assert.ErrorContains(t, err, "HTTP 429")
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "sk-test", "m").Respond(context.Background(), "hello")
		assert.ErrorContains(t, err, "no choices")
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1", "sk-test", "m").Respond(context.Background(), "hello")
		assert.Error(t, err)
	})
}
