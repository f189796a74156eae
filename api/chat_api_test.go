package api

import (
	"bufio"
	"bytes"
	"chatrelay/domain"
	"chatrelay/llm"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatBody(t *testing.T, provider domain.Provider, modelName string, stream bool, webSearch bool) *bytes.Buffer {
	t.Helper()
	tools, err := domain.SetToolEnabled(domain.AvailableTools(), domain.ToolWebSearch, webSearch)
	require.NoError(t, err)
	req := domain.ChatRequest{
		Messages: []domain.Message{
			domain.NewMessage(domain.RoleUser, "Hello"),
			{Id: "sys", Role: "system", Content: "dropped"},
		},
		Model:  domain.Model{Provider: provider, Name: modelName},
		Tools:  tools,
		Stream: stream,
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func postChat(router http.Handler, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestChatHandler_NonStreaming(t *testing.T) {
	t.Parallel()

	openai := newFakeStreamingAdapter("unused")
	openai.reply = "Hi there"
	router := newTestRouter(t, &llm.Registry{OpenAI: openai})

	w := postChat(router, chatBody(t, domain.ProviderOpenAI, "gpt-4o", false, true))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hi there", resp.Message.Content)
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.NotEmpty(t, resp.Message.Id)

	forwarded := openai.lastRequest()
	require.Len(t, forwarded.Messages, 1, "system message must not reach the adapter")
	assert.True(t, domain.WebSearchEnabled(forwarded.Tools))
	assert.Equal(t, "gpt-4o", forwarded.Model.Name)
}

func TestChatHandler_StreamFlagIgnoredForNonStreamingProvider(t *testing.T) {
	t.Parallel()

	anthropic := &fakeAdapter{reply: "From Claude"}
	router := newTestRouter(t, &llm.Registry{Anthropic: anthropic})

	w := postChat(router, chatBody(t, domain.ProviderAnthropic, "claude-3-5-sonnet-20241022", true, false))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "From Claude", resp.Message.Content)
}

func TestChatHandler_WebSearchWithAnthropicGoesToAnthropic(t *testing.T) {
	t.Parallel()

	openai := newFakeStreamingAdapter()
	anthropic := &fakeAdapter{reply: "From Claude"}
	router := newTestRouter(t, &llm.Registry{OpenAI: openai, Anthropic: anthropic})

	w := postChat(router, chatBody(t, domain.ProviderAnthropic, "claude-3-5-haiku-20241022", false, true))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Zero(t, openai.calls.Load())
	assert.Equal(t, int32(1), anthropic.calls.Load())
	assert.Equal(t, domain.ProviderAnthropic, anthropic.lastRequest().Model.Provider)
}

func TestChatHandler_UnsupportedProvider(t *testing.T) {
	t.Parallel()

	openai := newFakeStreamingAdapter()
	anthropic := &fakeAdapter{}
	router := newTestRouter(t, &llm.Registry{OpenAI: openai, Anthropic: anthropic})

	w := postChat(router, chatBody(t, "mistral", "large", false, false))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unsupported model provider", errorBody(t, w))
	assert.Zero(t, openai.calls.Load())
	assert.Zero(t, anthropic.calls.Load())
}

func TestChatHandler_MissingCredential(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &llm.Registry{})

	tests := []struct {
		provider domain.Provider
		model    string
		want     string
	}{
		{provider: domain.ProviderOpenAI, model: "gpt-4o", want: "OpenAI API key not configured"},
		{provider: domain.ProviderAnthropic, model: "claude-3-5-haiku-20241022", want: "Anthropic API key not configured"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			t.Parallel()
			w := postChat(router, chatBody(t, tt.provider, tt.model, true, false))
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tt.want, errorBody(t, w))
		})
	}
}

func TestChatHandler_BadRequests(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &llm.Registry{OpenAI: newFakeStreamingAdapter()})

	w := postChat(router, bytes.NewBufferString(`{"messages": [`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorBody(t, w), "invalid request body")

	w = postChat(router, bytes.NewBufferString(`{"messages": [], "model": {"provider": "openai", "name": "gpt-4o"}}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "messages are required", errorBody(t, w))
}

func TestChatHandler_ProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantRetry  string
	}{
		{name: "auth", err: &llm.ProviderError{Kind: llm.ErrorKindAuth, Message: "Incorrect API key"}, wantStatus: http.StatusUnauthorized},
		{name: "rate limit", err: &llm.ProviderError{Kind: llm.ErrorKindRateLimit, Message: "Slow down", RetryAfter: 20 * time.Second}, wantStatus: http.StatusTooManyRequests, wantRetry: "20"},
		{name: "server", err: &llm.ProviderError{Kind: llm.ErrorKindServer, Message: "Overloaded"}, wantStatus: http.StatusBadGateway},
		{name: "timeout", err: &llm.ProviderError{Kind: llm.ErrorKindTimeout, Message: "Anthropic request timed out"}, wantStatus: http.StatusGatewayTimeout},
		{name: "unknown", err: &llm.ProviderError{Kind: llm.ErrorKindUnknown, Message: "Anthropic API error"}, wantStatus: http.StatusInternalServerError},
		{name: "unclassified", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(t, &llm.Registry{Anthropic: &fakeAdapter{err: tt.err}})

			w := postChat(router, chatBody(t, domain.ProviderAnthropic, "claude-3-5-haiku-20241022", false, false))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.err.Error(), errorBody(t, w))
			assert.Equal(t, tt.wantRetry, w.Header().Get("Retry-After"))
		})
	}
}

func TestChatHandler_Streaming(t *testing.T) {
	t.Parallel()

	openai := newFakeStreamingAdapter("Hel", "lo")
	router := newTestRouter(t, &llm.Registry{OpenAI: openai})

	w := postChat(router, chatBody(t, domain.ProviderOpenAI, "gpt-4o", true, false))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	assert.Equal(t,
		"data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\ndata: {\"done\":true}\n\n",
		w.Body.String())
}

func TestChatHandler_StreamingNoDeltas(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &llm.Registry{OpenAI: newFakeStreamingAdapter()})

	w := postChat(router, chatBody(t, domain.ProviderOpenAI, "gpt-4o", true, false))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: {\"done\":true}\n\n", w.Body.String())
}

func TestChatHandler_StreamingErrorAfterDeltas(t *testing.T) {
	t.Parallel()

	openai := newFakeStreamingAdapter("partial")
	openai.streamErr = &llm.ProviderError{Kind: llm.ErrorKindServer, Message: "The model crashed"}
	router := newTestRouter(t, &llm.Registry{OpenAI: openai})

	w := postChat(router, chatBody(t, domain.ProviderOpenAI, "gpt-4o", true, false))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"data: {\"content\":\"partial\"}\n\ndata: {\"error\":\"The model crashed\"}\n\n",
		w.Body.String())
}

func TestChatHandler_StreamingErrorBeforeFirstDelta(t *testing.T) {
	t.Parallel()

	openai := newFakeStreamingAdapter()
	openai.streamErr = &llm.ProviderError{Kind: llm.ErrorKindRateLimit, Message: "Slow down", RetryAfter: 3 * time.Second}
	router := newTestRouter(t, &llm.Registry{OpenAI: openai})

	w := postChat(router, chatBody(t, domain.ProviderOpenAI, "gpt-4o", true, false))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
	assert.Equal(t, "Slow down", errorBody(t, w))
}

func TestChatHandler_StreamingClientDisconnect(t *testing.T) {
	t.Parallel()

	openai := newFakeStreamingAdapter("Hel")
	openai.hold = true
	server := httptest.NewServer(newTestRouter(t, &llm.Registry{OpenAI: openai}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/api/chat",
		chatBody(t, domain.ProviderOpenAI, "gpt-4o", true, false))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, `data: {"content":"Hel"}`), line)

	cancel()

	select {
	case <-openai.cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("adapter context was not cancelled after client disconnect")
	}
}

func TestChatHandler_EveryProviderDispatches(t *testing.T) {
	t.Parallel()

	registry := &llm.Registry{OpenAI: newFakeStreamingAdapter(), Anthropic: &fakeAdapter{reply: "ok"}}
	registry.OpenAI.(*fakeStreamingAdapter).reply = "ok"
	router := newTestRouter(t, registry)

	for _, provider := range domain.Providers {
		w := postChat(router, chatBody(t, provider, "any-model", false, false))
		assert.Equal(t, http.StatusOK, w.Code, "provider %s", provider)
	}
}
