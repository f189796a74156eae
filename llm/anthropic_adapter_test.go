package llm

import (
	"chatrelay/common"
	"chatrelay/domain"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnthropicAdapter(serverURL string) *AnthropicAdapter {
	config := common.DefaultRelayConfig()
	config.Anthropic.BaseURL = serverURL
	adapter, err := NewAnthropicAdapter("sk-ant-test", config)
	if err != nil {
		panic(err)
	}
	return adapter
}

func anthropicRequest() Request {
	model, _ := domain.FindModel(domain.ProviderAnthropic, "claude-3-5-haiku-20241022")
	req := testRequest(model.Name, false)
	req.Model = model
	return req
}

func TestAnthropicAdapter_Complete(t *testing.T) {
	t.Parallel()

	server, captured := capturingServer(t, http.StatusOK, nil, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-haiku-20241022",
		"content": [{"type": "text", "text": "Hi there"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 3}
	}`)
	adapter := newTestAnthropicAdapter(server.URL)

	msg, err := adapter.Complete(context.Background(), anthropicRequest())
	require.NoError(t, err)
	assert.Equal(t, "Hi there", msg.Content)
	assert.Equal(t, domain.RoleAssistant, msg.Role)

	body := *captured
	assert.Equal(t, "claude-3-5-haiku-20241022", body["model"])
	assert.Equal(t, float64(4000), body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 3, "system role must be dropped")
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
}

func TestAnthropicAdapter_Complete_IgnoresWebSearch(t *testing.T) {
	t.Parallel()

	server, captured := capturingServer(t, http.StatusOK, nil, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"content": [{"type": "text", "text": "No browsing here"}]
	}`)
	adapter := newTestAnthropicAdapter(server.URL)

	req := anthropicRequest()
	req.Tools, _ = domain.SetToolEnabled(domain.AvailableTools(), domain.ToolWebSearch, true)
	require.True(t, domain.WebSearchEnabled(req.Tools))

	msg, err := adapter.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "No browsing here", msg.Content)
	assert.NotContains(t, *captured, "tools")
}

func TestAnthropicAdapter_Complete_NonTextFirstBlock(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"tool use first": `{"id": "msg_01", "type": "message", "role": "assistant", "content": [
			{"type": "tool_use", "id": "toolu_1", "name": "lookup", "input": {}},
			{"type": "text", "text": "later text is ignored"}
		]}`,
		"thinking first": `{"id": "msg_01", "type": "message", "role": "assistant", "content": [
			{"type": "thinking", "thinking": "hmm", "signature": "sig"}
		]}`,
		"empty content": `{"id": "msg_01", "type": "message", "role": "assistant", "content": []}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			server, _ := capturingServer(t, http.StatusOK, nil, body)
			adapter := newTestAnthropicAdapter(server.URL)

			msg, err := adapter.Complete(context.Background(), anthropicRequest())
			require.NoError(t, err)
			assert.Equal(t, "No response", msg.Content)
		})
	}
}

func TestAnthropicAdapter_Complete_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		headers     map[string]string
		body        string
		wantKind    ErrorKind
		wantMessage string
	}{
		{
			name:        "auth",
			status:      http.StatusUnauthorized,
			body:        `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantKind:    ErrorKindAuth,
			wantMessage: "invalid x-api-key",
		},
		{
			name:        "rate limit",
			status:      http.StatusTooManyRequests,
			headers:     map[string]string{"Retry-After": "12"},
			body:        `{"type":"error","error":{"type":"rate_limit_error","message":"Number of request tokens has exceeded your per-minute rate limit"}}`,
			wantKind:    ErrorKindRateLimit,
			wantMessage: "Number of request tokens has exceeded your per-minute rate limit",
		},
		{
			name:        "overloaded",
			status:      529,
			body:        `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantKind:    ErrorKindServer,
			wantMessage: "Overloaded",
		},
		{
			name:        "generic message only",
			status:      http.StatusBadRequest,
			body:        `{"message":"model not found"}`,
			wantKind:    ErrorKindUnknown,
			wantMessage: "model not found",
		},
		{
			name:        "no message in body",
			status:      http.StatusBadGateway,
			body:        `{"type":"error"}`,
			wantKind:    ErrorKindServer,
			wantMessage: "Anthropic API error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, _ := capturingServer(t, tt.status, tt.headers, tt.body)
			adapter := newTestAnthropicAdapter(server.URL)

			_, err := adapter.Complete(context.Background(), anthropicRequest())
			var providerErr *ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.Equal(t, tt.wantKind, providerErr.Kind)
			assert.Equal(t, tt.wantMessage, providerErr.Message)
			assert.Equal(t, tt.status, providerErr.StatusCode)
		})
	}
}

func TestAnthropicAdapter_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := NewAnthropicAdapter("", common.DefaultRelayConfig())
	assert.Equal(t, ErrAnthropicKeyMissing, err)
	assert.Equal(t, "Anthropic API key not configured", err.Error())
}
