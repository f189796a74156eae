package api

import (
	"chatrelay/domain"
	"chatrelay/llm"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, router http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	return w
}

func TestGetModelsHandler(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &llm.Registry{OpenAI: newFakeStreamingAdapter()})

	var resp struct {
		Models []ModelInfo `json:"models"`
	}
	getJSON(t, router, "/api/models", &resp)

	require.Len(t, resp.Models, len(domain.AvailableModels()))
	assert.Equal(t, "gpt-4o", resp.Models[0].Name)
	for _, model := range resp.Models {
		switch model.Provider {
		case domain.ProviderOpenAI:
			assert.True(t, model.Configured, model.Name)
			assert.True(t, model.Streaming, model.Name)
		case domain.ProviderAnthropic:
			assert.False(t, model.Configured, model.Name)
			assert.False(t, model.Streaming, model.Name)
		default:
			t.Fatalf("unexpected provider %q", model.Provider)
		}
	}
}

func TestGetToolsHandler(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &llm.Registry{})

	var resp struct {
		Tools []domain.Tool `json:"tools"`
	}
	getJSON(t, router, "/api/tools", &resp)

	assert.Equal(t, domain.AvailableTools(), resp.Tools)
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &llm.Registry{Anthropic: &fakeAdapter{}})

	var resp struct {
		Status    string          `json:"status"`
		Providers map[string]bool `json:"providers"`
	}
	getJSON(t, router, "/healthz", &resp)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]bool{"openai": false, "anthropic": true}, resp.Providers)
}
