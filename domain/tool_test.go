package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tools []Tool
		want  bool
	}{
		{name: "no tools", tools: nil, want: false},
		{name: "web search enabled", tools: []Tool{{Name: ToolWebSearch, Enabled: true}}, want: true},
		{name: "web search disabled", tools: []Tool{{Name: ToolWebSearch, Enabled: false}}, want: false},
		{name: "other tool enabled", tools: []Tool{{Name: ToolFunctionCalling, Enabled: true}}, want: false},
		{
			name:  "mixed",
			tools: []Tool{{Name: ToolFunctionCalling, Enabled: true}, {Name: ToolWebSearch, Enabled: true}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, WebSearchEnabled(tt.tools))
		})
	}
}

func TestSetToolEnabled(t *testing.T) {
	t.Parallel()

	tools := AvailableTools()
	updated, err := SetToolEnabled(tools, ToolWebSearch, true)
	require.NoError(t, err)

	assert.True(t, WebSearchEnabled(updated))
	assert.False(t, WebSearchEnabled(tools), "original slice must not change")
	assert.Len(t, EnabledTools(updated), 1)

	_, err = SetToolEnabled(tools, "teleport", true)
	assert.ErrorContains(t, err, "unknown tool")
}

func TestDisableUnsupportedTools(t *testing.T) {
	t.Parallel()

	tools, err := SetToolEnabled(AvailableTools(), ToolWebSearch, true)
	require.NoError(t, err)
	tools, err = SetToolEnabled(tools, ToolFunctionCalling, true)
	require.NoError(t, err)

	forOpenAI := DisableUnsupportedTools(tools, ProviderOpenAI)
	assert.True(t, WebSearchEnabled(forOpenAI))

	forAnthropic := DisableUnsupportedTools(tools, ProviderAnthropic)
	assert.False(t, WebSearchEnabled(forAnthropic))
	assert.Len(t, EnabledTools(forAnthropic), 1)
	assert.Equal(t, ToolFunctionCalling, EnabledTools(forAnthropic)[0].Name)
}

func TestAvailableTools_StartDisabled(t *testing.T) {
	t.Parallel()

	for _, tool := range AvailableTools() {
		assert.False(t, tool.Enabled, tool.Name)
	}
}
