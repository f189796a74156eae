package domain

import "fmt"

const (
	ToolWebSearch       = "web_search"
	ToolFunctionCalling = "function_calling"
)

// Tool is a user-toggleable capability. Only Enabled ever changes; the set of
// tools is fixed.
type Tool struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

var availableTools = []Tool{
	{
		Name:        ToolWebSearch,
		DisplayName: "Web Search",
		Description: "Search the web for current information",
	},
	{
		Name:        ToolFunctionCalling,
		DisplayName: "Function Calling",
		Description: "Use structured function calls",
	},
}

// AvailableTools returns a fresh copy of the tool catalog, all disabled.
func AvailableTools() []Tool {
	tools := make([]Tool, len(availableTools))
	copy(tools, availableTools)
	return tools
}

// SetToolEnabled returns a copy of tools with the named tool toggled.
func SetToolEnabled(tools []Tool, name string, enabled bool) ([]Tool, error) {
	result := make([]Tool, len(tools))
	copy(result, tools)
	for i := range result {
		if result[i].Name == name {
			result[i].Enabled = enabled
			return result, nil
		}
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

// EnabledTools filters tools down to the enabled ones.
func EnabledTools(tools []Tool) []Tool {
	result := make([]Tool, 0, len(tools))
	for _, tool := range tools {
		if tool.Enabled {
			result = append(result, tool)
		}
	}
	return result
}

// WebSearchEnabled is true iff a tool named web_search is present and enabled.
func WebSearchEnabled(tools []Tool) bool {
	for _, tool := range tools {
		if tool.Name == ToolWebSearch && tool.Enabled {
			return true
		}
	}
	return false
}

// DisableUnsupportedTools switches off tools the provider cannot use. Web search
// is an OpenAI-only capability.
func DisableUnsupportedTools(tools []Tool, provider Provider) []Tool {
	result := make([]Tool, len(tools))
	copy(result, tools)
	if provider == ProviderOpenAI {
		return result
	}
	for i := range result {
		if result[i].Name == ToolWebSearch {
			result[i].Enabled = false
		}
	}
	return result
}
