package domain

// Model describes one selectable model. Identity is the (Provider, Name) pair.
type Model struct {
	Provider    Provider `json:"provider"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
}

var availableModels = []Model{
	{Provider: ProviderOpenAI, Name: "gpt-4o", DisplayName: "GPT-4o"},
	{Provider: ProviderOpenAI, Name: "gpt-4o-mini", DisplayName: "GPT-4o Mini"},
	{Provider: ProviderOpenAI, Name: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo"},
	{Provider: ProviderAnthropic, Name: "claude-3-5-sonnet-20241022", DisplayName: "Claude 3.5 Sonnet"},
	{Provider: ProviderAnthropic, Name: "claude-3-5-haiku-20241022", DisplayName: "Claude 3.5 Haiku"},
}

// AvailableModels returns a copy of the static model catalog. The first entry is
// the default selection.
func AvailableModels() []Model {
	models := make([]Model, len(availableModels))
	copy(models, availableModels)
	return models
}

// FindModel looks up a catalog entry by identity.
func FindModel(provider Provider, name string) (Model, bool) {
	for _, m := range availableModels {
		if m.Provider == provider && m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// FindModelByName looks up a catalog entry by model name alone.
func FindModelByName(name string) (Model, bool) {
	for _, m := range availableModels {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}
