package domain

import "fmt"

// Provider identifies the vendor behind a model. The set of providers is closed:
// every variant is listed in Providers and the relay dispatches on it with an
// exhaustive switch.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists every supported provider variant.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsStreaming reports whether replies from this provider can be relayed as
// an event stream. Only OpenAI streams today.
func (p Provider) SupportsStreaming() bool {
	return p == ProviderOpenAI
}

// DisplayName is the human label used in error messages, eg "OpenAI API key not
// configured".
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	default:
		return string(p)
	}
}

// ParseProvider converts a raw provider name into a Provider.
func ParseProvider(name string) (Provider, error) {
	p := Provider(name)
	if !p.Valid() {
		return "", fmt.Errorf("invalid provider: %s", name)
	}
	return p, nil
}
