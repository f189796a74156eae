package llm

import (
	"chatrelay/common"
	"chatrelay/domain"
	"chatrelay/secret_manager"
	"errors"

	"github.com/rs/zerolog/log"
)

// Registry holds at most one adapter per provider. A nil entry means the
// provider's credential was absent at startup.
type Registry struct {
	OpenAI    StreamingAdapter
	Anthropic Adapter
}

// NewRegistry resolves credentials once and builds every adapter it can.
func NewRegistry(config common.RelayConfig, secrets secret_manager.SecretManager) *Registry {
	registry := &Registry{}

	if key := lookupKey(secrets, secret_manager.OpenAIAPIKeySecretName); key != "" {
		adapter, err := NewOpenAIAdapter(key, config)
		if err == nil {
			registry.OpenAI = adapter
		}
	}
	if key := lookupKey(secrets, secret_manager.AnthropicAPIKeySecretName); key != "" {
		adapter, err := NewAnthropicAdapter(key, config)
		if err == nil {
			registry.Anthropic = adapter
		}
	}

	return registry
}

func lookupKey(secrets secret_manager.SecretManager, name string) string {
	if secrets == nil {
		return ""
	}
	key, err := secrets.GetSecret(name)
	if err != nil {
		if !errors.Is(err, secret_manager.ErrSecretNotFound) {
			log.Warn().Err(err).Str("secret", name).Msg("Failed to look up provider credential")
		}
		return ""
	}
	return key
}

// Resolve returns the adapter for provider, a *ConfigurationError when its
// credential is missing, or domain.ErrUnsupportedProvider.
func (r *Registry) Resolve(provider domain.Provider) (Adapter, error) {
	switch provider {
	case domain.ProviderOpenAI:
		if r.OpenAI == nil {
			return nil, ErrOpenAIKeyMissing
		}
		return r.OpenAI, nil
	case domain.ProviderAnthropic:
		if r.Anthropic == nil {
			return nil, ErrAnthropicKeyMissing
		}
		return r.Anthropic, nil
	default:
		return nil, domain.ErrUnsupportedProvider
	}
}

// Configured reports whether provider has an adapter.
func (r *Registry) Configured(provider domain.Provider) bool {
	_, err := r.Resolve(provider)
	return err == nil
}
