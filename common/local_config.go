package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultOpenAITemperature  = 0.7
	DefaultAnthropicMaxTokens = 4000
	DefaultRequestTimeout     = 120 * time.Second
	DefaultIdleTimeout        = 60 * time.Second
)

// DefaultReasoningModels are model-name prefixes that take a reasoning effort
// hint instead of a temperature.
var DefaultReasoningModels = []string{"o1", "o3", "o4", "gpt-5"}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type OpenAIConfig struct {
	BaseURL         string   `koanf:"base_url"`
	Temperature     float64  `koanf:"temperature"`
	ReasoningModels []string `koanf:"reasoning_models"`
}

// IsReasoningModel reports whether the model name starts with one of the
// configured reasoning prefixes.
func (c OpenAIConfig) IsReasoningModel(model string) bool {
	for _, prefix := range c.ReasoningModels {
		if prefix != "" && strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

type AnthropicConfig struct {
	BaseURL   string `koanf:"base_url"`
	MaxTokens int64  `koanf:"max_tokens"`
}

type TimeoutsConfig struct {
	Request time.Duration `koanf:"request"`
	Idle    time.Duration `koanf:"idle"`
}

// RelayConfig is the process-wide configuration, resolved once at startup.
type RelayConfig struct {
	Server    ServerConfig    `koanf:"server"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
	Timeouts  TimeoutsConfig  `koanf:"timeouts"`
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Server: ServerConfig{
			Port: GetServerPort(),
		},
		OpenAI: OpenAIConfig{
			Temperature:     DefaultOpenAITemperature,
			ReasoningModels: append([]string(nil), DefaultReasoningModels...),
		},
		Anthropic: AnthropicConfig{
			MaxTokens: DefaultAnthropicMaxTokens,
		},
		Timeouts: TimeoutsConfig{
			Request: DefaultRequestTimeout,
			Idle:    DefaultIdleTimeout,
		},
	}
}

// Validate ensures the RelayConfig is usable
func (c RelayConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature must be between 0 and 2, got %v", c.OpenAI.Temperature)
	}
	if c.Anthropic.MaxTokens <= 0 {
		return fmt.Errorf("anthropic.max_tokens must be positive")
	}
	if c.Timeouts.Request <= 0 {
		return fmt.Errorf("timeouts.request must be positive")
	}
	if c.Timeouts.Idle <= 0 {
		return fmt.Errorf("timeouts.idle must be positive")
	}
	return nil
}

// LoadRelayConfig loads configuration from configPath over the defaults, then
// applies base URL overrides from the environment. An empty or missing path
// yields the defaults.
func LoadRelayConfig(configPath string) (RelayConfig, error) {
	config := DefaultRelayConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			parser := GetParserForExtension(configPath)
			if parser == nil {
				return RelayConfig{}, fmt.Errorf("unsupported config file extension: %s", configPath)
			}

			k := koanf.New(".")
			if err := k.Load(file.Provider(configPath), parser); err != nil {
				return RelayConfig{}, fmt.Errorf("error loading config: %w", err)
			}
			if err := k.Unmarshal("", &config); err != nil {
				return RelayConfig{}, fmt.Errorf("error unmarshaling config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return RelayConfig{}, fmt.Errorf("error reading config %s: %w", configPath, err)
		}
	}

	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.OpenAI.BaseURL = baseURL
	}
	if baseURL := os.Getenv("ANTHROPIC_BASE_URL"); baseURL != "" {
		config.Anthropic.BaseURL = baseURL
	}

	if err := config.Validate(); err != nil {
		return RelayConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// ResolveRelayConfig loads explicitPath when set, otherwise whatever
// DiscoverRelayConfig finds from workingDir. It returns the path it used,
// empty when running on defaults.
func ResolveRelayConfig(explicitPath, workingDir string) (RelayConfig, string, error) {
	path := explicitPath
	if path == "" {
		discovery := DiscoverRelayConfig(workingDir)
		if len(discovery.AllFound) > 1 {
			log.Warn().Strs("found", discovery.AllFound).Str("using", discovery.ChosenPath).Msg("Multiple config files found")
		}
		path = discovery.ChosenPath
	}
	config, err := LoadRelayConfig(path)
	return config, path, err
}
