package secret_manager

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	OpenAIAPIKeySecretName    = "OPENAI_API_KEY"
	AnthropicAPIKeySecretName = "ANTHROPIC_API_KEY"
)

const keyringService = "chatrelay"

// ErrSecretNotFound is wrapped by every manager when a secret is absent, so
// callers can tell "not configured" apart from a broken backend.
var ErrSecretNotFound = errors.New("secret not found")

type SecretManager interface {
	GetSecret(secretName string) (string, error)
	SetSecret(secretName string, secret string) error
	DeleteSecret(secretName string) error
	GetType() SecretManagerType
}

type SecretManagerType string

const (
	EnvSecretManagerType     SecretManagerType = "env"
	MockSecretManagerType    SecretManagerType = "mock"
	KeyringSecretManagerType SecretManagerType = "keyring"
	ChainedSecretManagerType SecretManagerType = "chained"
)

// EnvSecretManager reads secrets from environment variables of the same name.
type EnvSecretManager struct{}

func (e EnvSecretManager) SetSecret(secretName string, secret string) error {
	return fmt.Errorf("cannot set secrets in environment secret manager - secrets must be set as environment variables")
}

func (e EnvSecretManager) GetSecret(secretName string) (string, error) {
	secret := os.Getenv(secretName)
	if secret == "" {
		return "", fmt.Errorf("%w: %s not set in environment", ErrSecretNotFound, secretName)
	}
	return secret, nil
}

func (e EnvSecretManager) DeleteSecret(secretName string) error {
	return fmt.Errorf("cannot delete secrets in environment secret manager - secrets must be managed via environment variables")
}

func (e EnvSecretManager) GetType() SecretManagerType {
	return EnvSecretManagerType
}

type KeyringSecretManager struct{}

func (k KeyringSecretManager) SetSecret(secretName string, secret string) error {
	err := keyring.Set(keyringService, secretName, secret)
	if err != nil {
		return fmt.Errorf("error setting %s in keyring: %w", secretName, err)
	}
	return nil
}

func (k KeyringSecretManager) GetSecret(secretName string) (string, error) {
	secret, err := keyring.Get(keyringService, secretName)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s not in keyring", ErrSecretNotFound, secretName)
	}
	if err != nil {
		return "", fmt.Errorf("error retrieving %s from keyring: %w", secretName, err)
	}
	return secret, nil
}

func (k KeyringSecretManager) DeleteSecret(secretName string) error {
	err := keyring.Delete(keyringService, secretName)
	if err != nil {
		return fmt.Errorf("error deleting %s from keyring: %w", secretName, err)
	}
	return nil
}

func (k KeyringSecretManager) GetType() SecretManagerType {
	return KeyringSecretManagerType
}

// MockSecretManager holds secrets in memory. Unknown secrets are not found.
type MockSecretManager struct {
	secrets map[string]string
}

func NewMockSecretManager(secrets map[string]string) *MockSecretManager {
	m := &MockSecretManager{secrets: make(map[string]string, len(secrets))}
	for name, secret := range secrets {
		m.secrets[name] = secret
	}
	return m
}

func (m MockSecretManager) GetSecret(secretName string) (string, error) {
	if secret, ok := m.secrets[secretName]; ok {
		return secret, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, secretName)
}

func (m *MockSecretManager) SetSecret(secretName string, secret string) error {
	if m.secrets == nil {
		m.secrets = make(map[string]string)
	}
	m.secrets[secretName] = secret
	return nil
}

func (m *MockSecretManager) DeleteSecret(secretName string) error {
	if m.secrets != nil {
		delete(m.secrets, secretName)
	}
	return nil
}

func (m MockSecretManager) GetType() SecretManagerType {
	return MockSecretManagerType
}

// ChainedSecretManager tries each manager in order and returns the first
// secret found. Writes go to the first manager that accepts them.
type ChainedSecretManager struct {
	Managers []SecretManager
}

func (c ChainedSecretManager) GetSecret(secretName string) (string, error) {
	var errs []error
	for _, manager := range c.Managers {
		secret, err := manager.GetSecret(secretName)
		if err == nil {
			return secret, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, secretName)
	}
	return "", errors.Join(errs...)
}

func (c ChainedSecretManager) SetSecret(secretName string, secret string) error {
	var errs []error
	for _, manager := range c.Managers {
		err := manager.SetSecret(secretName, secret)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("no secret manager accepted %s: %w", secretName, errors.Join(errs...))
}

func (c ChainedSecretManager) DeleteSecret(secretName string) error {
	var errs []error
	for _, manager := range c.Managers {
		err := manager.DeleteSecret(secretName)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("no secret manager deleted %s: %w", secretName, errors.Join(errs...))
}

func (c ChainedSecretManager) GetType() SecretManagerType {
	return ChainedSecretManagerType
}

// GetSecretManager returns a SecretManager instance of the specified type
func GetSecretManager(smType SecretManagerType) SecretManager {
	switch smType {
	case KeyringSecretManagerType:
		return &KeyringSecretManager{}
	case EnvSecretManagerType:
		return &EnvSecretManager{}
	case MockSecretManagerType:
		return &MockSecretManager{}
	default:
		return &EnvSecretManager{}
	}
}

// ParseSecretSource builds a manager from a comma separated list of sources,
// eg "env,keyring". An empty source means env only.
func ParseSecretSource(source string) (SecretManager, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return &EnvSecretManager{}, nil
	}

	var managers []SecretManager
	for _, part := range strings.Split(source, ",") {
		smType := SecretManagerType(strings.TrimSpace(part))
		switch smType {
		case EnvSecretManagerType, KeyringSecretManagerType:
			managers = append(managers, GetSecretManager(smType))
		default:
			return nil, fmt.Errorf("unknown secret source: %q", part)
		}
	}
	if len(managers) == 1 {
		return managers[0], nil
	}
	return ChainedSecretManager{Managers: managers}, nil
}

// FromEnvironment returns the manager selected by CHATRELAY_SECRET_SOURCE.
func FromEnvironment() (SecretManager, error) {
	return ParseSecretSource(os.Getenv("CHATRELAY_SECRET_SOURCE"))
}
