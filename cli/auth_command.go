package main

import (
	"context"
	"errors"
	"fmt"

	"chatrelay/secret_manager"

	"github.com/erikgeiser/promptkit/selection"
	"github.com/erikgeiser/promptkit/textinput"
	"github.com/urfave/cli/v3"
)

func NewAuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Store LLM provider API keys in the OS keyring",
		Description: "Keys stored here are used by `chatrelay serve` when CHATRELAY_SECRET_SOURCE " +
			"is keyring or env,keyring.",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return handleAuthCommand(secret_manager.KeyringSecretManager{})
		},
	}
}

func handleAuthCommand(secrets secret_manager.SecretManager) error {
	providerSelection := selection.New("Select your LLM API provider", []string{"OpenAI", "Anthropic"})
	provider, err := providerSelection.RunPrompt()
	if err != nil {
		return fmt.Errorf("provider selection failed: %w", err)
	}

	switch provider {
	case "OpenAI":
		return handleManualAPIKeyAuth(secrets, "OpenAI", secret_manager.OpenAIAPIKeySecretName)
	case "Anthropic":
		return handleManualAPIKeyAuth(secrets, "Anthropic", secret_manager.AnthropicAPIKeySecretName)
	default:
		return fmt.Errorf("unknown provider: %s", provider)
	}
}

func handleManualAPIKeyAuth(secrets secret_manager.SecretManager, providerName, secretName string) error {
	existingKey, err := secrets.GetSecret(secretName)
	if err != nil && !errors.Is(err, secret_manager.ErrSecretNotFound) {
		return fmt.Errorf("error checking existing API key: %w", err)
	}

	if existingKey != "" {
		overwriteSelection := selection.New(
			fmt.Sprintf("An existing %s API key was found. What would you like to do?", providerName),
			[]string{"Keep existing key", "Overwrite with new key", "Remove key"},
		)
		choice, err := overwriteSelection.RunPrompt()
		if err != nil {
			return fmt.Errorf("selection failed: %w", err)
		}
		switch choice {
		case "Keep existing key":
			fmt.Printf("✔ Keeping existing %s API key.\n", providerName)
			return nil
		case "Remove key":
			if err := secrets.DeleteSecret(secretName); err != nil {
				return err
			}
			fmt.Printf("✔ %s API key removed.\n", providerName)
			return nil
		}
	}

	apiKeyInput := textinput.New(fmt.Sprintf("Enter your %s API Key: ", providerName))
	apiKeyInput.Hidden = true

	apiKey, err := apiKeyInput.RunPrompt()
	if err != nil {
		return fmt.Errorf("failed to get %s API Key: %w", providerName, err)
	}

	if apiKey == "" {
		return fmt.Errorf("%s API Key not provided", providerName)
	}

	if err := secrets.SetSecret(secretName, apiKey); err != nil {
		return err
	}

	fmt.Printf("✔ %s API Key saved.\n", providerName)
	return nil
}
