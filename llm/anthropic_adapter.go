package llm

import (
	"chatrelay/common"
	"chatrelay/domain"
	"context"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
)

// AnthropicAdapter returns whole replies from the messages API. It does not
// stream.
type AnthropicAdapter struct {
	APIKey         string
	BaseURL        string
	MaxTokens      int64
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

var _ Adapter = (*AnthropicAdapter)(nil)

func NewAnthropicAdapter(apiKey string, config common.RelayConfig) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, ErrAnthropicKeyMissing
	}
	return &AnthropicAdapter{
		APIKey:         apiKey,
		BaseURL:        config.Anthropic.BaseURL,
		MaxTokens:      config.Anthropic.MaxTokens,
		RequestTimeout: config.Timeouts.Request,
	}, nil
}

func (a *AnthropicAdapter) client() (anthropic.Client, error) {
	if a.APIKey == "" {
		return anthropic.Client{}, ErrAnthropicKeyMissing
	}
	opts := []option.RequestOption{
		option.WithAPIKey(a.APIKey),
		option.WithMaxRetries(0),
	}
	if a.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.BaseURL))
	}
	if a.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(a.HTTPClient))
	}
	return anthropic.NewClient(opts...), nil
}

func (a *AnthropicAdapter) maxTokens() int64 {
	if a.MaxTokens > 0 {
		return a.MaxTokens
	}
	return common.DefaultAnthropicMaxTokens
}

func (a *AnthropicAdapter) requestTimeout() time.Duration {
	if a.RequestTimeout > 0 {
		return a.RequestTimeout
	}
	return common.DefaultRequestTimeout
}

func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (domain.Message, error) {
	client, err := a.client()
	if err != nil {
		return domain.Message{}, err
	}

	ctx, span := llmTracer.Start(ctx, "AnthropicAdapter.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", string(domain.ProviderAnthropic)),
		attribute.String("llm.model", req.Model.Name),
	)

	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout())
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model.Name),
		MaxTokens: a.maxTokens(),
		Messages:  anthropicMessages(req.Messages),
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		err = classifyAnthropicError(ctx, err)
		recordSpanError(span, err)
		return domain.Message{}, err
	}

	return domain.NewMessage(domain.RoleAssistant, firstTextBlock(message.Content)), nil
}

// firstTextBlock looks only at the first block; anything other than text
// there yields the placeholder.
func firstTextBlock(blocks []anthropic.ContentBlockUnion) string {
	if len(blocks) == 0 {
		return noResponseContent
	}
	switch block := blocks[0].AsAny().(type) {
	case anthropic.TextBlock:
		if block.Text != "" {
			return block.Text
		}
	}
	return noResponseContent
}

func anthropicMessages(messages []domain.Message) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	for _, msg := range domain.ConversationMessages(messages) {
		switch msg.Role {
		case domain.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case domain.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result
}
