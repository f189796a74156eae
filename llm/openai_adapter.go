package llm

import (
	"chatrelay/common"
	"chatrelay/domain"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIAdapter talks to OpenAI: chat completions for single replies and the
// responses API for streamed replies.
type OpenAIAdapter struct {
	APIKey         string
	BaseURL        string
	Config         common.OpenAIConfig
	RequestTimeout time.Duration
	IdleTimeout    time.Duration
	HTTPClient     *http.Client
}

var _ StreamingAdapter = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter fails closed when no key is available.
func NewOpenAIAdapter(apiKey string, config common.RelayConfig) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, ErrOpenAIKeyMissing
	}
	return &OpenAIAdapter{
		APIKey:         apiKey,
		BaseURL:        config.OpenAI.BaseURL,
		Config:         config.OpenAI,
		RequestTimeout: config.Timeouts.Request,
		IdleTimeout:    config.Timeouts.Idle,
	}, nil
}

func (a *OpenAIAdapter) client() (openai.Client, error) {
	if a.APIKey == "" {
		return openai.Client{}, ErrOpenAIKeyMissing
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
	return openai.NewClient(opts...), nil
}

func (a *OpenAIAdapter) requestTimeout() time.Duration {
	if a.RequestTimeout > 0 {
		return a.RequestTimeout
	}
	return common.DefaultRequestTimeout
}

func (a *OpenAIAdapter) idleTimeout() time.Duration {
	if a.IdleTimeout > 0 {
		return a.IdleTimeout
	}
	return common.DefaultIdleTimeout
}

// Complete issues one chat completions call and returns the first choice.
// With web search enabled it goes through the responses API instead, the same
// tool the streaming path attaches.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (domain.Message, error) {
	client, err := a.client()
	if err != nil {
		return domain.Message{}, err
	}

	ctx, span := llmTracer.Start(ctx, "OpenAIAdapter.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", string(domain.ProviderOpenAI)),
		attribute.String("llm.model", req.Model.Name),
		attribute.Bool("llm.web_search", domain.WebSearchEnabled(req.Tools)),
	)

	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout())
	defer cancel()

	var content string
	if domain.WebSearchEnabled(req.Tools) {
		response, err := client.Responses.New(ctx, a.responseParams(req))
		if err != nil {
			err = classifyOpenAIError(ctx, err)
			recordSpanError(span, err)
			return domain.Message{}, err
		}
		content = response.OutputText()
	} else {
		params := openai.ChatCompletionNewParams{
			Model:    req.Model.Name,
			Messages: chatCompletionMessages(req.Messages),
		}
		if a.Config.IsReasoningModel(req.Model.Name) {
			params.ReasoningEffort = shared.ReasoningEffortMedium
		} else {
			params.Temperature = openai.Float(a.Config.Temperature)
		}

		completion, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			err = classifyOpenAIError(ctx, err)
			recordSpanError(span, err)
			return domain.Message{}, err
		}
		if len(completion.Choices) > 0 {
			content = completion.Choices[0].Message.Content
		}
	}

	if content == "" {
		content = noResponseContent
	}
	return domain.NewMessage(domain.RoleAssistant, content), nil
}

// Stream runs the responses API as an event stream, forwarding each output
// text delta on eventChan and returning the accumulated message once the
// vendor signals completion.
func (a *OpenAIAdapter) Stream(ctx context.Context, req Request, eventChan chan<- Event) (domain.Message, error) {
	client, err := a.client()
	if err != nil {
		return domain.Message{}, err
	}

	ctx, span := llmTracer.Start(ctx, "OpenAIAdapter.Stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", string(domain.ProviderOpenAI)),
		attribute.String("llm.model", req.Model.Name),
		attribute.Bool("llm.web_search", domain.WebSearchEnabled(req.Tools)),
	)

	streamCtx, watchdog, stop := common.NewIdleWatchdog(ctx, a.idleTimeout())
	defer stop()

	stream := client.Responses.NewStreaming(streamCtx, a.responseParams(req))
	defer stream.Close()

	var content strings.Builder
	fail := func(err error) (domain.Message, error) {
		recordSpanError(span, err)
		return domain.Message{}, err
	}

	for stream.Next() {
		watchdog.Reset()
		data := stream.Current()

		switch event := data.AsAny().(type) {
		case responses.ResponseTextDeltaEvent:
			if event.Delta == "" {
				continue
			}
			content.WriteString(event.Delta)
			select {
			case eventChan <- Event{Type: EventTextDelta, Delta: event.Delta}:
			case <-streamCtx.Done():
				return fail(classifyOpenAIError(streamCtx, streamCtx.Err()))
			}

		case responses.ResponseCompletedEvent, responses.ResponseIncompleteEvent:
			return domain.NewMessage(domain.RoleAssistant, content.String()), nil

		case responses.ResponseErrorEvent:
			return fail(&ProviderError{
				Provider: "OpenAI",
				Kind:     kindForStreamCode(event.Code),
				Message:  firstNonEmpty(event.Message, defaultOpenAIErrorMessage),
			})

		case responses.ResponseFailedEvent:
			return fail(&ProviderError{
				Provider: "OpenAI",
				Kind:     kindForStreamCode(string(event.Response.Error.Code)),
				Message:  firstNonEmpty(event.Response.Error.Message, defaultOpenAIErrorMessage),
			})

		default:
			// lifecycle, reasoning and tool progress events carry nothing to relay
		}
	}

	if err := stream.Err(); err != nil {
		return fail(classifyOpenAIError(streamCtx, err))
	}
	if streamCtx.Err() != nil {
		return fail(classifyOpenAIError(streamCtx, streamCtx.Err()))
	}
	return fail(&ProviderError{
		Provider: "OpenAI",
		Kind:     ErrorKindUnknown,
		Message:  "stream ended before completion",
	})
}

func (a *OpenAIAdapter) responseParams(req Request) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responsesInput(req.Messages),
		},
		Model: req.Model.Name,
		Store: openai.Bool(false),
	}
	if a.Config.IsReasoningModel(req.Model.Name) {
		params.Reasoning = shared.ReasoningParam{Effort: shared.ReasoningEffortMedium}
	} else {
		params.Temperature = openai.Float(a.Config.Temperature)
	}
	if domain.WebSearchEnabled(req.Tools) {
		params.Tools = []responses.ToolUnionParam{
			{OfWebSearch: &responses.WebSearchToolParam{Type: responses.WebSearchToolTypeWebSearch}},
		}
	}
	return params
}

func kindForStreamCode(code string) ErrorKind {
	switch code {
	case "rate_limit_exceeded":
		return ErrorKindRateLimit
	case "server_error":
		return ErrorKindServer
	case "invalid_api_key", "unauthorized":
		return ErrorKindAuth
	default:
		return ErrorKindUnknown
	}
}

func chatCompletionMessages(messages []domain.Message) []openai.ChatCompletionMessageParamUnion {
	var result []openai.ChatCompletionMessageParamUnion
	for _, msg := range domain.ConversationMessages(messages) {
		switch msg.Role {
		case domain.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case domain.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		}
	}
	return result
}

func responsesInput(messages []domain.Message) responses.ResponseInputParam {
	var items responses.ResponseInputParam
	for _, msg := range domain.ConversationMessages(messages) {
		switch msg.Role {
		case domain.RoleUser:
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		case domain.RoleAssistant:
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
		}
	}
	return items
}
