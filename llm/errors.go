package llm

import (
	"bytes"
	"chatrelay/common"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
	"github.com/tidwall/gjson"
)

// ConfigurationError means the adapter cannot run at all, eg a missing
// credential. It is raised before any vendor contact.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

var (
	ErrOpenAIKeyMissing    = &ConfigurationError{Message: "OpenAI API key not configured"}
	ErrAnthropicKeyMissing = &ConfigurationError{Message: "Anthropic API key not configured"}
)

type ErrorKind string

const (
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindRateLimit ErrorKind = "rate_limit"
	ErrorKindServer    ErrorKind = "server"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindUnknown   ErrorKind = "unknown"
)

// ProviderError is a classified vendor failure. Message is always
// human-readable, never a raw vendor payload.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status the relay answers with for this failure.
func (e *ProviderError) HTTPStatus() int {
	switch e.Kind {
	case ErrorKindAuth:
		return http.StatusUnauthorized
	case ErrorKindRateLimit:
		return http.StatusTooManyRequests
	case ErrorKindServer:
		return http.StatusBadGateway
	case ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

const (
	defaultOpenAIErrorMessage    = "OpenAI API error"
	defaultAnthropicErrorMessage = "Anthropic API error"
	streamErrorPrefix            = "received error while streaming: "
)

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorKindAuth
	case status == http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case status >= 500:
		return ErrorKindServer
	default:
		return ErrorKindUnknown
	}
}

// messageFromBody probes a vendor error body for a message: the structured
// error.message first, then a top-level message.
func messageFromBody(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Type == gjson.String && msg.String() != "" {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.String() != "" {
		return msg.String()
	}
	return ""
}

// responseBody strips the status line and headers from a dumped response.
func responseBody(dump []byte) []byte {
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if parts := bytes.SplitN(dump, sep, 2); len(parts) == 2 {
			return bytes.TrimSpace(parts[1])
		}
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// contextError classifies deadline and idle expiry as timeouts and passes
// caller cancellation through unclassified. It returns nil for anything else.
func contextError(ctx context.Context, provider string, err error) error {
	if common.IsIdleTimeout(ctx) {
		return &ProviderError{
			Provider: provider,
			Kind:     ErrorKindTimeout,
			Message:  fmt.Sprintf("%s stream idle timeout", provider),
			Err:      common.ErrIdleTimeout,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ProviderError{
			Provider: provider,
			Kind:     ErrorKindTimeout,
			Message:  fmt.Sprintf("%s request timed out", provider),
			Err:      err,
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// classifyOpenAIError maps any OpenAI SDK failure to a *ProviderError.
func classifyOpenAIError(ctx context.Context, err error) error {
	if ctxErr := contextError(ctx, "OpenAI", err); ctxErr != nil {
		return ctxErr
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		var body []byte
		if apiErr.Response != nil {
			body = responseBody(apiErr.DumpResponse(true))
		}
		return &ProviderError{
			Provider:   "OpenAI",
			Kind:       kindForStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Message:    firstNonEmpty(messageFromBody(body), apiErr.Message, defaultOpenAIErrorMessage),
			RetryAfter: retryAfter(apiErr.Response),
			Err:        err,
		}
	}

	// mid-stream error frames surface as plain errors carrying the JSON payload
	if payload, ok := strings.CutPrefix(err.Error(), streamErrorPrefix); ok {
		message := firstNonEmpty(gjson.Get(payload, "message").String(), payload, defaultOpenAIErrorMessage)
		return &ProviderError{Provider: "OpenAI", Kind: ErrorKindUnknown, Message: message, Err: err}
	}

	return &ProviderError{
		Provider: "OpenAI",
		Kind:     ErrorKindUnknown,
		Message:  firstNonEmpty(err.Error(), defaultOpenAIErrorMessage),
		Err:      err,
	}
}

// classifyAnthropicError maps any Anthropic SDK failure to a *ProviderError.
func classifyAnthropicError(ctx context.Context, err error) error {
	if ctxErr := contextError(ctx, "Anthropic", err); ctxErr != nil {
		return ctxErr
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   "Anthropic",
			Kind:       kindForStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Message:    firstNonEmpty(messageFromBody([]byte(apiErr.RawJSON())), defaultAnthropicErrorMessage),
			RetryAfter: retryAfter(apiErr.Response),
			Err:        err,
		}
	}

	return &ProviderError{
		Provider: "Anthropic",
		Kind:     ErrorKindUnknown,
		Message:  firstNonEmpty(err.Error(), defaultAnthropicErrorMessage),
		Err:      err,
	}
}
