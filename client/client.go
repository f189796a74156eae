package client

import (
	"bufio"
	"bytes"
	"chatrelay/common"
	"chatrelay/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultIdleTimeout = 60 * time.Second
	// DefaultResponseTimeout bounds the wait for response headers and for a
	// whole JSON reply. It sits above the relay's own request timeout, since
	// the relay writes nothing until the provider answers.
	DefaultResponseTimeout = common.DefaultRequestTimeout + 30*time.Second

	chatPath         = "/api/chat"
	dataPrefix       = "data:"
	maxLineSize      = 1024 * 1024
	maxErrorBodySize = 64 * 1024
)

var (
	ErrResponseTimeout = errors.New("no response from relay within response timeout")
	errStreamEnded     = errors.New("stream ended before completion")
)

// Update is a snapshot of an exchange in progress. Message is zero until the
// first delta or the full reply arrives.
type Update struct {
	Message domain.Message
	Loading bool
	Done    bool
}

// Client talks to the relay's chat endpoint. IdleTimeout applies between
// stream lines once an event stream has started; ResponseTimeout applies
// before that.
type Client struct {
	BaseURL         string
	HTTPClient      *http.Client
	IdleTimeout     time.Duration
	ResponseTimeout time.Duration
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		HTTPClient:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		IdleTimeout:     DefaultIdleTimeout,
		ResponseTimeout: DefaultResponseTimeout,
	}
}

// envelope is the union of the relay's JSON reply and its stream frames.
type envelope struct {
	Message *domain.Message `json:"message"`
	Content string          `json:"content"`
	Done    bool            `json:"done"`
	Error   string          `json:"error"`
}

// Send performs one exchange and returns the sealed assistant message. It
// never fails: anything that goes wrong is sealed into the message as
// "Error: <message>". onUpdate, when set, sees every intermediate state on the
// calling goroutine.
func (c *Client) Send(ctx context.Context, req domain.ChatRequest, onUpdate func(Update)) domain.Message {
	acc := newAccumulator(onUpdate)
	acc.emit(false)

	req.Stream = req.Model.Provider.SupportsStreaming()
	if err := c.exchange(ctx, req, acc); err != nil {
		log.Debug().Err(err).Str("provider", string(req.Model.Provider)).Msg("Chat exchange failed")
		acc.fail(err)
	}
	return acc.seal()
}

func (c *Client) exchange(ctx context.Context, req domain.ChatRequest, acc *accumulator) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	responseTimer := time.AfterFunc(c.responseTimeout(), func() { cancel(ErrResponseTimeout) })
	defer responseTimer.Stop()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if isEventStream(resp.Header.Get("Content-Type")) {
		responseTimer.Stop()
		watchdog := common.WatchIdle(cancel, c.idleTimeout())
		defer watchdog.Stop()
		return readStream(ctx, resp.Body, watchdog, acc)
	}
	return readJSON(ctx, resp.Body, acc)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) idleTimeout() time.Duration {
	if c.IdleTimeout > 0 {
		return c.IdleTimeout
	}
	return DefaultIdleTimeout
}

func (c *Client) responseTimeout() time.Duration {
	if c.ResponseTimeout > 0 {
		return c.ResponseTimeout
	}
	return DefaultResponseTimeout
}

// readStream folds data frames into the accumulator until done or error.
// Lines that do not parse are skipped.
func readStream(ctx context.Context, body io.Reader, watchdog *common.IdleWatchdog, acc *accumulator) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		watchdog.Reset()
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		var env envelope
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			log.Debug().Err(err).Str("line", line).Msg("Skipping malformed stream line")
			continue
		}

		switch {
		case env.Error != "":
			return errors.New(env.Error)
		case env.Done:
			return nil
		case env.Content != "":
			acc.append(env.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return transportError(ctx, err)
	}
	return errStreamEnded
}

func readJSON(ctx context.Context, body io.Reader, acc *accumulator) error {
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		if ctx.Err() != nil {
			return transportError(ctx, err)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Error != "" {
		return errors.New(env.Error)
	}
	if env.Message == nil {
		return errors.New("response contained no message")
	}
	acc.install(*env.Message)
	return nil
}

// statusError prefers the relay's own {error} body over the bare status.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if result := gjson.GetBytes(body, "error"); result.Type == gjson.String && strings.TrimSpace(result.Str) != "" {
		return errors.New(result.Str)
	}
	return fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
}

// transportError reports which timeout, if any, cut the exchange short.
func transportError(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, common.ErrIdleTimeout) || errors.Is(cause, ErrResponseTimeout) {
		return cause
	}
	return err
}

func isEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.HasPrefix(contentType, "text/event-stream")
	}
	return mediaType == "text/event-stream"
}
