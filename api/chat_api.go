package api

import (
	"chatrelay/domain"
	"chatrelay/llm"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const streamBufferSize = 64

type ChatResponse struct {
	Message domain.Message `json:"message"`
}

// StreamEnvelope is the payload of each SSE frame. Exactly one field is set.
type StreamEnvelope struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

type streamResult struct {
	message domain.Message
	err     error
}

// ChatHandler relays one chat request to the model's provider, answering
// either with a single JSON message or, for streaming providers when asked, a
// text/event-stream of StreamEnvelope frames.
func (ctrl *Controller) ChatHandler(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.ErrorHandler(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		ctrl.ErrorHandler(c, http.StatusBadRequest, err)
		return
	}

	adapter, err := ctrl.registry.Resolve(req.Model.Provider)
	if err != nil {
		ctrl.adapterErrorHandler(c, err)
		return
	}

	llmReq := llm.Request{
		Messages: domain.ConversationMessages(req.Messages),
		Model:    req.Model,
		Tools:    req.Tools,
	}

	if streamingAdapter, ok := adapter.(llm.StreamingAdapter); ok && req.Stream {
		ctrl.streamChat(c, streamingAdapter, llmReq)
		return
	}

	message, err := adapter.Complete(c.Request.Context(), llmReq)
	if err != nil {
		ctrl.adapterErrorHandler(c, err)
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Message: message})
}

// streamChat runs the adapter in its own goroutine. Nothing is written until
// the first delta arrives, so a failure before that still gets a real status
// code. The request context is the adapter's context: a client disconnect
// tears the vendor stream down.
func (ctrl *Controller) streamChat(c *gin.Context, adapter llm.StreamingAdapter, req llm.Request) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	eventChan := make(chan llm.Event, streamBufferSize)
	resultChan := make(chan streamResult, 1)
	go func() {
		message, err := adapter.Stream(ctx, req, eventChan)
		close(eventChan)
		resultChan <- streamResult{message: message, err: err}
	}()

	var result streamResult
	first, ok := <-eventChan
	if !ok {
		result = <-resultChan
		if result.err != nil {
			if ctx.Err() != nil {
				log.Debug().Str("requestId", c.GetString(requestIdKey)).Msg("Client disconnected before first event")
				return
			}
			ctrl.adapterErrorHandler(c, result.err)
			return
		}
	}

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	writeFailed := false
	send := func(envelope StreamEnvelope) {
		if writeFailed {
			return
		}
		if err := writeStreamEvent(c, envelope); err != nil {
			writeFailed = true
			cancel()
		}
	}
	if ok {
		send(StreamEnvelope{Content: first.Delta})
		// drained to the end even after a failed write
		for evt := range eventChan {
			send(StreamEnvelope{Content: evt.Delta})
		}
		result = <-resultChan
	}

	if writeFailed || ctx.Err() != nil {
		log.Info().Str("requestId", c.GetString(requestIdKey)).Msg("Client disconnected mid-stream")
		return
	}

	if result.err != nil {
		log.Error().Err(result.err).Str("requestId", c.GetString(requestIdKey)).Msg("Provider stream failed")
		writeStreamEvent(c, StreamEnvelope{Error: result.err.Error()})
		return
	}
	log.Debug().
		Str("requestId", c.GetString(requestIdKey)).
		Str("messageId", result.message.Id).
		Int("length", len(result.message.Content)).
		Msg("Provider stream complete")
	writeStreamEvent(c, StreamEnvelope{Done: true})
}

// writeStreamEvent writes one "data: {json}" frame and flushes it.
func writeStreamEvent(c *gin.Context, envelope StreamEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	data := append([]byte(" "), payload...)
	if err := sse.Encode(c.Writer, sse.Event{Data: data}); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

// adapterErrorHandler maps the error taxonomy onto status codes. Vendor
// payloads never reach the client; only the extracted message does.
func (ctrl *Controller) adapterErrorHandler(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var configErr *llm.ConfigurationError
	var providerErr *llm.ProviderError

	switch {
	case errors.As(err, &validationErr):
		ctrl.ErrorHandler(c, http.StatusBadRequest, validationErr)
	case errors.As(err, &configErr):
		ctrl.ErrorHandler(c, http.StatusInternalServerError, configErr)
	case errors.As(err, &providerErr):
		if providerErr.Kind == llm.ErrorKindRateLimit && providerErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(providerErr.RetryAfter.Seconds())))
		}
		ctrl.ErrorHandler(c, providerErr.HTTPStatus(), providerErr)
	case errors.Is(err, context.Canceled):
		log.Debug().Str("requestId", c.GetString(requestIdKey)).Msg("Client went away before the reply was ready")
		c.Abort()
	default:
		ctrl.ErrorHandler(c, http.StatusInternalServerError, err)
	}
}
