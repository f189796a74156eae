package llm

import (
	"chatrelay/domain"
	"context"
)

// Request is what the relay hands an adapter: the conversation so far, the
// model to run and the user's tool toggles.
type Request struct {
	Messages []domain.Message
	Model    domain.Model
	Tools    []domain.Tool
}

type EventType string

const (
	EventTextDelta EventType = "text_delta"
)

// Event is one incremental piece of a streamed reply.
type Event struct {
	Type  EventType
	Delta string
}

// Adapter turns a Request into a single assistant reply.
type Adapter interface {
	Complete(ctx context.Context, req Request) (domain.Message, error)
}

// StreamingAdapter additionally streams the reply as Events. Implementations
// MUST NOT close eventChan; the caller owns the channel lifecycle. The returned
// message is the sealed accumulation of every delta sent.
type StreamingAdapter interface {
	Adapter
	Stream(ctx context.Context, req Request, eventChan chan<- Event) (domain.Message, error)
}

const noResponseContent = "No response"
