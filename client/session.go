package client

import (
	"chatrelay/domain"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrSendInFlight = errors.New("a reply is still being received")
	ErrEmptyInput   = errors.New("message is empty")
)

// Sender is the part of Client a Session needs.
type Sender interface {
	Send(ctx context.Context, req domain.ChatRequest, onUpdate func(Update)) domain.Message
}

// Session owns one transcript together with the selected model and tools. At
// most one Submit runs at a time; a second one is rejected, not queued.
type Session struct {
	sender Sender

	mu         sync.Mutex
	messages   []domain.Message
	model      domain.Model
	tools      []domain.Tool
	inFlight   bool
	generation uint64
}

// NewSession starts with an empty transcript, the first catalog model and
// every tool disabled.
func NewSession(sender Sender) *Session {
	return &Session{
		sender: sender,
		model:  domain.AvailableModels()[0],
		tools:  domain.AvailableTools(),
	}
}

// Submit appends the user message, sends the whole transcript and appends
// the sealed reply. The reply is returned even when it carries an error text.
// A reply that arrives after Clear is returned but not recorded.
func (s *Session) Submit(ctx context.Context, input string, onUpdate func(Update)) (domain.Message, error) {
	content := strings.TrimSpace(input)
	if content == "" {
		return domain.Message{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return domain.Message{}, ErrSendInFlight
	}
	s.inFlight = true
	s.messages = append(s.messages, domain.NewMessage(domain.RoleUser, content))
	req := domain.ChatRequest{
		Messages: append([]domain.Message(nil), s.messages...),
		Model:    s.model,
		Tools:    domain.EnabledTools(s.tools),
	}
	generation := s.generation
	s.mu.Unlock()

	reply := s.sender.Send(ctx, req, onUpdate)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.generation == generation {
		s.messages = append(s.messages, reply)
	}
	return reply, nil
}

// Clear empties the transcript. The model and tool selection are kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.generation++
}

func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

func (s *Session) Model() domain.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *Session) Tools() []domain.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Tool(nil), s.tools...)
}

// Busy reports whether a Submit is waiting on its reply.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// SelectModel switches to a catalog model. Leaving openai switches web search
// off.
func (s *Session) SelectModel(provider domain.Provider, name string) error {
	model, ok := domain.FindModel(provider, name)
	if !ok {
		return fmt.Errorf("unknown model %s/%s", provider, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.tools = domain.DisableUnsupportedTools(s.tools, model.Provider)
	return nil
}

func (s *Session) SetToolEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tools, err := domain.SetToolEnabled(s.tools, name, enabled)
	if err != nil {
		return err
	}
	s.tools = tools
	return nil
}
