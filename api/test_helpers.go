package api

import (
	"chatrelay/domain"
	"chatrelay/llm"
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
)

// fakeAdapter answers Complete with a fixed reply or error and counts calls.
type fakeAdapter struct {
	reply string
	err   error
	calls atomic.Int32

	mu       sync.Mutex
	requests []llm.Request
}

func (f *fakeAdapter) Complete(ctx context.Context, req llm.Request) (domain.Message, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return domain.Message{}, f.err
	}
	return domain.NewMessage(domain.RoleAssistant, f.reply), nil
}

func (f *fakeAdapter) lastRequest() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// fakeStreamingAdapter emits deltas then finishes with streamErr. With hold
// set it blocks after the deltas until its context ends and records that.
type fakeStreamingAdapter struct {
	fakeAdapter
	deltas    []string
	streamErr error
	hold      bool
	cancelled chan struct{}
}

func newFakeStreamingAdapter(deltas ...string) *fakeStreamingAdapter {
	return &fakeStreamingAdapter{deltas: deltas, cancelled: make(chan struct{})}
}

func (f *fakeStreamingAdapter) Stream(ctx context.Context, req llm.Request, eventChan chan<- llm.Event) (domain.Message, error) {
	f.calls.Add(1)
	content := ""
	for _, delta := range f.deltas {
		select {
		case eventChan <- llm.Event{Type: llm.EventTextDelta, Delta: delta}:
			content += delta
		case <-ctx.Done():
			close(f.cancelled)
			return domain.Message{}, ctx.Err()
		}
	}
	if f.hold {
		<-ctx.Done()
		close(f.cancelled)
		return domain.Message{}, ctx.Err()
	}
	if f.streamErr != nil {
		return domain.Message{}, f.streamErr
	}
	return domain.NewMessage(domain.RoleAssistant, content), nil
}

func newTestRouter(t *testing.T, registry *llm.Registry) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := Controller{registry: registry}
	return DefineRoutes(ctrl, BuildDefaultAllowedOrigins(8866))
}
