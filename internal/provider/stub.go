package provider

import (
	"context"
	"sync"
	"time"
)

// StubProvider is a deterministic provider for offline runs and tests.
// Responses are consumed in order; once exhausted Fallback is returned.
type StubProvider struct {
	mu        sync.Mutex
	Responses []Response
	Fallback  Response
	Latency   time.Duration
	Err       error
	calls     [][]Message
}

func NewStubProvider() *StubProvider {
	return &StubProvider{
		Fallback: Response{
			Content: "Task complete.",
			Usage:   Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		},
	}
}

func (m *StubProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, messages)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		resp := m.Fallback
		return &resp, nil
	}

	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return &resp, nil
}

// Calls returns the message lists received so far.
func (m *StubProvider) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Message, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *StubProvider) Name() string {
	return "stub"
}
