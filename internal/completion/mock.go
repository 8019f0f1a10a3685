package completion

import (
	"context"
	"sync"
)

// MockClient provides deterministic completions when no remote service is
// configured, and scripted responses in tests. With no script, every call
// returns a single canned choice that finishes on a stop token.
type MockClient struct {
	mu        sync.Mutex
	responses []Response
	err       error
	calls     []Request
}

func NewMockClient() *MockClient { return &MockClient{} }

// Script queues responses to return in order. Once the script is exhausted
// the canned default is returned again.
func (m *MockClient) Script(responses ...Response) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
	return m
}

// Fail makes every subsequent call return err.
func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of every request seen so far.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func (m *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return Response{}, m.err
	}
	if len(m.responses) > 0 {
		res := m.responses[0]
		m.responses = m.responses[1:]
		return res, nil
	}
	return Response{
		Choices: []Choice{{Text: " I am listening.", FinishReason: FinishStop}},
	}, nil
}
