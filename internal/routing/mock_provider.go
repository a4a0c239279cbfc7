package routing

import (
	"context"
	"sync"

	"mercator-hq/ganymede/pkg/providers"
)

// streamScript is one scripted StreamCompletion outcome: either an error
// returned before the channel opens, or a sequence of chunks.
type streamScript struct {
	err    error
	chunks []*providers.StreamChunk
}

// MockProvider is a scriptable Provider implementation for router, fallback
// and gateway tests. Responses and streams are consumed in FIFO order; an
// exhausted script repeats its last completion so steady-state tests do not
// need to enqueue per call.
type MockProvider struct {
	mu       sync.Mutex
	name     string
	provType string
	models   []string
	ready    bool

	completions []func() (*providers.CompletionResponse, error)
	streams     []streamScript

	completionCalls int
	streamCalls     int
	cancelCalls     int
	lastRequest     *providers.CompletionRequest
}

// NewMockProvider creates a ready mock provider serving one model named
// after the provider ("<name>-model").
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:     name,
		provType: "mock",
		models:   []string{name + "-model"},
		ready:    true,
	}
}

// SetReady toggles readiness.
func (m *MockProvider) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// SetModels replaces the served model list.
func (m *MockProvider) SetModels(models ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = models
}

// SetType overrides the provider type.
func (m *MockProvider) SetType(provType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provType = provType
}

// EnqueueResponse scripts one successful completion.
func (m *MockProvider) EnqueueResponse(resp *providers.CompletionResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, func() (*providers.CompletionResponse, error) {
		return resp, nil
	})
}

// EnqueueError scripts one failed completion.
func (m *MockProvider) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, func() (*providers.CompletionResponse, error) {
		return nil, err
	})
}

// EnqueueStream scripts one stream delivering the given chunks and closing.
func (m *MockProvider) EnqueueStream(chunks ...*providers.StreamChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, streamScript{chunks: chunks})
}

// EnqueueStreamError scripts one stream that fails before opening.
func (m *MockProvider) EnqueueStreamError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, streamScript{err: err})
}

// CompletionCalls returns how many times SendCompletion ran.
func (m *MockProvider) CompletionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completionCalls
}

// StreamCalls returns how many times StreamCompletion ran.
func (m *MockProvider) StreamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCalls
}

// CancelCalls returns how many times Cancel ran.
func (m *MockProvider) CancelCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelCalls
}

// LastRequest returns the most recent request seen by either call path.
func (m *MockProvider) LastRequest() *providers.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// SendCompletion pops the next scripted completion. With nothing scripted
// it returns a canned "mock response".
func (m *MockProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	m.mu.Lock()
	m.completionCalls++
	m.lastRequest = req

	var next func() (*providers.CompletionResponse, error)
	if len(m.completions) > 0 {
		next = m.completions[0]
		if len(m.completions) > 1 {
			m.completions = m.completions[1:]
		}
	}
	m.mu.Unlock()

	if next != nil {
		return next()
	}
	return &providers.CompletionResponse{
		ID:           "mock_1",
		Model:        m.firstModel(),
		Content:      "mock response",
		FinishReason: providers.FinishReasonStop,
		Usage:        providers.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

// StreamCompletion pops the next scripted stream. With nothing scripted it
// delivers "mock response" as one delta plus a terminal chunk.
func (m *MockProvider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	m.mu.Lock()
	m.streamCalls++
	m.lastRequest = req

	script := streamScript{chunks: []*providers.StreamChunk{
		{Delta: "mock response"},
		{Done: true, FinishReason: providers.FinishReasonStop},
	}}
	if len(m.streams) > 0 {
		script = m.streams[0]
		m.streams = m.streams[1:]
	}
	m.mu.Unlock()

	if script.err != nil {
		return nil, script.err
	}

	chunks := make(chan *providers.StreamChunk, len(script.chunks))
	go func() {
		defer close(chunks)
		for _, chunk := range script.chunks {
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return chunks, nil
}

// CountTokens estimates tokens with the shared heuristic.
func (m *MockProvider) CountTokens(messages []providers.Message) int {
	return providers.EstimateTokens(messages)
}

// GetModels returns the served model ids.
func (m *MockProvider) GetModels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	models := make([]string, len(m.models))
	copy(models, m.models)
	return models
}

// IsReady reports scripted readiness.
func (m *MockProvider) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// GetName returns the provider name.
func (m *MockProvider) GetName() string {
	return m.name
}

// GetType returns the provider type.
func (m *MockProvider) GetType() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provType
}

// Cancel records the call.
func (m *MockProvider) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCalls++
}

// Close is a no-op.
func (m *MockProvider) Close() error {
	return nil
}

func (m *MockProvider) firstModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.models) > 0 {
		return m.models[0]
	}
	return "mock-model"
}
