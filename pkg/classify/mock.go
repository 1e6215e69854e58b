package classify

import (
	"context"
	"sync"
	"time"
)

const backendMock = "mock"

// Mock implements Classifier for tests and model-free demos.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked. When nil, answers
	// cycle through the element words so demos collect something.
	ClassifyFunc func(ctx context.Context, image []byte, prompt string) (string, error)

	// Delay is an artificial latency applied before answering.
	Delay time.Duration

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one Classify invocation.
type MockCall struct {
	Prompt     string
	ImageBytes int
	Time       time.Time
}

var mockAnswers = []string{"wood", "fire", "land", "metal", "water"}

// NewMock creates a mock backend with cycling element answers.
func NewMock() *Mock {
	return &Mock{}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		ClassifyFunc: func(context.Context, []byte, string) (string, error) {
			return "", err
		},
	}
}

// Name identifies the backend.
func (m *Mock) Name() string { return backendMock }

// Classify records the call and answers via ClassifyFunc or the cycling
// default.
func (m *Mock) Classify(ctx context.Context, image []byte, prompt string) (string, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, MockCall{
		Prompt:     prompt,
		ImageBytes: len(image),
		Time:       time.Now(),
	})
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, image, prompt)
	}
	return mockAnswers[n%len(mockAnswers)], nil
}

// Calls returns all recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of Classify invocations.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent invocation, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
