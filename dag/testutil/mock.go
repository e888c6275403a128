package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/dagflow/dag"
)

// MockFunc is a task function that records its calls and returns a preset
// value or delegates to a custom function.
type MockFunc struct {
	output any
	err    error
	fn     dag.Func

	mu    sync.Mutex
	calls []dag.Args
}

// NewMockFunc creates a mock that returns output and err.
func NewMockFunc(output any, err error) *MockFunc {
	return &MockFunc{output: output, err: err}
}

// NewMockFuncWith creates a mock backed by fn.
func NewMockFuncWith(fn dag.Func) *MockFunc {
	return &MockFunc{fn: fn}
}

// Func returns the dag.Func to hand to a task.
func (m *MockFunc) Func() dag.Func {
	return func(ctx context.Context, args dag.Args) (any, error) {
		m.mu.Lock()
		m.calls = append(m.calls, args)
		m.mu.Unlock()

		if m.fn != nil {
			return m.fn(ctx, args)
		}
		return m.output, m.err
	}
}

// Calls returns how many times the function was invoked.
func (m *MockFunc) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Args returns the arguments of every call, in call order.
func (m *MockFunc) Args() []dag.Args {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dag.Args(nil), m.calls...)
}

// Reset clears the recorded calls.
func (m *MockFunc) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
