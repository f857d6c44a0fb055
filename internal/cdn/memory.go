package cdn

import (
	"context"
	"fmt"
	"sync"
)

// MemoryInvalidator records requests instead of calling a provider.
type MemoryInvalidator struct {
	mu       sync.Mutex
	Requests []Request
	Waited   []string
	FailWith error
	FailWait error
}

func (m *MemoryInvalidator) Invalidate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	m.Requests = append(m.Requests, req)
	return fmt.Sprintf("I%d", len(m.Requests)), nil
}

func (m *MemoryInvalidator) Wait(_ context.Context, _, invalidationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWait != nil {
		return m.FailWait
	}
	m.Waited = append(m.Waited, invalidationID)
	return nil
}
