package backend

import (
	"context"
	"sync"
)

// MockAPI is a mock implementation of the backend API for testing.
type MockAPI struct {
	mu sync.Mutex

	// Messages indexed by id, returned by GetMessage.
	Messages map[string]*Message

	// Services indexed by id, returned by GetService.
	Services map[string]*Service

	// Pages returned by successive ListMessages calls. When exhausted, the
	// last page is returned again.
	Pages []*Page

	// Error injection
	ListError       error
	GetMessageError map[string]error // per-message errors
	GetServiceError map[string]error // per-service errors

	// GetMessageHook, when set, is invoked at the start of every GetMessage
	// call. Tests use it to interleave store mutations with in-flight fetches.
	GetMessageHook func(id string)

	// Call tracking for assertions
	ListCalls       int
	LastListOptions ListOptions
	GetMessageCalls []string
	GetServiceCalls []string
}

// Compile-time check that MockAPI implements API.
var _ API = (*MockAPI)(nil)

// NewMockAPI creates a new mock API with empty state.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Messages:        make(map[string]*Message),
		Services:        make(map[string]*Service),
		GetMessageError: make(map[string]error),
		GetServiceError: make(map[string]error),
	}
}

// AddMessage registers a full message and returns its summary for page setup.
func (m *MockAPI) AddMessage(msg *Message) MessageSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[msg.ID] = msg
	return msg.MessageSummary
}

// AddService registers a service.
func (m *MockAPI) AddService(svc *Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Services[svc.ID] = svc
}

// SetPage replaces the page sequence with a single page listing the given ids.
// All ids must have been registered with AddMessage.
func (m *MockAPI) SetPage(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &Page{PageSize: len(ids)}
	for _, id := range ids {
		page.Items = append(page.Items, m.Messages[id].MessageSummary)
	}
	m.Pages = []*Page{page}
}

// ListMessages returns the next configured page.
func (m *MockAPI) ListMessages(ctx context.Context, opts ListOptions) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	m.LastListOptions = opts

	if m.ListError != nil {
		return nil, m.ListError
	}
	if len(m.Pages) == 0 {
		return &Page{}, nil
	}
	idx := m.ListCalls - 1
	if idx >= len(m.Pages) {
		idx = len(m.Pages) - 1
	}
	return m.Pages[idx], nil
}

// GetMessage returns the registered message or an injected error.
func (m *MockAPI) GetMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.Lock()
	hook := m.GetMessageHook
	m.GetMessageCalls = append(m.GetMessageCalls, id)
	err := m.GetMessageError[id]
	msg := m.Messages[id]
	m.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, &NotFoundError{Kind: "message", ID: id}
	}
	return msg, nil
}

// GetService returns the registered service or an injected error.
func (m *MockAPI) GetService(ctx context.Context, id string) (*Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetServiceCalls = append(m.GetServiceCalls, id)

	if err := m.GetServiceError[id]; err != nil {
		return nil, err
	}
	svc := m.Services[id]
	if svc == nil {
		return nil, &NotFoundError{Kind: "service", ID: id}
	}
	return svc, nil
}
