package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"freightdesk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// spyAuditLogger records events in memory.
type spyAuditLogger struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	fail   bool
}

func (s *spyAuditLogger) Log(_ context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return domain.ErrAuditWrite
	}
	s.events = append(s.events, event)
	return nil
}

func (s *spyAuditLogger) Close() error { return nil }

func (s *spyAuditLogger) byType(t domain.AuditEventType) []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEvent
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// fakeTool is a configurable in-memory tool.
type fakeTool struct {
	name     string
	category string
	execute  func(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error)
	calls    int
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) Category() string    { return f.category }

func (f *fakeTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: f.name, Description: f.Description()}
}

func (f *fakeTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	f.calls++
	if f.execute != nil {
		return f.execute(ctx, params)
	}
	return &domain.ToolResult{Content: "ok"}, nil
}

// fakeToolSet implements domain.ToolExecutor over a fixed tool list.
type fakeToolSet struct {
	tools map[string]domain.Tool
}

func newFakeToolSet(tools ...domain.Tool) *fakeToolSet {
	m := make(map[string]domain.Tool, len(tools))
	for _, t := range tools {
		m[t.Name()] = t
	}
	return &fakeToolSet{tools: m}
}

func (f *fakeToolSet) Get(name string) (domain.Tool, error) {
	t, ok := f.tools[name]
	if !ok {
		return nil, domain.NewDomainError("fakeToolSet.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

func (f *fakeToolSet) Schemas() []domain.ToolSchema {
	out := make([]domain.ToolSchema, 0, len(f.tools))
	for _, t := range f.tools {
		out = append(out, t.Schema())
	}
	return out
}

func (f *fakeToolSet) list() []domain.Tool {
	out := make([]domain.Tool, 0, len(f.tools))
	for _, t := range f.tools {
		out = append(out, t)
	}
	return out
}

// scriptedBackend replays canned chat responses in order.
type scriptedBackend struct {
	mu        sync.Mutex
	name      string
	responses []*domain.ChatResponse
	errs      []error
	requests  []domain.ChatRequest
}

func (s *scriptedBackend) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: "done"}}, nil
}

func (s *scriptedBackend) Name() string { return s.name }

// fakeBackends implements BackendRegistry.
type fakeBackends struct {
	backends map[domain.Provider]domain.LLMProvider
}

func (f *fakeBackends) Get(p domain.Provider) (domain.LLMProvider, error) {
	b, ok := f.backends[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, p)
	}
	return b, nil
}

// memorySessionStore implements domain.SessionStore in memory.
type memorySessionStore struct {
	mu       sync.Mutex
	states   map[string]domain.SessionState
	getErr   error
	saveErr  error
	saveSeen int
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{states: make(map[string]domain.SessionState)}
}

func (m *memorySessionStore) Get(_ context.Context, key string) (*domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if s, ok := m.states[key]; ok {
		copied := s
		return &copied, nil
	}
	return &domain.SessionState{Key: key}, nil
}

func (m *memorySessionStore) Save(_ context.Context, state *domain.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveSeen++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[state.Key] = *state
	return nil
}

func (m *memorySessionStore) Close() error { return nil }

// recordingTransport captures published typing events per channel.
type recordingTransport struct {
	mu       sync.Mutex
	events   map[string][]domain.TypingEvent
	ready    map[string]chan struct{}
	removed  []string
	readyAll bool // Ready channels come pre-closed
}

func newRecordingTransport(readyAll bool) *recordingTransport {
	return &recordingTransport{
		events:   make(map[string][]domain.TypingEvent),
		ready:    make(map[string]chan struct{}),
		readyAll: readyAll,
	}
}

func (r *recordingTransport) Publish(_ context.Context, channel string, event domain.TypingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[channel] = append(r.events[channel], event)
}

func (r *recordingTransport) Subscribe(string, domain.TypingHandler) func() {
	return func() {}
}

func (r *recordingTransport) Ready(channel string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.ready[channel]
	if !ok {
		ch = make(chan struct{})
		if r.readyAll {
			close(ch)
		}
		r.ready[channel] = ch
	}
	return ch
}

func (r *recordingTransport) Remove(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, channel)
}

func (r *recordingTransport) published(channel string) []domain.TypingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TypingEvent, len(r.events[channel]))
	copy(out, r.events[channel])
	return out
}
