package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SessionManager stores per-session conversation history. History returns
// prior turns pre-formatted as text; truncation policy belongs here, not to
// the query pipeline.
type SessionManager interface {
	Create(ctx context.Context) (string, error)
	History(ctx context.Context, sessionID string) (string, error)
	AddExchange(ctx context.Context, sessionID, query, answer string) error
}

type exchange struct {
	query  string
	answer string
}

// MemorySessionManager keeps session history in process memory, bounded to
// the most recent maxHistory exchanges per session. The default when no
// Postgres DSN is configured.
type MemorySessionManager struct {
	mu         sync.Mutex
	sessions   map[string][]exchange
	maxHistory int
}

func NewMemorySessionManager(maxHistory int) *MemorySessionManager {
	return &MemorySessionManager{
		sessions:   make(map[string][]exchange),
		maxHistory: maxHistory,
	}
}

func (m *MemorySessionManager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id, nil
}

func (m *MemorySessionManager) History(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	exchanges := m.sessions[sessionID]
	m.mu.Unlock()
	return formatHistory(exchanges), nil
}

func (m *MemorySessionManager) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exchanges := append(m.sessions[sessionID], exchange{query: query, answer: answer})
	if len(exchanges) > m.maxHistory {
		exchanges = exchanges[len(exchanges)-m.maxHistory:]
	}
	m.sessions[sessionID] = exchanges
	return nil
}

func formatHistory(exchanges []exchange) string {
	if len(exchanges) == 0 {
		return ""
	}
	lines := make([]string, 0, len(exchanges)*2)
	for _, e := range exchanges {
		lines = append(lines, fmt.Sprintf("User: %s", e.query))
		lines = append(lines, fmt.Sprintf("Assistant: %s", e.answer))
	}
	return strings.Join(lines, "\n")
}
