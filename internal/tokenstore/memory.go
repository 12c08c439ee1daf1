// Package tokenstore provides the durable homes for the bearer token:
// an in-memory store for tests and ephemeral runs, the profile file used
// by the CLI, and a SQLite state database.
package tokenstore

import (
	"context"
	"sync"

	"automation-hub/internal/domain"
)

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

var _ domain.TokenStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with token, which may be empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Load implements domain.TokenStore.
func (m *MemoryStore) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save implements domain.TokenStore.
func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear implements domain.TokenStore.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
