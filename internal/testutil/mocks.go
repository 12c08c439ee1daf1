// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"
	"sync"

	"automation-hub/internal/domain"
)

// === Token Store Mock ===

// MockTokenStore implements domain.TokenStore for testing. Unset Fn fields
// fall back to an in-memory token.
type MockTokenStore struct {
	LoadFn  func(ctx context.Context) (string, error)
	SaveFn  func(ctx context.Context, token string) error
	ClearFn func(ctx context.Context) error

	mu     sync.Mutex
	token  string
	saves  []string
	clears int
}

var _ domain.TokenStore = (*MockTokenStore)(nil)

// Load implements the interface method for testing.
func (m *MockTokenStore) Load(ctx context.Context) (string, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save implements the interface method for testing.
func (m *MockTokenStore) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	m.saves = append(m.saves, token)
	m.mu.Unlock()
	if m.SaveFn != nil {
		return m.SaveFn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear implements the interface method for testing.
func (m *MockTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.clears++
	m.mu.Unlock()
	if m.ClearFn != nil {
		return m.ClearFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// Saves returns every token passed to Save, in order.
func (m *MockTokenStore) Saves() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saves...)
}

// Clears returns how many times Clear was called.
func (m *MockTokenStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// === Auth API Mock ===

// MockAuthAPI implements domain.AuthAPI for testing. A call to a method
// whose Fn is unset panics.
type MockAuthAPI struct {
	LoginFn func(ctx context.Context, email, password string) (string, error)
	MeFn    func(ctx context.Context) (*domain.UserProfile, error)
}

var _ domain.AuthAPI = (*MockAuthAPI)(nil)

// Login implements the interface method for testing.
func (m *MockAuthAPI) Login(ctx context.Context, email, password string) (string, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, email, password)
	}
	panic("unexpected call to MockAuthAPI.Login")
}

// Me implements the interface method for testing.
func (m *MockAuthAPI) Me(ctx context.Context) (*domain.UserProfile, error) {
	if m.MeFn != nil {
		return m.MeFn(ctx)
	}
	panic("unexpected call to MockAuthAPI.Me")
}
