package tokenstore

import (
	"context"
	"sync"

	"automation-hub/internal/domain"
	"automation-hub/internal/profile"
)

// ProfileStore keeps the token in one profile of the user config file.
// Other profiles and fields in the file are preserved on every write.
type ProfileStore struct {
	mu      sync.Mutex
	path    string
	profile string
}

var _ domain.TokenStore = (*ProfileStore)(nil)

// NewProfileStore returns a store for the named profile in the config file
// at path. An empty name selects the file's current profile.
func NewProfileStore(path, name string) *ProfileStore {
	return &ProfileStore{path: path, profile: name}
}

// Load implements domain.TokenStore.
func (s *ProfileStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := profile.Load(s.path)
	if err != nil {
		return "", err
	}
	return cfg.Profiles[cfg.ActiveName(s.profile)].Token, nil
}

// Save implements domain.TokenStore.
func (s *ProfileStore) Save(_ context.Context, token string) error {
	return s.setToken(token)
}

// Clear implements domain.TokenStore.
func (s *ProfileStore) Clear(_ context.Context) error {
	return s.setToken("")
}

func (s *ProfileStore) setToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return profile.Update(s.path, func(cfg *profile.UserConfig) error {
		name := cfg.ActiveName(s.profile)
		p := cfg.Profiles[name]
		if p.Token == token {
			return nil
		}
		p.Token = token
		cfg.Set(name, p)
		return nil
	})
}
