// Package profile reads and writes the user configuration file
// (~/.hub/config.yaml), which holds named connection profiles and the
// bearer token of each.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultName is the profile used when none is selected.
const DefaultName = "default"

// UserConfig represents ~/.hub/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile" json:"current_profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles"`
}

// Profile represents a single named configuration profile.
type Profile struct {
	Host   string `yaml:"host,omitempty" json:"host,omitempty"`
	Email  string `yaml:"email,omitempty" json:"email,omitempty"`
	Token  string `yaml:"token,omitempty" json:"token,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// New returns an empty config whose current profile is DefaultName.
func New() *UserConfig {
	return &UserConfig{CurrentProfile: DefaultName, Profiles: map[string]Profile{}}
}

// ActiveName returns override when set, else the current profile name.
func (c *UserConfig) ActiveName(override string) string {
	if override != "" {
		return override
	}
	if c.CurrentProfile != "" {
		return c.CurrentProfile
	}
	return DefaultName
}

// ActiveProfile returns the profile to use based on the override or
// current-profile. An explicit override naming a missing profile is an
// error; a missing current profile is an empty Profile.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	name := c.ActiveName(override)
	if p, ok := c.Profiles[name]; ok {
		return p, nil
	}
	if override != "" {
		return Profile{}, fmt.Errorf("profile %q not found", override)
	}
	return Profile{}, nil
}

// Set stores p under name, creating the profile map if needed.
func (c *UserConfig) Set(name string, p Profile) {
	if c.Profiles == nil {
		c.Profiles = map[string]Profile{}
	}
	c.Profiles[name] = p
}

// Dir returns the path to ~/.hub/.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hub")
}

// Path returns the config file path: $HUB_CONFIG when set, else
// ~/.hub/config.yaml.
func Path() string {
	if p := os.Getenv("HUB_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config file at path. A missing file yields an empty
// config, not an error.
func Load(path string) (*UserConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	if cfg.CurrentProfile == "" {
		cfg.CurrentProfile = DefaultName
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions.
func Save(path string, cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Update loads the config at path, applies fn and saves the result.
func Update(path string, fn func(*UserConfig) error) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return Save(path, cfg)
}
