package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://localhost:8000/api/v1", Output: "table"},
			"staging": {Host: "https://staging.example.com/api/v1", Output: "json"},
		},
	}

	tests := []struct {
		name     string
		override string
		wantHost string
		wantErr  string
	}{
		{name: "uses current profile", wantHost: "http://localhost:8000/api/v1"},
		{name: "override to staging", override: "staging", wantHost: "https://staging.example.com/api/v1"},
		{name: "nonexistent profile", override: "nonexistent", wantErr: `profile "nonexistent" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.ActiveProfile(tt.override)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, p.Host)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultName, cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := New()
	cfg.Set("default", Profile{Host: "https://hub.example.com/api/v1", Email: "a@x.com", Token: "tok"})

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Profiles, loaded.Profiles)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Update(path, func(c *UserConfig) error {
		c.CurrentProfile = "work"
		c.Set("work", Profile{Output: "json"})
		return nil
	}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.CurrentProfile)
	p, err := cfg.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, "json", p.Output)
}

func TestPath_EnvOverride(t *testing.T) {
	t.Setenv("HUB_CONFIG", "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", Path())
}
