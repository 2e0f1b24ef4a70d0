package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "helix.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"server_url: https://helix.example.com\nusername: user1\nprobe_concurrency: 4\n"), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://helix.example.com", cfg.ServerURL)
		assert.Equal(t, "user1", cfg.Username)
		assert.Equal(t, 4, cfg.ProbeConcurrency)
	})

	t.Run("missing file is fine with env-only config", func(t *testing.T) {
		t.Setenv("HELIX_SERVER_URL", "https://env.example.com")
		t.Setenv("HELIX_USERNAME", "envuser")

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.ServerURL)
		assert.Equal(t, "envuser", cfg.Username)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "helix.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server_url: https://file.example.com\n"), 0644))
		t.Setenv("HELIX_SERVER_URL", "https://env.example.com")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.ServerURL)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "helix.yaml")
		require.NoError(t, os.WriteFile(path, []byte(":\tnot yaml"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid probe concurrency override is ignored", func(t *testing.T) {
		t.Setenv("HELIX_SERVER_URL", "https://env.example.com")
		t.Setenv("HELIX_PROBE_CONCURRENCY", "zero")

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Zero(t, cfg.ProbeConcurrency)
	})
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{ServerURL: "https://helix.example.com"}).Validate())
}
